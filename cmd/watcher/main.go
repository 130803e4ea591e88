package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"

	natsadapter "github.com/arkaitzh/fleetfence/internal/adapters/nats"
	"github.com/arkaitzh/fleetfence/internal/adapters/postgres"
	"github.com/arkaitzh/fleetfence/internal/core/domain"
	"github.com/arkaitzh/fleetfence/internal/core/usecases"
	"github.com/arkaitzh/fleetfence/internal/pkg/config"
	"github.com/arkaitzh/fleetfence/internal/pkg/logging"
	"github.com/arkaitzh/fleetfence/internal/pkg/metrics"
	"github.com/arkaitzh/fleetfence/internal/workflows"
)

func main() {
	cfg, err := config.Load("fleetfence-watcher")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("watcher", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// NATS publisher (also ensures the streams exist)
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	// Temporal client for breach alert workflows. The watcher still runs
	// without it; restricted-fence entries just won't page anyone.
	var temporalClient client.Client
	if cfg.Temporal.HostPort != "" {
		temporalClient, err = client.Dial(client.Options{HostPort: cfg.Temporal.HostPort})
		if err != nil {
			slog.Warn("temporal unavailable, breach alerts disabled", "error", err)
		} else {
			defer temporalClient.Close()
		}
	}

	fenceRepo := postgres.NewGeofenceRepo(db)
	eventRepo := postgres.NewFenceEventRepo(db)
	positionRepo := postgres.NewDevicePositionRepo(db)

	watch := usecases.NewWatchService(fenceRepo, eventRepo, positionRepo, pub)

	if temporalClient != nil {
		watch.OnBreach = func(ctx context.Context, event *domain.FenceEvent) {
			fence, err := fenceRepo.GetByID(ctx, event.GeofenceID)
			if err != nil {
				slog.Error("breach fence lookup failed", "fence", event.GeofenceID, "error", err)
				return
			}
			// The ID dedupes a device bouncing on the boundary: while one
			// breach workflow runs for this device+fence pair, repeat enters
			// fail to start a second one.
			opts := client.StartWorkflowOptions{
				ID:        "breach-" + event.GeofenceID + "-" + event.DeviceID,
				TaskQueue: cfg.Temporal.TaskQueue,
			}
			_, err = temporalClient.ExecuteWorkflow(ctx, opts, workflows.BreachAlertWorkflow, workflows.BreachAlertInput{
				EventID:    event.ID,
				DeviceID:   event.DeviceID,
				GeofenceID: event.GeofenceID,
				FleetID:    fence.FleetID,
				FenceName:  fence.Name,
			})
			if err != nil {
				slog.Error("breach workflow start failed", "device", event.DeviceID, "error", err)
				return
			}
			metrics.BreachWorkflowsStarted.Inc()
			slog.Info("breach workflow started", "device", event.DeviceID, "fence", fence.Name)
		}
	}

	// Position firehose → crossing detection
	err = sub.SubscribePositions(ctx, func(ctx context.Context, pos *domain.DevicePosition) error {
		metrics.PositionsEvaluated.WithLabelValues(pos.FleetID).Inc()
		return watch.HandlePosition(ctx, pos)
	})
	if err != nil {
		log.Fatalf("subscribe positions: %v", err)
	}

	// Fence config changes → drop the cached fleet snapshot
	err = sub.SubscribeFenceUpdates(ctx, func(ctx context.Context, geofenceID string) error {
		fence, err := fenceRepo.GetByID(ctx, geofenceID)
		if err != nil {
			if errors.Is(err, usecases.ErrNotFound) {
				// Deleted fence — we don't know its fleet anymore.
				watch.InvalidateFleet("")
				return nil
			}
			return err
		}
		watch.InvalidateFleet(fence.FleetID)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe fence updates: %v", err)
	}

	slog.Info("position watcher started", "nats", cfg.NATS.URL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received", "signal", sig.String())
	cancel()
	// Give in-flight handlers time to finish
	time.Sleep(2 * time.Second)
}
