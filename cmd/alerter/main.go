package main

import (
	"context"
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/arkaitzh/fleetfence/internal/adapters/postgres"
	"github.com/arkaitzh/fleetfence/internal/pkg/config"
	"github.com/arkaitzh/fleetfence/internal/workflows"
)

func main() {
	cfg, err := config.Load("fleetfence-alerter")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := postgres.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.BreachAlertWorkflow)
	w.RegisterActivity(&workflows.BreachActivities{
		Fences:    postgres.NewGeofenceRepo(db),
		Events:    postgres.NewFenceEventRepo(db),
		Positions: postgres.NewDevicePositionRepo(db),
		// Notifier is nil in dev; activities log the push instead.
	})

	log.Println("alerter worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
