package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetfence",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fleetfence",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Geofence metrics
	BoundaryValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetfence",
		Subsystem: "geofence",
		Name:      "boundary_validations_total",
		Help:      "Total boundary validation passes by outcome",
	}, []string{"outcome", "trigger"}) // outcome: valid|invalid, trigger: debounce|flush|submit

	ValidationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fleetfence",
		Subsystem: "geofence",
		Name:      "validation_duration_seconds",
		Help:      "Duration of one boundary validation pass",
		Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
	})

	ActiveEditSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fleetfence",
		Subsystem: "geofence",
		Name:      "active_edit_sessions",
		Help:      "Currently open boundary editing sessions",
	})

	PositionsEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetfence",
		Subsystem: "watch",
		Name:      "positions_evaluated_total",
		Help:      "Device positions evaluated against fleet geofences",
	}, []string{"fleet"})

	FenceEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetfence",
		Subsystem: "watch",
		Name:      "fence_events_total",
		Help:      "Fence enter/exit events emitted",
	}, []string{"type"})

	BreachWorkflowsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fleetfence",
		Subsystem: "watch",
		Name:      "breach_workflows_started_total",
		Help:      "Breach alert workflows started for restricted-fence entries",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fleetfence",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetfence",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetfence",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
)

// ObserveValidation records one engine pass.
func ObserveValidation(valid bool, trigger string, elapsed time.Duration) {
	outcome := "valid"
	if !valid {
		outcome = "invalid"
	}
	BoundaryValidations.WithLabelValues(outcome, trigger).Inc()
	ValidationDuration.Observe(elapsed.Seconds())
}

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
