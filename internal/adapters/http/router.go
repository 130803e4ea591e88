package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/arkaitzh/fleetfence/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 — 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Get("/fleets/:fleetID/geofences", timeout.NewWithContext(ListGeofencesHandler(deps), 15*time.Second))
	v1.Post("/fleets/:fleetID/geofences", timeout.NewWithContext(CreateGeofenceHandler(deps), 15*time.Second))
	v1.Get("/fleets/:fleetID/geofences/nearby", timeout.NewWithContext(NearbyGeofencesHandler(deps), 15*time.Second))
	v1.Get("/fleets/:fleetID/geofences/slug/:slug", timeout.NewWithContext(GetGeofenceBySlugHandler(deps), 15*time.Second))
	v1.Get("/fleets/:fleetID/positions", timeout.NewWithContext(FleetPositionsHandler(deps), 15*time.Second))
	v1.Get("/geofences/:id", timeout.NewWithContext(GetGeofenceHandler(deps), 15*time.Second))
	v1.Put("/geofences/:id", timeout.NewWithContext(UpdateGeofenceHandler(deps), 15*time.Second))
	v1.Delete("/geofences/:id", timeout.NewWithContext(DeleteGeofenceHandler(deps), 15*time.Second))
	v1.Get("/geofences/:id/events", timeout.NewWithContext(FenceEventsHandler(deps), 15*time.Second))
	v1.Post("/geofences/validate", timeout.NewWithContext(ValidateBoundaryHandler(deps), 15*time.Second))
	v1.Get("/devices/:id/events", timeout.NewWithContext(DeviceEventsHandler(deps), 15*time.Second))
	v1.Get("/devices/:id/position", timeout.NewWithContext(DevicePositionHandler(deps), 15*time.Second))
	v1.Get("/stats", timeout.NewWithContext(FleetStatsHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(EventsSocketHandler(deps.NATS)))
	app.Get("/ws/edit", websocket.New(EditSessionHandler(deps)))
}
