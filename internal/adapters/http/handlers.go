package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/arkaitzh/fleetfence/internal/core/domain"
	"github.com/arkaitzh/fleetfence/internal/core/usecases"
	"github.com/arkaitzh/fleetfence/internal/pkg/geo"
	"github.com/arkaitzh/fleetfence/internal/pkg/metrics"
)

// FleetStats holds row counts for the geofencing tables.
type FleetStats struct {
	Geofences   int    `json:"geofences"`
	FenceEvents int    `json:"fence_events"`
	Positions   int    `json:"positions"`
	LastEvent   string `json:"last_event,omitempty"`
}

// FleetStatsHandler returns row counts from the geofencing tables.
func FleetStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var stats FleetStats
		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				(SELECT count(*) FROM geofences),
				(SELECT count(*) FROM fence_events),
				(SELECT count(*) FROM device_positions),
				COALESCE((SELECT max(time)::text FROM fence_events), '')
		`)
		if err := row.Scan(&stats.Geofences, &stats.FenceEvents,
			&stats.Positions, &stats.LastEvent); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}

// geofenceRequest is the write payload for create/update.
type geofenceRequest struct {
	Slug     string           `json:"slug"`
	Name     string           `json:"name"`
	Kind     domain.FenceKind `json:"kind"`
	Boundary domain.Boundary  `json:"boundary"`
	Color    string           `json:"color"`
	Active   *bool            `json:"active"`
	Metadata map[string]any   `json:"metadata"`
}

// geofenceResponse pairs the saved entity with its validation result so
// clients can surface non-blocking warnings (auto-closure, self-intersection).
type geofenceResponse struct {
	Geofence   *domain.Geofence `json:"geofence"`
	Validation geo.Result       `json:"validation"`
}

// ListGeofencesHandler returns all geofences of a fleet.
func ListGeofencesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fleetID := c.Params("fleetID")
		if fleetID == "" {
			return errBadRequest(c, "fleet id is required")
		}

		fences, err := deps.Fences.ListByFleet(c.Context(), fleetID)
		if err != nil {
			return errInternal(c, err.Error())
		}

		page, pg := paginate(c, fences, 100, 500)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// CreateGeofenceHandler validates and persists a new geofence.
// Blocking boundary errors come back as 422 with the full validation payload.
func CreateGeofenceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fleetID := c.Params("fleetID")
		if fleetID == "" {
			return errBadRequest(c, "fleet id is required")
		}

		var req geofenceRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		if req.Name == "" {
			return errBadRequest(c, "name is required")
		}
		if req.Kind != domain.FenceAllowed && req.Kind != domain.FenceRestricted {
			return errBadRequest(c, "kind must be 'allowed' or 'restricted'")
		}

		active := true
		if req.Active != nil {
			active = *req.Active
		}

		fence := &domain.Geofence{
			Slug:     req.Slug,
			FleetID:  fleetID,
			Name:     req.Name,
			Kind:     req.Kind,
			Boundary: req.Boundary,
			Color:    req.Color,
			Active:   active,
			Metadata: req.Metadata,
		}

		start := time.Now()
		res, err := deps.Fences.Create(c.Context(), fence)
		metrics.ObserveValidation(res.Valid, "submit", time.Since(start))
		if err != nil {
			var invalid *usecases.ErrInvalidBoundary
			if errors.As(err, &invalid) {
				return errInvalidBoundary(c, invalid.Result)
			}
			return errInternal(c, err.Error())
		}

		return c.Status(201).JSON(geofenceResponse{Geofence: fence, Validation: res})
	}
}

// GetGeofenceHandler returns a single geofence by ID.
func GetGeofenceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "geofence id is required")
		}
		fence, err := deps.Fences.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "geofence not found")
		}
		return c.JSON(fence)
	}
}

// GetGeofenceBySlugHandler resolves a fleet-scoped slug.
func GetGeofenceBySlugHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fleetID := c.Params("fleetID")
		slug := c.Params("slug")
		if fleetID == "" || slug == "" {
			return errBadRequest(c, "fleet id and slug are required")
		}
		fence, err := deps.Fences.GetBySlug(c.Context(), fleetID, slug)
		if err != nil {
			return errNotFound(c, "geofence not found")
		}
		return c.JSON(fence)
	}
}

// UpdateGeofenceHandler validates and persists changes to a geofence.
func UpdateGeofenceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "geofence id is required")
		}

		existing, err := deps.Fences.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "geofence not found")
		}

		var req geofenceRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}

		if req.Name != "" {
			existing.Name = req.Name
		}
		if req.Kind != "" {
			if req.Kind != domain.FenceAllowed && req.Kind != domain.FenceRestricted {
				return errBadRequest(c, "kind must be 'allowed' or 'restricted'")
			}
			existing.Kind = req.Kind
		}
		if req.Boundary != nil {
			existing.Boundary = req.Boundary
		}
		if req.Color != "" {
			existing.Color = req.Color
		}
		if req.Active != nil {
			existing.Active = *req.Active
		}
		if req.Metadata != nil {
			existing.Metadata = req.Metadata
		}

		start := time.Now()
		res, err := deps.Fences.Update(c.Context(), existing)
		metrics.ObserveValidation(res.Valid, "submit", time.Since(start))
		if err != nil {
			var invalid *usecases.ErrInvalidBoundary
			if errors.As(err, &invalid) {
				return errInvalidBoundary(c, invalid.Result)
			}
			return errInternal(c, err.Error())
		}

		return c.JSON(geofenceResponse{Geofence: existing, Validation: res})
	}
}

// DeleteGeofenceHandler removes a geofence.
func DeleteGeofenceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "geofence id is required")
		}
		if err := deps.Fences.Delete(c.Context(), id); err != nil {
			if errors.Is(err, usecases.ErrNotFound) {
				return errNotFound(c, "geofence not found")
			}
			return errInternal(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

// ValidateBoundaryHandler runs the validation engine on a candidate boundary
// without persisting anything. Always answers 200; the verdict is in the body.
func ValidateBoundaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Coordinates domain.Boundary `json:"coordinates"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}

		start := time.Now()
		res := geo.ValidateBoundary(req.Coordinates)
		metrics.ObserveValidation(res.Valid, "submit", time.Since(start))

		return c.JSON(res)
	}
}

// NearbyGeofencesHandler returns active fences containing or near a point.
func NearbyGeofencesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fleetID := c.Params("fleetID")
		if fleetID == "" {
			return errBadRequest(c, "fleet id is required")
		}

		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 500)

		if lat == 0 && lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}
		if radius <= 0 || radius > 50000 {
			return errBadRequest(c, "radius must be between 1 and 50000 meters")
		}

		fences, err := deps.Fences.FindNear(c.Context(), fleetID, lat, lon, radius)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(fences)
	}
}

// FenceEventsHandler returns recent enter/exit events for a geofence.
func FenceEventsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "geofence id is required")
		}
		limit := c.QueryInt("limit", 50)
		if limit <= 0 || limit > 500 {
			limit = 50
		}

		events, err := deps.Events.ListByFence(c.Context(), id, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(events)
	}
}

// DeviceEventsHandler returns recent fence events for a device.
func DeviceEventsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "device id is required")
		}
		limit := c.QueryInt("limit", 50)
		if limit <= 0 || limit > 500 {
			limit = 50
		}

		events, err := deps.Events.ListByDevice(c.Context(), id, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(events)
	}
}

// FleetPositionsHandler returns the latest known position of every device
// in a fleet.
func FleetPositionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fleetID := c.Params("fleetID")
		if fleetID == "" {
			return errBadRequest(c, "fleet id is required")
		}

		positions, err := deps.Positions.LatestByFleet(c.Context(), fleetID)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(positions)
	}
}

// DevicePositionHandler returns the latest position of a single device.
func DevicePositionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "device id is required")
		}
		pos, err := deps.Positions.LatestByDevice(c.Context(), id)
		if err != nil {
			return errNotFound(c, "no position recorded for device")
		}
		return c.JSON(pos)
	}
}
