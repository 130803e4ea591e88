package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arkaitzh/fleetfence/internal/core/domain"
	"github.com/arkaitzh/fleetfence/internal/core/ports"
	"github.com/arkaitzh/fleetfence/internal/pkg/geo"
)

// GeofenceService handles geofence business logic. Every save path runs a
// forced synchronous validation — the debounced editor result is advisory UI
// state and is never trusted at submission time.
type GeofenceService struct {
	fences ports.GeofenceRepository
	cache  ports.CacheService
	events ports.EventPublisher
}

// NewGeofenceService creates a new GeofenceService.
func NewGeofenceService(fences ports.GeofenceRepository, cache ports.CacheService, events ports.EventPublisher) *GeofenceService {
	return &GeofenceService{fences: fences, cache: cache, events: events}
}

// Create validates and persists a new geofence. Blocking validation errors
// reject the save; an AUTO_CLOSE warning closes the ring before persisting.
// The validation result is returned alongside the entity so callers can
// surface non-blocking warnings.
func (s *GeofenceService) Create(ctx context.Context, fence *domain.Geofence) (geo.Result, error) {
	res, err := s.prepareBoundary(fence)
	if err != nil {
		return res, err
	}

	if err := s.fences.Create(ctx, fence); err != nil {
		return res, fmt.Errorf("create geofence: %w", err)
	}

	s.invalidate(ctx, fence)
	if s.events != nil {
		_ = s.events.PublishFenceUpdated(ctx, fence.ID)
	}
	return res, nil
}

// Update validates and persists changes to an existing geofence.
func (s *GeofenceService) Update(ctx context.Context, fence *domain.Geofence) (geo.Result, error) {
	res, err := s.prepareBoundary(fence)
	if err != nil {
		return res, err
	}

	if err := s.fences.Update(ctx, fence); err != nil {
		return res, fmt.Errorf("update geofence: %w", err)
	}

	s.invalidate(ctx, fence)
	if s.events != nil {
		_ = s.events.PublishFenceUpdated(ctx, fence.ID)
	}
	return res, nil
}

// prepareBoundary runs the engine on the candidate boundary and applies
// auto-closure when warned.
func (s *GeofenceService) prepareBoundary(fence *domain.Geofence) (geo.Result, error) {
	res := geo.ValidateBoundary(fence.Boundary)
	if !res.Valid {
		return res, &ErrInvalidBoundary{Result: res}
	}
	for _, w := range res.Warnings {
		if w.Code == geo.CodeAutoClose {
			fence.Boundary = geo.AutoClose(fence.Boundary)
			break
		}
	}
	return res, nil
}

// GetByID returns a single geofence.
func (s *GeofenceService) GetByID(ctx context.Context, id string) (*domain.Geofence, error) {
	cacheKey := "fences:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var fence domain.Geofence
			if err := json.Unmarshal(data, &fence); err == nil {
				return &fence, nil
			}
		}
	}

	fence, err := s.fences.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(fence); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}
	return fence, nil
}

// GetBySlug returns a geofence by fleet-scoped slug.
func (s *GeofenceService) GetBySlug(ctx context.Context, fleetID, slug string) (*domain.Geofence, error) {
	return s.fences.GetBySlug(ctx, fleetID, slug)
}

// ListByFleet returns all geofences of a fleet.
func (s *GeofenceService) ListByFleet(ctx context.Context, fleetID string) ([]domain.Geofence, error) {
	cacheKey := "fences:fleet:" + fleetID
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var fences []domain.Geofence
			if err := json.Unmarshal(data, &fences); err == nil {
				return fences, nil
			}
		}
	}

	fences, err := s.fences.ListByFleet(ctx, fleetID)
	if err != nil {
		return nil, err
	}

	// Fences change rarely outside editing sessions.
	if s.cache != nil {
		if data, err := json.Marshal(fences); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}
	return fences, nil
}

// FindNear returns active fences whose boundary contains the point or whose
// nearest vertex lies within radiusMeters. Linear scan over the fleet's
// fences — fleets carry tens of fences, not thousands.
func (s *GeofenceService) FindNear(ctx context.Context, fleetID string, lat, lon, radiusMeters float64) ([]domain.Geofence, error) {
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %v", radiusMeters)
	}

	fences, err := s.fences.ListActiveByFleet(ctx, fleetID)
	if err != nil {
		return nil, err
	}

	p := domain.GeoPoint{Lat: lat, Lon: lon}
	var near []domain.Geofence
	for _, fence := range fences {
		if geo.Contains(fence.Boundary, p) {
			near = append(near, fence)
			continue
		}
		for _, v := range fence.Boundary {
			if geo.Haversine(lat, lon, v.Lat, v.Lon) <= radiusMeters {
				near = append(near, fence)
				break
			}
		}
	}
	return near, nil
}

// Delete removes a geofence.
func (s *GeofenceService) Delete(ctx context.Context, id string) error {
	fence, err := s.fences.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.fences.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete geofence: %w", err)
	}

	s.invalidate(ctx, fence)
	if s.events != nil {
		_ = s.events.PublishFenceUpdated(ctx, id)
	}
	return nil
}

func (s *GeofenceService) invalidate(ctx context.Context, fence *domain.Geofence) {
	if s.cache == nil || fence == nil {
		return
	}
	_ = s.cache.Delete(ctx, "fences:id:"+fence.ID)
	_ = s.cache.Delete(ctx, "fences:fleet:"+fence.FleetID)
}
