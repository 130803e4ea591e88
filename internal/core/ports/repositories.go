package ports

import (
	"context"

	"github.com/arkaitzh/fleetfence/internal/core/domain"
)

// GeofenceRepository persists geofences.
type GeofenceRepository interface {
	Create(ctx context.Context, fence *domain.Geofence) error
	Update(ctx context.Context, fence *domain.Geofence) error
	GetByID(ctx context.Context, id string) (*domain.Geofence, error)
	GetBySlug(ctx context.Context, fleetID, slug string) (*domain.Geofence, error)
	ListByFleet(ctx context.Context, fleetID string) ([]domain.Geofence, error)
	ListActiveByFleet(ctx context.Context, fleetID string) ([]domain.Geofence, error)
	Delete(ctx context.Context, id string) error
}

// FenceEventRepository persists fence enter/exit events.
type FenceEventRepository interface {
	Insert(ctx context.Context, event *domain.FenceEvent) error
	GetByID(ctx context.Context, id string) (*domain.FenceEvent, error)
	ListByFence(ctx context.Context, geofenceID string, limit int) ([]domain.FenceEvent, error)
	ListByDevice(ctx context.Context, deviceID string, limit int) ([]domain.FenceEvent, error)
	MarkAlerted(ctx context.Context, id string) error
	ClearAlerted(ctx context.Context, id string) error
}

// DevicePositionRepository persists real-time device positions.
type DevicePositionRepository interface {
	Insert(ctx context.Context, pos *domain.DevicePosition) error
	LatestByDevice(ctx context.Context, deviceID string) (*domain.DevicePosition, error)
	LatestByFleet(ctx context.Context, fleetID string) ([]domain.DevicePosition, error)
}
