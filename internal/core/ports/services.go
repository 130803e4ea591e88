package ports

import (
	"context"

	"github.com/arkaitzh/fleetfence/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishPosition(ctx context.Context, pos *domain.DevicePosition) error
	PublishFenceEvent(ctx context.Context, event *domain.FenceEvent) error
	PublishFenceUpdated(ctx context.Context, geofenceID string) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribePositions(ctx context.Context, handler func(ctx context.Context, pos *domain.DevicePosition) error) error
	SubscribeFenceUpdates(ctx context.Context, handler func(ctx context.Context, geofenceID string) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// NotificationService sends notifications (push, email, etc.).
type NotificationService interface {
	SendPush(ctx context.Context, fleetID, title, body string) error
}
