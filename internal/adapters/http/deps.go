package http

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/arkaitzh/fleetfence/internal/adapters/postgres"
	"github.com/arkaitzh/fleetfence/internal/adapters/valkey"
	"github.com/arkaitzh/fleetfence/internal/core/ports"
	"github.com/arkaitzh/fleetfence/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Fences    *usecases.GeofenceService
	Events    ports.FenceEventRepository
	Positions ports.DevicePositionRepository
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache

	// EditorQuiet is the debounce window handed to every editing session.
	EditorQuiet time.Duration
}
