package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arkaitzh/fleetfence/internal/core/domain"
	"github.com/arkaitzh/fleetfence/internal/core/usecases"
)

// FenceEventRepo implements ports.FenceEventRepository with pgx.
type FenceEventRepo struct {
	db *DB
}

// NewFenceEventRepo creates a new FenceEventRepo.
func NewFenceEventRepo(db *DB) *FenceEventRepo {
	return &FenceEventRepo{db: db}
}

// Insert stores a fence event and fills in its generated ID.
func (r *FenceEventRepo) Insert(ctx context.Context, e *domain.FenceEvent) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO fence_events (time, device_id, geofence_id, type, location, dwell_seconds, alerted, metadata)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography, $7, $8, $9)
		RETURNING id
	`, e.Time, e.DeviceID, e.GeofenceID, e.Type,
		e.Location.Lon, e.Location.Lat, e.DwellSeconds, e.Alerted, e.Metadata,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert fence event: %w", err)
	}
	return nil
}

const eventColumns = `id, time, device_id, geofence_id, type,
	ST_Y(location::geometry) as lat, ST_X(location::geometry) as lon,
	dwell_seconds, alerted, COALESCE(metadata, '{}')`

func scanEvent(row pgx.Row) (*domain.FenceEvent, error) {
	var e domain.FenceEvent
	err := row.Scan(&e.ID, &e.Time, &e.DeviceID, &e.GeofenceID, &e.Type,
		&e.Location.Lat, &e.Location.Lon, &e.DwellSeconds, &e.Alerted, &e.Metadata)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, usecases.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// GetByID returns a fence event by UUID.
func (r *FenceEventRepo) GetByID(ctx context.Context, id string) (*domain.FenceEvent, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM fence_events WHERE id = $1`, id)
	return scanEvent(row)
}

func (r *FenceEventRepo) list(ctx context.Context, query string, args ...any) ([]domain.FenceEvent, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.FenceEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// ListByFence returns the most recent events for a geofence.
func (r *FenceEventRepo) ListByFence(ctx context.Context, geofenceID string, limit int) ([]domain.FenceEvent, error) {
	return r.list(ctx,
		`SELECT `+eventColumns+` FROM fence_events WHERE geofence_id = $1 ORDER BY time DESC LIMIT $2`,
		geofenceID, limit)
}

// ListByDevice returns the most recent events for a device.
func (r *FenceEventRepo) ListByDevice(ctx context.Context, deviceID string, limit int) ([]domain.FenceEvent, error) {
	return r.list(ctx,
		`SELECT `+eventColumns+` FROM fence_events WHERE device_id = $1 ORDER BY time DESC LIMIT $2`,
		deviceID, limit)
}

// MarkAlerted flags an event as alerted.
func (r *FenceEventRepo) MarkAlerted(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE fence_events SET alerted = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark alerted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return usecases.ErrNotFound
	}
	return nil
}

// ClearAlerted reverts the alerted flag (saga compensation).
func (r *FenceEventRepo) ClearAlerted(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE fence_events SET alerted = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("clear alerted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return usecases.ErrNotFound
	}
	return nil
}
