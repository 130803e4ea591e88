package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arkaitzh/fleetfence/internal/core/domain"
	"github.com/arkaitzh/fleetfence/internal/core/usecases"
)

// DevicePositionRepo implements ports.DevicePositionRepository with pgx.
type DevicePositionRepo struct {
	db *DB
}

// NewDevicePositionRepo creates a new DevicePositionRepo.
func NewDevicePositionRepo(db *DB) *DevicePositionRepo {
	return &DevicePositionRepo{db: db}
}

// Insert stores a position reading.
func (r *DevicePositionRepo) Insert(ctx context.Context, p *domain.DevicePosition) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO device_positions (time, device_id, fleet_id, location, bearing, speed, metadata)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6, $7, $8)
	`, p.Time, p.DeviceID, p.FleetID, p.Location.Lon, p.Location.Lat,
		p.Bearing, p.Speed, p.Metadata)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

const positionColumns = `time, device_id, fleet_id,
	ST_Y(location::geometry) as lat, ST_X(location::geometry) as lon,
	bearing, speed, COALESCE(metadata, '{}')`

// LatestByDevice returns the most recent reading for one device.
func (r *DevicePositionRepo) LatestByDevice(ctx context.Context, deviceID string) (*domain.DevicePosition, error) {
	var p domain.DevicePosition
	err := r.db.Pool.QueryRow(ctx, `
		SELECT `+positionColumns+`
		FROM device_positions
		WHERE device_id = $1
		ORDER BY time DESC
		LIMIT 1
	`, deviceID).Scan(&p.Time, &p.DeviceID, &p.FleetID,
		&p.Location.Lat, &p.Location.Lon, &p.Bearing, &p.Speed, &p.Metadata)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, usecases.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// LatestByFleet returns the latest reading of every device in a fleet.
func (r *DevicePositionRepo) LatestByFleet(ctx context.Context, fleetID string) ([]domain.DevicePosition, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT DISTINCT ON (device_id) `+positionColumns+`
		FROM device_positions
		WHERE fleet_id = $1
		ORDER BY device_id, time DESC
	`, fleetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []domain.DevicePosition
	for rows.Next() {
		var p domain.DevicePosition
		if err := rows.Scan(&p.Time, &p.DeviceID, &p.FleetID,
			&p.Location.Lat, &p.Location.Lon, &p.Bearing, &p.Speed, &p.Metadata); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}
