package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/arkaitzh/fleetfence/internal/core/domain"
	"github.com/arkaitzh/fleetfence/internal/core/usecases"
)

// GeofenceRepo implements ports.GeofenceRepository with pgx.
//
// The vertex sequence is persisted losslessly as JSONB; a PostGIS geography
// column is maintained alongside it for ad-hoc spatial SQL. The JSONB column
// is authoritative — PostGIS normalises rings, which would break round-trips
// of the exact user-drawn sequence.
type GeofenceRepo struct {
	db *DB
}

// NewGeofenceRepo creates a new GeofenceRepo.
func NewGeofenceRepo(db *DB) *GeofenceRepo {
	return &GeofenceRepo{db: db}
}

// polygonWKT renders a closed ring as PostGIS WKT (lon lat order).
func polygonWKT(b domain.Boundary) string {
	if len(b) < 3 {
		return ""
	}
	ring := b
	if ring[0] != ring[len(ring)-1] {
		ring = append(append(domain.Boundary{}, ring...), ring[0])
	}
	parts := make([]string, 0, len(ring))
	for _, p := range ring {
		parts = append(parts, fmt.Sprintf("%f %f", p.Lon, p.Lat))
	}
	return fmt.Sprintf("POLYGON((%s))", strings.Join(parts, ","))
}

// Create inserts a new geofence and fills in its generated ID and timestamps.
func (r *GeofenceRepo) Create(ctx context.Context, f *domain.Geofence) error {
	boundary, err := json.Marshal(f.Boundary)
	if err != nil {
		return fmt.Errorf("encode boundary: %w", err)
	}

	err = r.db.Pool.QueryRow(ctx, `
		INSERT INTO geofences (slug, fleet_id, name, kind, boundary, area, color, active, metadata)
		VALUES ($1, $2, $3, $4, $5, ST_GeogFromText($6), $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, f.Slug, f.FleetID, f.Name, f.Kind, boundary, polygonWKT(f.Boundary),
		f.Color, f.Active, f.Metadata,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert geofence: %w", err)
	}
	return nil
}

// Update rewrites an existing geofence.
func (r *GeofenceRepo) Update(ctx context.Context, f *domain.Geofence) error {
	boundary, err := json.Marshal(f.Boundary)
	if err != nil {
		return fmt.Errorf("encode boundary: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE geofences
		SET slug = $2, name = $3, kind = $4, boundary = $5,
		    area = ST_GeogFromText($6), color = $7, active = $8,
		    metadata = $9, updated_at = now()
		WHERE id = $1
	`, f.ID, f.Slug, f.Name, f.Kind, boundary, polygonWKT(f.Boundary),
		f.Color, f.Active, f.Metadata)
	if err != nil {
		return fmt.Errorf("update geofence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return usecases.ErrNotFound
	}
	return nil
}

const fenceColumns = `id, slug, fleet_id, name, kind, boundary, COALESCE(color, ''), active, COALESCE(metadata, '{}'), created_at, updated_at`

func scanFence(row pgx.Row) (*domain.Geofence, error) {
	var f domain.Geofence
	var boundary []byte
	err := row.Scan(&f.ID, &f.Slug, &f.FleetID, &f.Name, &f.Kind,
		&boundary, &f.Color, &f.Active, &f.Metadata, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, usecases.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(boundary, &f.Boundary); err != nil {
		return nil, fmt.Errorf("decode boundary: %w", err)
	}
	return &f, nil
}

// GetByID returns a geofence by UUID.
func (r *GeofenceRepo) GetByID(ctx context.Context, id string) (*domain.Geofence, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+fenceColumns+` FROM geofences WHERE id = $1`, id)
	return scanFence(row)
}

// GetBySlug returns a geofence by fleet-scoped slug.
func (r *GeofenceRepo) GetBySlug(ctx context.Context, fleetID, slug string) (*domain.Geofence, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+fenceColumns+` FROM geofences WHERE fleet_id = $1 AND slug = $2`, fleetID, slug)
	return scanFence(row)
}

func (r *GeofenceRepo) list(ctx context.Context, query string, args ...any) ([]domain.Geofence, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fences []domain.Geofence
	for rows.Next() {
		f, err := scanFence(rows)
		if err != nil {
			return nil, err
		}
		fences = append(fences, *f)
	}
	return fences, rows.Err()
}

// ListByFleet returns every geofence of a fleet, active or not.
func (r *GeofenceRepo) ListByFleet(ctx context.Context, fleetID string) ([]domain.Geofence, error) {
	return r.list(ctx,
		`SELECT `+fenceColumns+` FROM geofences WHERE fleet_id = $1 ORDER BY name`, fleetID)
}

// ListActiveByFleet returns the active geofences of a fleet.
func (r *GeofenceRepo) ListActiveByFleet(ctx context.Context, fleetID string) ([]domain.Geofence, error) {
	return r.list(ctx,
		`SELECT `+fenceColumns+` FROM geofences WHERE fleet_id = $1 AND active ORDER BY name`, fleetID)
}

// Delete removes a geofence.
func (r *GeofenceRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM geofences WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete geofence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return usecases.ErrNotFound
	}
	return nil
}
