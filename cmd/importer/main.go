package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arkaitzh/fleetfence/internal/core/domain"
	"github.com/arkaitzh/fleetfence/internal/pkg/config"
	"github.com/arkaitzh/fleetfence/internal/pkg/geo"
)

// ---------------------------------------------------------------------------
// GeoJSON types (only what the importer needs)
// ---------------------------------------------------------------------------

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   Geometry       `json:"geometry"`
}

type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	if len(os.Args) < 3 {
		log.Fatal("usage: importer <fleet-id> <file.geojson> [kind]")
	}
	fleetID := os.Args[1]
	path := os.Args[2]
	kind := domain.FenceAllowed
	if len(os.Args) > 3 {
		kind = domain.FenceKind(os.Args[3])
		if kind != domain.FenceAllowed && kind != domain.FenceRestricted {
			log.Fatalf("kind must be 'allowed' or 'restricted', got %q", kind)
		}
	}

	cfg, err := config.Load("fleetfence-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}

	var fc FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		log.Fatalf("parse geojson: %v", err)
	}
	if fc.Type != "FeatureCollection" {
		log.Fatalf("expected FeatureCollection, got %q", fc.Type)
	}

	log.Printf("FleetFence Importer — %d features from %s", len(fc.Features), path)

	imported, skipped := 0, 0
	for i, feature := range fc.Features {
		if err := importFeature(ctx, pool, fleetID, kind, i, feature); err != nil {
			log.Printf("SKIP feature %d: %v", i, err)
			skipped++
			continue
		}
		imported++
	}

	log.Printf("import complete: %d imported, %d skipped", imported, skipped)
}

// ---------------------------------------------------------------------------
// Per-feature import
// ---------------------------------------------------------------------------

func importFeature(ctx context.Context, pool *pgxpool.Pool, fleetID string, kind domain.FenceKind, index int, f Feature) error {
	boundary, err := outerRing(f.Geometry)
	if err != nil {
		return err
	}

	// Run the same engine as the API save path. Blocked features are skipped,
	// open rings are closed.
	res := geo.ValidateBoundary(boundary)
	if !res.Valid {
		return fmt.Errorf("invalid boundary: %s", res.Errors[0].Message)
	}
	for _, w := range res.Warnings {
		if w.Code == geo.CodeAutoClose {
			boundary = geo.AutoClose(boundary)
		}
		if w.Code == geo.CodeSelfIntersection {
			log.Printf("WARNING feature %d: polygon edges intersect themselves", index)
		}
	}

	name := propString(f.Properties, "name")
	if name == "" {
		name = fmt.Sprintf("Imported zone %d", index+1)
	}
	slug := propString(f.Properties, "slug")
	if slug == "" {
		slug = slugify(name)
	}
	if k := propString(f.Properties, "kind"); k == "allowed" || k == "restricted" {
		kind = domain.FenceKind(k)
	}
	color := propString(f.Properties, "color")

	encoded, err := json.Marshal(boundary)
	if err != nil {
		return fmt.Errorf("encode boundary: %w", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO geofences (slug, fleet_id, name, kind, boundary, area, color, active, metadata)
		VALUES ($1, $2, $3, $4, $5, ST_GeogFromText($6), $7, true, $8)
		ON CONFLICT (fleet_id, slug) DO UPDATE SET
			name = EXCLUDED.name, kind = EXCLUDED.kind, boundary = EXCLUDED.boundary,
			area = EXCLUDED.area, color = EXCLUDED.color, updated_at = now()
	`, slug, fleetID, name, kind, encoded, polygonWKT(boundary), color,
		map[string]any{"source": "geojson-import"})
	if err != nil {
		return fmt.Errorf("upsert: %w", err)
	}

	log.Printf("OK  %s (%d points)", slug, len(boundary))
	return nil
}

// outerRing extracts the outer ring of a GeoJSON Polygon as a boundary.
// GeoJSON positions are [lon, lat]; holes are dropped.
func outerRing(g Geometry) (domain.Boundary, error) {
	if g.Type != "Polygon" {
		return nil, fmt.Errorf("unsupported geometry %q (only Polygon)", g.Type)
	}

	var rings [][][2]float64
	if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
		return nil, fmt.Errorf("parse coordinates: %w", err)
	}
	if len(rings) == 0 {
		return nil, fmt.Errorf("polygon has no rings")
	}

	boundary := make(domain.Boundary, 0, len(rings[0]))
	for _, pos := range rings[0] {
		boundary = append(boundary, domain.GeoPoint{Lat: pos[1], Lon: pos[0]})
	}
	return boundary, nil
}

func polygonWKT(b domain.Boundary) string {
	ring := b
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(append(domain.Boundary{}, ring...), ring[0])
	}
	parts := make([]string, 0, len(ring))
	for _, p := range ring {
		parts = append(parts, fmt.Sprintf("%f %f", p.Lon, p.Lat))
	}
	return fmt.Sprintf("POLYGON((%s))", strings.Join(parts, ","))
}

func propString(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return '-'
		default:
			return -1
		}
	}, s)
	return strings.Trim(s, "-")
}
