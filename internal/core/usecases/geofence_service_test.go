package usecases_test

import (
	"context"
	"testing"

	"github.com/arkaitzh/fleetfence/internal/core/domain"
	"github.com/arkaitzh/fleetfence/internal/core/usecases"
	"github.com/arkaitzh/fleetfence/internal/pkg/geo"
)

// --- Mock GeofenceRepository ---

type mockFenceRepo struct {
	createFn     func(ctx context.Context, fence *domain.Geofence) error
	updateFn     func(ctx context.Context, fence *domain.Geofence) error
	getByIDFn    func(ctx context.Context, id string) (*domain.Geofence, error)
	listByFleet  func(ctx context.Context, fleetID string) ([]domain.Geofence, error)
	listActiveFn func(ctx context.Context, fleetID string) ([]domain.Geofence, error)
	deleteFn     func(ctx context.Context, id string) error
}

func (m *mockFenceRepo) Create(ctx context.Context, fence *domain.Geofence) error {
	if m.createFn != nil {
		return m.createFn(ctx, fence)
	}
	return nil
}

func (m *mockFenceRepo) Update(ctx context.Context, fence *domain.Geofence) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, fence)
	}
	return nil
}

func (m *mockFenceRepo) GetByID(ctx context.Context, id string) (*domain.Geofence, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, usecases.ErrNotFound
}

func (m *mockFenceRepo) GetBySlug(ctx context.Context, fleetID, slug string) (*domain.Geofence, error) {
	return nil, usecases.ErrNotFound
}

func (m *mockFenceRepo) ListByFleet(ctx context.Context, fleetID string) ([]domain.Geofence, error) {
	if m.listByFleet != nil {
		return m.listByFleet(ctx, fleetID)
	}
	return nil, nil
}

func (m *mockFenceRepo) ListActiveByFleet(ctx context.Context, fleetID string) ([]domain.Geofence, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, fleetID)
	}
	return nil, nil
}

func (m *mockFenceRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- Tests ---

func TestGeofenceService_Create_AutoClosesBoundary(t *testing.T) {
	var saved *domain.Geofence
	repo := &mockFenceRepo{
		createFn: func(ctx context.Context, fence *domain.Geofence) error {
			saved = fence
			return nil
		},
	}

	svc := usecases.NewGeofenceService(repo, nil, nil)
	fence := &domain.Geofence{
		FleetID:  "fleet-1",
		Name:     "Depot",
		Boundary: triangle(),
	}

	res, err := svc.Create(context.Background(), fence)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected valid result, got %+v", res.Errors)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Code != geo.CodeAutoClose {
		t.Fatalf("expected AUTO_CLOSE warning, got %+v", res.Warnings)
	}
	if saved == nil {
		t.Fatal("repo was not called")
	}
	if len(saved.Boundary) != 4 || saved.Boundary[0] != saved.Boundary[3] {
		t.Errorf("boundary should be auto-closed before persisting, got %v", saved.Boundary)
	}
}

func TestGeofenceService_Create_RejectsInvalidBoundary(t *testing.T) {
	called := false
	repo := &mockFenceRepo{
		createFn: func(ctx context.Context, fence *domain.Geofence) error {
			called = true
			return nil
		},
	}

	svc := usecases.NewGeofenceService(repo, nil, nil)
	fence := &domain.Geofence{
		FleetID:  "fleet-1",
		Boundary: domain.Boundary{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}},
	}

	_, err := svc.Create(context.Background(), fence)
	if err == nil {
		t.Fatal("expected validation error")
	}
	ib, ok := usecases.AsInvalidBoundary(err)
	if !ok {
		t.Fatalf("expected ErrInvalidBoundary, got %T", err)
	}
	if len(ib.Result.Errors) != 1 || ib.Result.Errors[0].Code != geo.CodeMinPoints {
		t.Errorf("expected MIN_POINTS, got %+v", ib.Result.Errors)
	}
	if called {
		t.Error("repo must not be called for an invalid boundary")
	}
}

func TestGeofenceService_Create_KeepsClosedBoundary(t *testing.T) {
	var saved *domain.Geofence
	repo := &mockFenceRepo{
		createFn: func(ctx context.Context, fence *domain.Geofence) error {
			saved = fence
			return nil
		},
	}

	closed := domain.Boundary{
		{Lat: 0, Lon: 0}, {Lat: 0, Lon: 2}, {Lat: 2, Lon: 2}, {Lat: 2, Lon: 0}, {Lat: 0, Lon: 0},
	}
	svc := usecases.NewGeofenceService(repo, nil, nil)
	res, err := svc.Create(context.Background(), &domain.Geofence{FleetID: "f", Boundary: closed})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("closed square should carry no warnings, got %+v", res.Warnings)
	}
	if len(saved.Boundary) != 5 {
		t.Errorf("already-closed boundary must pass through unchanged, got %d points", len(saved.Boundary))
	}
}

func TestGeofenceService_Update_AllowsSelfIntersectionWarning(t *testing.T) {
	repo := &mockFenceRepo{}
	svc := usecases.NewGeofenceService(repo, nil, nil)

	bowtie := domain.Boundary{
		{Lat: 0, Lon: 0}, {Lat: 2, Lon: 2}, {Lat: 2, Lon: 0}, {Lat: 0, Lon: 2}, {Lat: 0, Lon: 0},
	}
	res, err := svc.Update(context.Background(), &domain.Geofence{ID: "gf-1", FleetID: "f", Boundary: bowtie})
	if err != nil {
		t.Fatalf("self-intersection is advisory, save must succeed: %v", err)
	}
	found := false
	for _, w := range res.Warnings {
		if w.Code == geo.CodeSelfIntersection {
			found = true
		}
	}
	if !found {
		t.Errorf("expected SELF_INTERSECTION warning, got %+v", res.Warnings)
	}
}

func TestGeofenceService_FindNear(t *testing.T) {
	depot := domain.Geofence{
		ID:      "gf-depot",
		FleetID: "fleet-1",
		Active:  true,
		Boundary: domain.Boundary{
			{Lat: 43.26, Lon: -2.94}, {Lat: 43.26, Lon: -2.92},
			{Lat: 43.28, Lon: -2.92}, {Lat: 43.28, Lon: -2.94},
		},
	}
	faraway := domain.Geofence{
		ID:      "gf-far",
		FleetID: "fleet-1",
		Active:  true,
		Boundary: domain.Boundary{
			{Lat: 40.0, Lon: -3.7}, {Lat: 40.0, Lon: -3.6}, {Lat: 40.1, Lon: -3.6},
		},
	}
	repo := &mockFenceRepo{
		listActiveFn: func(ctx context.Context, fleetID string) ([]domain.Geofence, error) {
			return []domain.Geofence{depot, faraway}, nil
		},
	}

	svc := usecases.NewGeofenceService(repo, nil, nil)
	near, err := svc.FindNear(context.Background(), "fleet-1", 43.27, -2.93, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(near) != 1 || near[0].ID != "gf-depot" {
		t.Fatalf("expected only the depot fence, got %+v", near)
	}
}

func TestGeofenceService_FindNear_RejectsBadRadius(t *testing.T) {
	svc := usecases.NewGeofenceService(&mockFenceRepo{}, nil, nil)
	if _, err := svc.FindNear(context.Background(), "fleet-1", 0, 0, -5); err == nil {
		t.Error("expected error for negative radius")
	}
}
