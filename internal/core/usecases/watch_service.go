package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arkaitzh/fleetfence/internal/core/domain"
	"github.com/arkaitzh/fleetfence/internal/core/ports"
	"github.com/arkaitzh/fleetfence/internal/pkg/geo"
)

// fenceCacheTTL bounds how stale the in-memory fence snapshot of a fleet may
// get before the next position forces a reload.
const fenceCacheTTL = 30 * time.Second

// WatchService evaluates live device positions against active geofences and
// turns boundary crossings into fence events. It keeps a per-device set of
// fences the device is currently inside, so every crossing is emitted exactly
// once.
type WatchService struct {
	fences    ports.GeofenceRepository
	events    ports.FenceEventRepository
	positions ports.DevicePositionRepository
	pub       ports.EventPublisher

	// OnBreach, when set, is called for every enter into a restricted fence
	// (after the event is persisted). The alerter wires this to a Temporal
	// workflow start.
	OnBreach func(ctx context.Context, event *domain.FenceEvent)

	mu         sync.Mutex
	inside     map[string]map[string]time.Time // deviceID -> geofenceID -> entered at
	fleetCache map[string]fleetFences
}

type fleetFences struct {
	fences   []domain.Geofence
	loadedAt time.Time
}

// NewWatchService creates a new WatchService.
func NewWatchService(fences ports.GeofenceRepository, events ports.FenceEventRepository, positions ports.DevicePositionRepository, pub ports.EventPublisher) *WatchService {
	return &WatchService{
		fences:     fences,
		events:     events,
		positions:  positions,
		pub:        pub,
		inside:     make(map[string]map[string]time.Time),
		fleetCache: make(map[string]fleetFences),
	}
}

// HandlePosition processes one position reading: persists it, evaluates it
// against the fleet's active fences, and emits enter/exit events for every
// boundary crossing since the previous reading.
func (s *WatchService) HandlePosition(ctx context.Context, pos *domain.DevicePosition) error {
	if s.positions != nil {
		if err := s.positions.Insert(ctx, pos); err != nil {
			slog.Warn("position insert failed", "device", pos.DeviceID, "error", err)
		}
	}

	fences, err := s.activeFences(ctx, pos.FleetID)
	if err != nil {
		return fmt.Errorf("load fences for fleet %s: %w", pos.FleetID, err)
	}

	now := make(map[string]*domain.Geofence, len(fences))
	for i := range fences {
		fence := &fences[i]
		if geo.Contains(fence.Boundary, pos.Location) {
			now[fence.ID] = fence
		}
	}

	s.mu.Lock()
	prev := s.inside[pos.DeviceID]
	if prev == nil {
		prev = make(map[string]time.Time)
	}
	next := make(map[string]time.Time, len(now))

	var entered []*domain.Geofence
	var exited []exitedFence
	for id, fence := range now {
		if at, ok := prev[id]; ok {
			next[id] = at
		} else {
			next[id] = pos.Time
			entered = append(entered, fence)
		}
	}
	for id, at := range prev {
		if _, still := now[id]; !still {
			exited = append(exited, exitedFence{id: id, enteredAt: at})
		}
	}
	s.inside[pos.DeviceID] = next
	s.mu.Unlock()

	for _, fence := range entered {
		event := &domain.FenceEvent{
			Time:       pos.Time,
			DeviceID:   pos.DeviceID,
			GeofenceID: fence.ID,
			Type:       domain.FenceEnter,
			Location:   pos.Location,
		}
		s.emit(ctx, event)
		if fence.Kind == domain.FenceRestricted && s.OnBreach != nil {
			s.OnBreach(ctx, event)
		}
	}
	for _, ex := range exited {
		event := &domain.FenceEvent{
			Time:         pos.Time,
			DeviceID:     pos.DeviceID,
			GeofenceID:   ex.id,
			Type:         domain.FenceExit,
			Location:     pos.Location,
			DwellSeconds: int(pos.Time.Sub(ex.enteredAt).Seconds()),
		}
		s.emit(ctx, event)
	}
	return nil
}

type exitedFence struct {
	id        string
	enteredAt time.Time
}

func (s *WatchService) emit(ctx context.Context, event *domain.FenceEvent) {
	if s.events != nil {
		if err := s.events.Insert(ctx, event); err != nil {
			slog.Error("fence event insert failed", "device", event.DeviceID, "fence", event.GeofenceID, "error", err)
		}
	}
	if s.pub != nil {
		if err := s.pub.PublishFenceEvent(ctx, event); err != nil {
			slog.Warn("fence event publish failed", "device", event.DeviceID, "error", err)
		}
	}
}

// InvalidateFleet drops the cached fence snapshot of a fleet. Called when a
// geofence-updated event arrives.
func (s *WatchService) InvalidateFleet(fleetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fleetID == "" {
		s.fleetCache = make(map[string]fleetFences)
		return
	}
	delete(s.fleetCache, fleetID)
}

func (s *WatchService) activeFences(ctx context.Context, fleetID string) ([]domain.Geofence, error) {
	s.mu.Lock()
	cached, ok := s.fleetCache[fleetID]
	s.mu.Unlock()
	if ok && time.Since(cached.loadedAt) < fenceCacheTTL {
		return cached.fences, nil
	}

	fences, err := s.fences.ListActiveByFleet(ctx, fleetID)
	if err != nil {
		if ok {
			// Serve the stale snapshot rather than dropping the reading.
			return cached.fences, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.fleetCache[fleetID] = fleetFences{fences: fences, loadedAt: time.Now()}
	s.mu.Unlock()
	return fences, nil
}
