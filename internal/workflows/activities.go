package workflows

import (
	"context"
	"fmt"
	"log"

	"github.com/arkaitzh/fleetfence/internal/core/ports"
	"github.com/arkaitzh/fleetfence/internal/pkg/geo"
)

// BreachActivities holds the activity implementations for the breach alert
// workflow.
type BreachActivities struct {
	Fences    ports.GeofenceRepository
	Events    ports.FenceEventRepository
	Positions ports.DevicePositionRepository
	Notifier  ports.NotificationService
}

// CheckStillInside re-evaluates the device's latest position against the
// fence boundary. A stale or missing position counts as "not inside" —
// better a missed alert than a false one on dead reckoning.
func (a *BreachActivities) CheckStillInside(ctx context.Context, deviceID, geofenceID string) (bool, error) {
	fence, err := a.Fences.GetByID(ctx, geofenceID)
	if err != nil {
		return false, fmt.Errorf("get geofence %s: %w", geofenceID, err)
	}
	if !fence.Active {
		return false, nil
	}

	pos, err := a.Positions.LatestByDevice(ctx, deviceID)
	if err != nil {
		return false, nil
	}

	return geo.Contains(fence.Boundary, pos.Location), nil
}

// RecordAlert marks the fence event as alerted.
func (a *BreachActivities) RecordAlert(ctx context.Context, eventID string) error {
	if err := a.Events.MarkAlerted(ctx, eventID); err != nil {
		return fmt.Errorf("mark alerted %s: %w", eventID, err)
	}
	return nil
}

// SendBreachNotification notifies the fleet operator of the breach.
func (a *BreachActivities) SendBreachNotification(ctx context.Context, fleetID, deviceID, fenceName string) error {
	if a.Notifier == nil {
		log.Printf("PUSH (no notifier) → fleet=%s device=%s fence=%s", fleetID, deviceID, fenceName)
		return nil
	}
	title := "Restricted zone breach"
	body := fmt.Sprintf("Device %s entered %s and is still inside.", deviceID, fenceName)
	return a.Notifier.SendPush(ctx, fleetID, title, body)
}

// ClearAlert rolls back the alerted mark (saga compensation / rollback).
func (a *BreachActivities) ClearAlert(ctx context.Context, eventID string) error {
	if err := a.Events.ClearAlerted(ctx, eventID); err != nil {
		return fmt.Errorf("clear alerted %s: %w", eventID, err)
	}
	log.Printf("Alert mark on event %s cleared (saga compensation)", eventID)
	return nil
}
