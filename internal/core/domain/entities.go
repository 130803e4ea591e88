package domain

import (
	"time"
)

// FenceKind classifies how a geofence is enforced for a fleet.
type FenceKind string

const (
	// FenceAllowed marks a zone devices are expected to stay inside.
	FenceAllowed FenceKind = "allowed"
	// FenceRestricted marks a zone devices must not enter.
	FenceRestricted FenceKind = "restricted"
)

// Geofence is a named polygon boundary attached to a fleet.
type Geofence struct {
	ID        string         `json:"id"`
	Slug      string         `json:"slug"`
	FleetID   string         `json:"fleet_id"`
	Name      string         `json:"name"`
	Kind      FenceKind      `json:"kind"`
	Boundary  Boundary       `json:"boundary"`
	Color     string         `json:"color,omitempty"`
	Active    bool           `json:"active"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// DevicePosition is a real-time device location reading.
type DevicePosition struct {
	Time     time.Time      `json:"time"`
	DeviceID string         `json:"device_id"`
	FleetID  string         `json:"fleet_id"`
	Location GeoPoint       `json:"location"`
	Bearing  float64        `json:"bearing"`
	Speed    float64        `json:"speed"` // m/s
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FenceEventType is the direction of a fence boundary crossing.
type FenceEventType string

const (
	FenceEnter FenceEventType = "enter"
	FenceExit  FenceEventType = "exit"
)

// FenceEvent records a device crossing a geofence boundary.
type FenceEvent struct {
	ID           string         `json:"id"`
	Time         time.Time      `json:"time"`
	DeviceID     string         `json:"device_id"`
	GeofenceID   string         `json:"geofence_id"`
	Type         FenceEventType `json:"type"`
	Location     GeoPoint       `json:"location"`
	DwellSeconds int            `json:"dwell_seconds,omitempty"` // populated on exit
	Alerted      bool           `json:"alerted"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
