// Package events defines the engine events published on the internal bus.
package events

import "time"

// ProviderDegradedEvent signals that an external capability fell back to its
// conservative default (UTC timezone, empty holiday set, internal routing).
type ProviderDegradedEvent struct {
	Capability string // "timezone", "holiday", "routing"
	Provider   string
	Err        error
}

// PlacementEvent is emitted for every appointment placed on an itinerary.
type PlacementEvent struct {
	AppointmentID string
	Start         time.Time
	End           time.Time
	Confidence    float64
}

// UnscheduledEvent is emitted for every appointment that could not be placed.
type UnscheduledEvent struct {
	AppointmentID string
	Reason        string
}

// RouteFallbackEvent signals that an external route optimizer errored and the
// internal nearest-neighbor heuristic was used instead.
type RouteFallbackEvent struct {
	Provider string
	Err      error
}
