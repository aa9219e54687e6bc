package model

import (
	"fmt"
	"time"
)

// Constraints restricts when an appointment may take place.
type Constraints struct {
	EarliestStart   *time.Time   `json:"earliest_start,omitempty"`
	LatestEnd       *time.Time   `json:"latest_end,omitempty"`
	BlackoutPeriods []TimeWindow `json:"blackout_periods,omitempty"`
}

// AppointmentRequest describes one inspection to be placed on the calendar.
type AppointmentRequest struct {
	ID              string       `json:"id"`
	Location        Location     `json:"location"`
	DurationMinutes int          `json:"duration_minutes"`
	Priority        int          `json:"priority"` // 1-10, higher is more important
	PreferredHours  []HourRange  `json:"preferred_hours,omitempty"`
	Constraints     *Constraints `json:"constraints,omitempty"`
}

// Validate checks the request before any computation happens.
func (r AppointmentRequest) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("appointment id is required")
	}
	if err := r.Location.Validate(); err != nil {
		return fmt.Errorf("appointment %s: %w", r.ID, err)
	}
	if r.DurationMinutes <= 0 {
		return fmt.Errorf("appointment %s: duration must be positive", r.ID)
	}
	if r.Priority < 1 || r.Priority > 10 {
		return fmt.Errorf("appointment %s: priority %d out of range [1,10]", r.ID, r.Priority)
	}
	if r.Constraints != nil {
		for _, b := range r.Constraints.BlackoutPeriods {
			if err := b.Validate(); err != nil {
				return fmt.Errorf("appointment %s: blackout: %w", r.ID, err)
			}
		}
	}
	return nil
}

// Duration returns the service duration.
func (r AppointmentRequest) Duration() time.Duration {
	return time.Duration(r.DurationMinutes) * time.Minute
}

// AppointmentSlot is a candidate window at a location. End minus Start always
// equals the requested duration.
type AppointmentSlot struct {
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	Available         bool      `json:"available"`
	Confidence        float64   `json:"confidence"` // 0-1
	UnavailableReason string    `json:"unavailable_reason,omitempty"`
}

// Window returns the slot interval as a TimeWindow.
func (s AppointmentSlot) Window() TimeWindow { return TimeWindow{Start: s.Start, End: s.End} }

// ScheduledAppointment is one placed stop of an itinerary. It is owned
// exclusively by the itinerary that produced it.
type ScheduledAppointment struct {
	AppointmentID string          `json:"appointment_id"`
	Slot          AppointmentSlot `json:"slot"`
	TravelTime    time.Duration   `json:"travel_time"`
	Confidence    float64         `json:"confidence"`
}

// UnscheduledAppointment reports an appointment that could not be placed.
type UnscheduledAppointment struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

// Metrics aggregates quality measures for one itinerary.
type Metrics struct {
	TotalTravelTime    time.Duration `json:"total_travel_time"`
	UtilizationRate    float64       `json:"utilization_rate"`
	AverageConfidence  float64       `json:"average_confidence"`
	HolidaysConsidered int           `json:"holidays_considered"`
}

// Itinerary is the chronologically ordered schedule produced for one agent.
// All entities are per-run values; the engine keeps no durable state.
type Itinerary struct {
	ID          string                   `json:"id"`
	Schedule    []ScheduledAppointment   `json:"schedule"`
	Unscheduled []UnscheduledAppointment `json:"unscheduled,omitempty"`
	Metrics     Metrics                  `json:"metrics"`
	// Degraded lists capabilities that fell back to a conservative default
	// during the run (e.g. "timezone", "holiday").
	Degraded []string `json:"degraded,omitempty"`
}

// AppointmentStatus is the lifecycle state of a persisted appointment.
type AppointmentStatus string

const (
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusPending   AppointmentStatus = "pending"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// ExistingAppointment is a read-only view of an agent's stored appointment,
// supplied by the caller for conflict analysis.
type ExistingAppointment struct {
	ID       string            `json:"id"`
	Window   TimeWindow        `json:"window"`
	Location Location          `json:"location"`
	Status   AppointmentStatus `json:"status"`
}

// Blocks reports whether the appointment occupies the agent's calendar.
// Completed and cancelled entries do not.
func (a ExistingAppointment) Blocks() bool {
	return a.Status == StatusConfirmed || a.Status == StatusPending
}

// AgentConstraints captures the scheduling limits of one field agent.
type AgentConstraints struct {
	WorkingHours          WorkingHours
	TimeZone              string // IANA zone id, e.g. "America/Chicago"
	MaxAppointmentsPerDay int
}
