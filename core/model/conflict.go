package model

// ConflictType classifies a scheduling conflict.
type ConflictType string

const (
	ConflictTimeOverlap  ConflictType = "time_overlap"
	ConflictTravelTime   ConflictType = "travel_time"
	ConflictWorkload     ConflictType = "workload"
	ConflictOutsideHours ConflictType = "outside_hours"
)

// Severity grades how disruptive a conflict is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Conflict describes one issue found between a proposed appointment and the
// agent's existing schedule or constraints.
type Conflict struct {
	Type        ConflictType `json:"type"`
	Severity    Severity     `json:"severity"`
	Description string       `json:"description"`
	Suggestion  string       `json:"suggestion"`
}
