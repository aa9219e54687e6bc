// Package metrics defines the observability records emitted by the engine
// and the sink interfaces that receive them.
package metrics

import "time"

// ScheduleRunRecord summarizes one composer run.
type ScheduleRunRecord struct {
	ItineraryID        string
	Requested          int
	Placed             int
	Unscheduled        int
	TotalTravelTime    time.Duration
	UtilizationRate    float64
	AverageConfidence  float64
	HolidaysConsidered int
	Degraded           []string
	Duration           time.Duration
	Time               time.Time
}

// ProviderCallRecord captures one call to an external provider.
type ProviderCallRecord struct {
	Capability string // "holiday", "timezone", "routing"
	Provider   string
	Success    bool
	Latency    time.Duration
	Time       time.Time
}

// ConflictRecord captures one conflict analysis outcome.
type ConflictRecord struct {
	Conflicts int
	Time      time.Time
}

// Sink records schedule runs for observability purposes.
type Sink interface {
	RecordScheduleRun(rec ScheduleRunRecord) error
}

// ProviderCallRecorder records provider call outcomes.
type ProviderCallRecorder interface {
	RecordProviderCall(rec ProviderCallRecord) error
}

// ConflictRecorder records conflict analysis outcomes.
type ConflictRecorder interface {
	RecordConflicts(rec ConflictRecord) error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordScheduleRun(ScheduleRunRecord) error   { return nil }
func (NopSink) RecordProviderCall(ProviderCallRecord) error { return nil }
func (NopSink) RecordConflicts(ConflictRecord) error        { return nil }

// Record sends rec to sink if it is non-nil. Engine components hold an
// optional sink; this keeps call sites nil-safe.
func Record(sink Sink, rec ScheduleRunRecord) {
	if sink != nil {
		_ = sink.RecordScheduleRun(rec)
	}
}
