package metrics

import (
	"errors"

	coremetrics "github.com/kilianp07/fieldsched/core/metrics"
)

// MultiSink fans every record out to all child sinks. A failing child does
// not stop delivery to the others; the errors are joined.
type MultiSink struct {
	sinks []coremetrics.Sink
}

// NewMultiSink combines sinks. Nil entries are skipped.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// RecordScheduleRun implements coremetrics.Sink.
func (m *MultiSink) RecordScheduleRun(rec coremetrics.ScheduleRunRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordScheduleRun(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordProviderCall forwards to every child that records provider calls.
func (m *MultiSink) RecordProviderCall(rec coremetrics.ProviderCallRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if r, ok := s.(coremetrics.ProviderCallRecorder); ok {
			if err := r.RecordProviderCall(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordConflicts forwards to every child that records conflict outcomes.
func (m *MultiSink) RecordConflicts(rec coremetrics.ConflictRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if r, ok := s.(coremetrics.ConflictRecorder); ok {
			if err := r.RecordConflicts(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
