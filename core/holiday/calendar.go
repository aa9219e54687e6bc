// Package holiday answers which dates are business holidays. Provider
// failures fail open: a date that cannot be checked is treated as a working
// day, surfaced as a warning and a degraded flag rather than an error.
package holiday

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kilianp07/fieldsched/core/events"
	"github.com/kilianp07/fieldsched/core/logger"
	"github.com/kilianp07/fieldsched/core/model"
	"github.com/kilianp07/fieldsched/internal/eventbus"
)

// ErrProviderUnavailable is returned when a holiday lookup fails after all
// retries.
var ErrProviderUnavailable = errors.New("holiday provider unavailable")

// Query selects the holiday set to fetch.
type Query struct {
	Year    int
	Country string // ISO 3166-1 alpha-2
	State   string // optional region for local holidays
	// IncludeObservances widens the result beyond business-affecting
	// holidays.
	IncludeObservances bool
}

// Calendar fetches holidays for a country and year.
type Calendar interface {
	Holidays(ctx context.Context, q Query) ([]model.Holiday, error)
	// Name identifies the calendar implementation.
	Name() string
}

// RangeResult carries holidays intersecting a date range plus the degraded
// flag set when the provider failed and the empty fail-open set was used.
type RangeResult struct {
	Holidays []model.Holiday
	Degraded bool
}

// Service wraps a Calendar with the fail-open policy and per-query caching
// for its lifetime: each (year, country, state, observances) shape is
// fetched from the provider at most once, however many days a scheduling
// run checks.
type Service struct {
	cal Calendar
	log logger.Logger
	bus eventbus.EventBus

	mu    sync.Mutex
	cache map[Query][]model.Holiday
}

// NewService creates a Service. The bus is optional.
func NewService(cal Calendar, log logger.Logger, bus eventbus.EventBus) *Service {
	return &Service{cal: cal, log: log, bus: bus, cache: map[Query][]model.Holiday{}}
}

// holidays answers q from the cache, fetching on a miss. Failures are not
// cached; a recovering provider is retried on the next lookup.
func (s *Service) holidays(ctx context.Context, q Query) ([]model.Holiday, error) {
	s.mu.Lock()
	hs, ok := s.cache[q]
	s.mu.Unlock()
	if ok {
		return hs, nil
	}
	hs, err := s.cal.Holidays(ctx, q)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[q] = hs
	s.mu.Unlock()
	return hs, nil
}

// IsHoliday reports whether the civil date of t is a blocking holiday.
// Business-affecting holidays always block; observances block only when
// q.IncludeObservances explicitly asked for them. q.Year is taken from t.
// A provider failure yields false: only known holidays may block
// scheduling, and an unreachable provider must not.
func (s *Service) IsHoliday(ctx context.Context, t time.Time, q Query) (bool, error) {
	q.Year = t.Year()
	hs, err := s.holidays(ctx, q)
	if err != nil {
		s.warnDegraded(err)
		return false, nil
	}
	for _, h := range hs {
		if !h.SameDate(t) {
			continue
		}
		if h.AffectsBusiness || q.IncludeObservances {
			return true, nil
		}
	}
	return false, nil
}

// InRange returns the business-affecting holidays whose date falls inside
// [rng.Start, rng.End]. On provider failure the set is empty and Degraded is
// set.
func (s *Service) InRange(ctx context.Context, rng model.TimeWindow, country, state string) RangeResult {
	var out []model.Holiday
	for year := rng.Start.Year(); year <= rng.End.Year(); year++ {
		hs, err := s.holidays(ctx, Query{Year: year, Country: country, State: state})
		if err != nil {
			s.warnDegraded(err)
			return RangeResult{Degraded: true}
		}
		first, last := civilDate(rng.Start), civilDate(rng.End)
		for _, h := range hs {
			if !h.AffectsBusiness {
				continue
			}
			d := civilDate(h.Date)
			if d.Before(first) || d.After(last) {
				continue
			}
			out = append(out, h)
		}
	}
	return RangeResult{Holidays: out}
}

func (s *Service) warnDegraded(err error) {
	s.log.Warnf("holiday lookup failed, treating as no holidays: %v", err)
	eventbus.Publish(s.bus, events.ProviderDegradedEvent{
		Capability: "holiday", Provider: s.cal.Name(), Err: err,
	})
}

// civilDate strips the time of day, normalizing to midnight UTC so dates from
// different zones compare by calendar day.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
