// Package slot enumerates candidate appointment windows for a location,
// filtering weekends, holidays and caller constraints.
package slot

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/fieldsched/core/holiday"
	"github.com/kilianp07/fieldsched/core/logger"
	"github.com/kilianp07/fieldsched/core/model"
	"github.com/kilianp07/fieldsched/core/timezone"
)

// Config defines the slot enumeration parameters.
type Config struct {
	DayStart    model.ClockTime // local start of the inspection day
	DayEnd      model.ClockTime // local end of the inspection day
	Granularity time.Duration   // step between candidate starts
	Country     string          // holiday country code
	State       string          // optional holiday region
	// IncludeObservances also blocks days carrying non-business
	// observances. Off by default: only hard holidays skip a day.
	IncludeObservances bool
}

// SetDefaults applies the standard 09:00-17:00 working day with 30-minute
// candidates in the US.
func (c *Config) SetDefaults() {
	zero := model.ClockTime{}
	if c.DayStart == zero && c.DayEnd == zero {
		c.DayStart = model.ClockTime{Hour: 9}
		c.DayEnd = model.ClockTime{Hour: 17}
	}
	if c.Granularity <= 0 {
		c.Granularity = 30 * time.Minute
	}
	if c.Country == "" {
		c.Country = "US"
	}
}

// Validate checks the configured day window.
func (c Config) Validate() error {
	if c.DayEnd.Minutes() <= c.DayStart.Minutes() {
		return fmt.Errorf("day end %s must be after day start %s", c.DayEnd, c.DayStart)
	}
	if c.Granularity <= 0 {
		return fmt.Errorf("granularity must be positive")
	}
	return nil
}

// SlotSet is the result of one enumeration: chronologically sorted candidate
// slots plus availability counts.
type SlotSet struct {
	Slots     []model.AppointmentSlot
	Total     int
	Available int
	// Zone is the location's resolved timezone, the one the slots were
	// generated in. Callers reuse it instead of resolving again.
	Zone *time.Location
	// Degraded is set when the timezone lookup fell back to UTC.
	Degraded bool
}

// Generator enumerates appointment slots.
type Generator struct {
	cfg      Config
	tz       *timezone.Service
	holidays *holiday.Service
	log      logger.Logger
}

// New creates a Generator.
func New(cfg Config, tz *timezone.Service, holidays *holiday.Service, log logger.Logger) (*Generator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{cfg: cfg, tz: tz, holidays: holidays, log: log}, nil
}

// WithDay returns a copy of the generator using the given working day
// instead of the configured one. The copy shares the providers.
func (g *Generator) WithDay(day model.WorkingHours) (*Generator, error) {
	ng := *g
	ng.cfg.DayStart = day.Start
	ng.cfg.DayEnd = day.End
	if err := ng.cfg.Validate(); err != nil {
		return nil, err
	}
	return &ng, nil
}

// Generate enumerates candidate slots of the given duration within the date
// range, in the location's local timezone. Saturdays, Sundays and
// business-affecting holidays produce no slots at all; constraint violations
// produce slots marked unavailable. Slot instants are UTC-normalized.
func (g *Generator) Generate(ctx context.Context, loc model.Location, duration time.Duration, rng model.TimeWindow, cons *model.Constraints) (SlotSet, error) {
	if err := loc.Validate(); err != nil {
		return SlotSet{}, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	if duration <= 0 {
		return SlotSet{}, fmt.Errorf("%w: duration must be positive", model.ErrInvalidInput)
	}
	if err := rng.Validate(); err != nil {
		return SlotSet{}, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}

	local, tzRes := g.tz.Location(ctx, loc.Lat, loc.Lng)
	set := SlotSet{Zone: local, Degraded: tzRes.Degraded}

	first := rng.Start.In(local)
	last := rng.End.In(local)

	for day := startOfDay(first); !day.After(last); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		isHol, err := g.holidays.IsHoliday(ctx, day, holiday.Query{
			Country:            g.cfg.Country,
			State:              g.cfg.State,
			IncludeObservances: g.cfg.IncludeObservances,
		})
		if err != nil {
			return SlotSet{}, err
		}
		if isHol {
			g.log.Debugf("skipping holiday %s", day.Format("2006-01-02"))
			continue
		}

		dayEnd := g.cfg.DayEnd.On(day)
		for cur := g.cfg.DayStart.On(day); !cur.Add(duration).After(dayEnd); cur = cur.Add(g.cfg.Granularity) {
			slotEnd := cur.Add(duration)
			if cur.Before(rng.Start) || slotEnd.After(rng.End) {
				continue
			}
			s := model.AppointmentSlot{
				Start:      cur.UTC(),
				End:        slotEnd.UTC(),
				Available:  true,
				Confidence: timeOfDayConfidence(cur.Hour()),
			}
			if reason := unavailableReason(model.TimeWindow{Start: cur, End: slotEnd}, cons); reason != "" {
				s.Available = false
				s.UnavailableReason = reason
			}
			set.Slots = append(set.Slots, s)
		}
	}

	set.Total = len(set.Slots)
	for _, s := range set.Slots {
		if s.Available {
			set.Available++
		}
	}
	return set, nil
}

// unavailableReason checks the slot window against the request constraints
// and returns a non-empty reason when the slot cannot be used.
func unavailableReason(w model.TimeWindow, cons *model.Constraints) string {
	if cons == nil {
		return ""
	}
	if cons.EarliestStart != nil && w.Start.Before(*cons.EarliestStart) {
		return "before earliest allowed start"
	}
	if cons.LatestEnd != nil && w.End.After(*cons.LatestEnd) {
		return "after latest allowed end"
	}
	for _, b := range cons.BlackoutPeriods {
		if w.Overlaps(b) {
			return "overlaps blackout period"
		}
	}
	return ""
}

// timeOfDayConfidence models adjuster preference for mid-morning and early
// afternoon visits. The curve is part of the engine contract: identical
// inputs must yield identical slot scores.
func timeOfDayConfidence(hour int) float64 {
	switch {
	case hour >= 9 && hour <= 11:
		return 0.9
	case hour >= 13 && hour <= 15:
		return 0.9
	case hour >= 8 && hour <= 17:
		return 0.7
	default:
		return 0.3
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
