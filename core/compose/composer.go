// Package compose turns a batch of appointment requests into a chronological
// itinerary for one field agent. Placement is greedy: requests are ranked by
// priority with a travel tie-break, then each one takes the earliest feasible
// slot after the moving cursor.
package compose

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/fieldsched/core/events"
	"github.com/kilianp07/fieldsched/core/geo"
	"github.com/kilianp07/fieldsched/core/holiday"
	"github.com/kilianp07/fieldsched/core/logger"
	"github.com/kilianp07/fieldsched/core/metrics"
	"github.com/kilianp07/fieldsched/core/model"
	"github.com/kilianp07/fieldsched/core/slot"
	"github.com/kilianp07/fieldsched/internal/eventbus"
)

// Config tunes the composer.
type Config struct {
	// PerCallBudget bounds the wall-clock time spent per appointment; the
	// whole run is cut off at len(appointments) * PerCallBudget.
	PerCallBudget time.Duration
	// PreferredBonus is added to the confidence of a slot starting inside
	// one of the request's preferred hour ranges.
	PreferredBonus float64
	// PriorityTieGap is the maximum priority difference at which two
	// requests are considered peers and ordered by travel distance
	// instead.
	PriorityTieGap int
	Country        string
	State          string
}

// SetDefaults applies the standard budgets.
func (c *Config) SetDefaults() {
	if c.PerCallBudget <= 0 {
		c.PerCallBudget = 5 * time.Second
	}
	if c.PreferredBonus == 0 {
		c.PreferredBonus = 0.1
	}
	if c.PriorityTieGap == 0 {
		c.PriorityTieGap = 2
	}
	if c.Country == "" {
		c.Country = "US"
	}
}

// Request is one scheduling run: the agent's starting point, the
// appointments to place and the date range to place them in.
type Request struct {
	AgentLocation model.Location             `json:"agent_location"`
	Appointments  []model.AppointmentRequest `json:"appointments"`
	DateRange     model.TimeWindow           `json:"date_range"`
	// WorkingHours overrides the configured working day for this run.
	WorkingHours *model.WorkingHours `json:"working_hours,omitempty"`
}

// Validate rejects the request before any provider is called.
func (r Request) Validate() error {
	if err := r.AgentLocation.Validate(); err != nil {
		return fmt.Errorf("agent location: %w", err)
	}
	if err := r.DateRange.Validate(); err != nil {
		return fmt.Errorf("date range: %w", err)
	}
	for _, a := range r.Appointments {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Report compares an itinerary against an unoptimized baseline.
type Report struct {
	BaselineTravelTime    time.Duration `json:"baseline_travel_time"`
	TravelTimeSaved       time.Duration `json:"travel_time_saved"`
	BaselineUtilization   float64       `json:"baseline_utilization"`
	UtilizationDelta      float64       `json:"utilization_delta"`
	AppointmentsScheduled int           `json:"appointments_scheduled"`
}

// Composer builds itineraries. All collaborators are injected; the composer
// itself holds no mutable state and is safe for concurrent use.
type Composer struct {
	cfg      Config
	est      geo.Estimator
	slots    *slot.Generator
	holidays *holiday.Service
	log      logger.Logger
	bus      eventbus.EventBus
	sink     metrics.Sink
}

// New creates a Composer. The bus and sink are optional.
func New(cfg Config, est geo.Estimator, slots *slot.Generator, holidays *holiday.Service, log logger.Logger, bus eventbus.EventBus, sink metrics.Sink) *Composer {
	cfg.SetDefaults()
	return &Composer{cfg: cfg, est: est, slots: slots, holidays: holidays, log: log, bus: bus, sink: sink}
}

// Compose places the requested appointments into the date range and returns
// the resulting itinerary. Appointments that cannot be placed are reported in
// Itinerary.Unscheduled; the run only fails on invalid input or context
// cancellation. The same request always yields the same itinerary apart from
// its generated ID.
func (c *Composer) Compose(ctx context.Context, req Request) (model.Itinerary, error) {
	started := time.Now()
	if err := req.Validate(); err != nil {
		return model.Itinerary{}, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}

	budget := time.Duration(maxInt(1, len(req.Appointments))) * c.cfg.PerCallBudget
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	it := model.Itinerary{ID: uuid.NewString()}
	degraded := map[string]bool{}

	gen := c.slots
	if req.WorkingHours != nil {
		var err error
		if gen, err = c.slots.WithDay(*req.WorkingHours); err != nil {
			return model.Itinerary{}, fmt.Errorf("%w: working hours: %v", model.ErrInvalidInput, err)
		}
	}

	ordered := c.rank(req.AgentLocation, req.Appointments)

	cursor := req.DateRange.Start
	at := req.AgentLocation
	var travelTotal, serviceTotal time.Duration
	var confidences []float64

	for _, a := range ordered {
		if err := ctx.Err(); err != nil {
			return model.Itinerary{}, fmt.Errorf("scheduling run aborted: %w", err)
		}

		travel := c.est.TravelTime(at, a.Location)
		placed, why, err := c.place(ctx, gen, a, cursor, req.DateRange, degraded)
		if err != nil {
			return model.Itinerary{}, err
		}
		if placed == nil {
			it.Unscheduled = append(it.Unscheduled, model.UnscheduledAppointment{
				AppointmentID: a.ID, Reason: why,
			})
			eventbus.Publish(c.bus, events.UnscheduledEvent{AppointmentID: a.ID, Reason: why})
			c.log.Infof("appointment %s not placed: %s", a.ID, why)
			continue
		}

		placed.TravelTime = travel
		it.Schedule = append(it.Schedule, *placed)
		eventbus.Publish(c.bus, events.PlacementEvent{
			AppointmentID: a.ID,
			Start:         placed.Slot.Start,
			End:           placed.Slot.End,
			Confidence:    placed.Confidence,
		})

		travelTotal += travel
		serviceTotal += a.Duration()
		confidences = append(confidences, placed.Confidence)
		cursor = placed.Slot.End.Add(travel)
		at = a.Location
	}

	hols := c.holidays.InRange(ctx, req.DateRange, c.cfg.Country, c.cfg.State)
	if hols.Degraded {
		degraded["holiday"] = true
	}

	it.Metrics = model.Metrics{
		TotalTravelTime:    travelTotal,
		UtilizationRate:    utilization(serviceTotal, travelTotal),
		AverageConfidence:  mean(confidences),
		HolidaysConsidered: len(hols.Holidays),
	}
	it.Degraded = flagList(degraded)

	metrics.Record(c.sink, metrics.ScheduleRunRecord{
		ItineraryID:        it.ID,
		Requested:          len(req.Appointments),
		Placed:             len(it.Schedule),
		Unscheduled:        len(it.Unscheduled),
		TotalTravelTime:    travelTotal,
		UtilizationRate:    it.Metrics.UtilizationRate,
		AverageConfidence:  it.Metrics.AverageConfidence,
		HolidaysConsidered: it.Metrics.HolidaysConsidered,
		Degraded:           it.Degraded,
		Duration:           time.Since(started),
		Time:               started,
	})
	return it, nil
}

// rank orders requests by descending priority. Requests whose priorities are
// within PriorityTieGap of each other are peers and ordered by distance from
// the agent's starting point instead, so the high-priority pass already
// favors short hops.
func (c *Composer) rank(from model.Location, reqs []model.AppointmentRequest) []model.AppointmentRequest {
	ordered := make([]model.AppointmentRequest, len(reqs))
	copy(ordered, reqs)
	dist := make(map[string]float64, len(ordered))
	for _, a := range ordered {
		dist[a.ID] = c.est.Distance(from, a.Location)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if abs(a.Priority-b.Priority) <= c.cfg.PriorityTieGap {
			return dist[a.ID] < dist[b.ID]
		}
		return a.Priority > b.Priority
	})
	return ordered
}

// place finds the earliest available slot at or after the cursor. It returns
// a nil appointment with a reason when nothing fits.
func (c *Composer) place(ctx context.Context, gen *slot.Generator, a model.AppointmentRequest, cursor time.Time, rng model.TimeWindow, degraded map[string]bool) (*model.ScheduledAppointment, string, error) {
	if !cursor.Before(rng.End) {
		return nil, "no remaining capacity in date range", nil
	}
	search := model.TimeWindow{Start: laterOf(cursor, rng.Start), End: rng.End}
	set, err := gen.Generate(ctx, a.Location, a.Duration(), search, a.Constraints)
	if err != nil {
		return nil, "", fmt.Errorf("appointment %s: %w", a.ID, err)
	}
	if set.Degraded {
		degraded["timezone"] = true
	}
	// The generator already resolved the location's zone; reuse it rather
	// than paying a second provider lookup per appointment.
	local := set.Zone

	for _, s := range set.Slots {
		if !s.Available {
			continue
		}
		conf := s.Confidence
		if inPreferredHours(s.Start.In(local).Hour(), a.PreferredHours) {
			conf = math.Min(1.0, conf+c.cfg.PreferredBonus)
		}
		return &model.ScheduledAppointment{
			AppointmentID: a.ID,
			Slot:          s,
			Confidence:    conf,
		}, "", nil
	}
	if set.Total > 0 {
		return nil, "all candidate slots violate constraints", nil
	}
	return nil, "no working-day slots in remaining date range", nil
}

// OptimizationReport measures the itinerary against a naive baseline: one
// full workday of windshield time and the industry-typical 60% utilization.
func (c *Composer) OptimizationReport(it model.Itinerary) Report {
	const baselineTravel = 8 * time.Hour
	const baselineUtilization = 0.6
	return Report{
		BaselineTravelTime:    baselineTravel,
		TravelTimeSaved:       baselineTravel - it.Metrics.TotalTravelTime,
		BaselineUtilization:   baselineUtilization,
		UtilizationDelta:      it.Metrics.UtilizationRate - baselineUtilization,
		AppointmentsScheduled: len(it.Schedule),
	}
}

func inPreferredHours(hour int, prefs []model.HourRange) bool {
	for _, p := range prefs {
		if p.ContainsHour(hour) {
			return true
		}
	}
	return false
}

func utilization(service, travel time.Duration) float64 {
	total := service + travel
	if total <= 0 {
		return 0
	}
	return float64(service) / float64(total)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// flagList renders the degraded set in a fixed order so identical runs
// produce identical itineraries.
func flagList(set map[string]bool) []string {
	var out []string
	for _, f := range []string{"timezone", "holiday", "routing"} {
		if set[f] {
			out = append(out, f)
		}
	}
	return out
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
