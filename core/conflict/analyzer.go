// Package conflict inspects a proposed appointment against an agent's
// existing calendar and reports scheduling risks. Analysis is advisory: it
// never mutates the calendar and never blocks a placement on its own.
package conflict

import (
	"fmt"
	"time"

	"github.com/kilianp07/fieldsched/core/geo"
	"github.com/kilianp07/fieldsched/core/logger"
	"github.com/kilianp07/fieldsched/core/metrics"
	"github.com/kilianp07/fieldsched/core/model"
)

// Policy tunes the conflict thresholds.
type Policy struct {
	// TravelTimeThreshold is the longest back-to-back hop considered
	// comfortable. Beyond it a travel_time conflict is raised; beyond
	// twice it the severity escalates.
	TravelTimeThreshold time.Duration
	// MaxAppointmentsPerDay is the workload ceiling per civil day.
	MaxAppointmentsPerDay int
	// OverlapMedium and OverlapHigh grade time overlaps by intersection
	// length.
	OverlapMedium time.Duration
	OverlapHigh   time.Duration
}

// SetDefaults applies the standard field-adjuster policy.
func (p *Policy) SetDefaults() {
	if p.TravelTimeThreshold <= 0 {
		p.TravelTimeThreshold = 45 * time.Minute
	}
	if p.MaxAppointmentsPerDay <= 0 {
		p.MaxAppointmentsPerDay = 6
	}
	if p.OverlapMedium <= 0 {
		p.OverlapMedium = 15 * time.Minute
	}
	if p.OverlapHigh <= 0 {
		p.OverlapHigh = time.Hour
	}
}

// Proposal is the appointment under analysis.
type Proposal struct {
	Window   model.TimeWindow `json:"window"`
	Location model.Location   `json:"location"`
}

// Validate rejects malformed proposals.
func (p Proposal) Validate() error {
	if err := p.Window.Validate(); err != nil {
		return err
	}
	return p.Location.Validate()
}

// Analysis is the outcome of one conflict check.
type Analysis struct {
	HasConflicts bool             `json:"has_conflicts"`
	Conflicts    []model.Conflict `json:"conflicts"`
}

// Analyzer detects conflicts between a proposal and existing appointments.
type Analyzer struct {
	policy Policy
	est    geo.Estimator
	log    logger.Logger
	rec    metrics.ConflictRecorder
}

// New creates an Analyzer. rec may be nil.
func New(policy Policy, est geo.Estimator, log logger.Logger, rec metrics.ConflictRecorder) *Analyzer {
	policy.SetDefaults()
	return &Analyzer{policy: policy, est: est, log: log, rec: rec}
}

// Analyze returns every conflict between the proposal and the agent's
// calendar, in a fixed order: overlaps first, then travel, workload and
// working-hours findings. Completed and cancelled appointments are ignored.
func (a *Analyzer) Analyze(p Proposal, existing []model.ExistingAppointment, agent model.AgentConstraints) (Analysis, error) {
	if err := p.Validate(); err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	active := activeOnly(existing)

	var out []model.Conflict
	out = append(out, a.overlaps(p, active)...)
	out = append(out, a.travel(p, active)...)
	if c := a.workload(p, active, agent); c != nil {
		out = append(out, *c)
	}
	if c := a.outsideHours(p, agent); c != nil {
		out = append(out, *c)
	}
	if len(out) > 0 {
		a.log.Debugf("proposal at %s raised %d conflict(s)", p.Window.Start.Format(time.RFC3339), len(out))
	}
	if out == nil {
		out = []model.Conflict{}
	}
	if a.rec != nil {
		_ = a.rec.RecordConflicts(metrics.ConflictRecord{Conflicts: len(out), Time: time.Now()})
	}
	return Analysis{HasConflicts: len(out) > 0, Conflicts: out}, nil
}

// overlaps grades direct time collisions. Severity follows the intersection
// length, escalating one level when the intersection swallows at least half
// of either appointment: a half-eclipsed visit is unworkable no matter how
// short the absolute overlap is.
func (a *Analyzer) overlaps(p Proposal, existing []model.ExistingAppointment) []model.Conflict {
	var out []model.Conflict
	for _, e := range existing {
		inter := p.Window.Overlap(e.Window)
		if inter <= 0 {
			continue
		}
		sev := model.SeverityLow
		switch {
		case inter > a.policy.OverlapHigh:
			sev = model.SeverityHigh
		case inter >= a.policy.OverlapMedium:
			sev = model.SeverityMedium
		}
		if inter*2 >= p.Window.Duration() || inter*2 >= e.Window.Duration() {
			sev = escalate(sev)
		}
		out = append(out, model.Conflict{
			Type:     model.ConflictTimeOverlap,
			Severity: sev,
			Description: fmt.Sprintf("overlaps appointment %s by %d minutes",
				e.ID, int(inter.Minutes())),
			Suggestion: fmt.Sprintf("move the appointment to start after %s",
				e.Window.End.Format(time.RFC3339)),
		})
	}
	return out
}

// travel checks the hops to the chronologically nearest appointments before
// and after the proposal.
func (a *Analyzer) travel(p Proposal, existing []model.ExistingAppointment) []model.Conflict {
	var out []model.Conflict
	for _, e := range []*model.ExistingAppointment{prevOf(p, existing), nextOf(p, existing)} {
		if e == nil {
			continue
		}
		tt := a.est.TravelTime(p.Location, e.Location)
		if tt <= a.policy.TravelTimeThreshold {
			continue
		}
		sev := model.SeverityMedium
		if tt > 2*a.policy.TravelTimeThreshold {
			sev = model.SeverityHigh
		}
		out = append(out, model.Conflict{
			Type:     model.ConflictTravelTime,
			Severity: sev,
			Description: fmt.Sprintf("%d minutes of travel to adjacent appointment %s",
				int(tt.Minutes()), e.ID),
			Suggestion: "schedule a nearby appointment in between or allow a longer gap",
		})
	}
	return out
}

// workload counts appointments sharing the proposal's civil day in the
// agent's timezone.
func (a *Analyzer) workload(p Proposal, existing []model.ExistingAppointment, agent model.AgentConstraints) *model.Conflict {
	max := a.policy.MaxAppointmentsPerDay
	if agent.MaxAppointmentsPerDay > 0 {
		max = agent.MaxAppointmentsPerDay
	}
	day := a.localDay(p.Window.Start, agent)
	count := 1 // the proposal itself
	for _, e := range existing {
		if a.localDay(e.Window.Start, agent) == day {
			count++
		}
	}
	if count <= max {
		return nil
	}
	return &model.Conflict{
		Type:     model.ConflictWorkload,
		Severity: model.SeverityMedium,
		Description: fmt.Sprintf("%d appointments on %s exceed the daily limit of %d",
			count, day, max),
		Suggestion: "move the appointment to a lighter day",
	}
}

// outsideHours flags proposals outside the agent's working window, graded by
// whether the appointment merely spills over or lies fully outside.
func (a *Analyzer) outsideHours(p Proposal, agent model.AgentConstraints) *model.Conflict {
	zero := model.WorkingHours{}
	if agent.WorkingHours == zero {
		return nil
	}
	start := a.inAgentZone(p.Window.Start, agent)
	end := a.inAgentZone(p.Window.End, agent)

	dayStart := agent.WorkingHours.Start.On(start)
	dayEnd := agent.WorkingHours.End.On(start)

	startsInside := !start.Before(dayStart) && start.Before(dayEnd)
	endsInside := end.After(dayStart) && !end.After(dayEnd)
	if startsInside && endsInside {
		return nil
	}
	sev := model.SeverityLow
	if !startsInside && !endsInside {
		sev = model.SeverityMedium
	}
	return &model.Conflict{
		Type:     model.ConflictOutsideHours,
		Severity: sev,
		Description: fmt.Sprintf("appointment %s-%s falls outside working hours %s-%s",
			start.Format("15:04"), end.Format("15:04"),
			agent.WorkingHours.Start, agent.WorkingHours.End),
		Suggestion: "shift the appointment inside working hours",
	}
}

func (a *Analyzer) inAgentZone(t time.Time, agent model.AgentConstraints) time.Time {
	if agent.TimeZone == "" {
		return t.UTC()
	}
	loc, err := time.LoadLocation(agent.TimeZone)
	if err != nil {
		a.log.Warnf("unknown agent timezone %q, using UTC", agent.TimeZone)
		return t.UTC()
	}
	return t.In(loc)
}

func (a *Analyzer) localDay(t time.Time, agent model.AgentConstraints) string {
	return a.inAgentZone(t, agent).Format("2006-01-02")
}

func escalate(s model.Severity) model.Severity {
	switch s {
	case model.SeverityLow:
		return model.SeverityMedium
	case model.SeverityMedium:
		return model.SeverityHigh
	}
	return s
}

// prevOf returns the appointment ending latest at or before the proposal
// starts.
func prevOf(p Proposal, existing []model.ExistingAppointment) *model.ExistingAppointment {
	var best *model.ExistingAppointment
	for i := range existing {
		e := &existing[i]
		if e.Window.End.After(p.Window.Start) {
			continue
		}
		if best == nil || e.Window.End.After(best.Window.End) {
			best = e
		}
	}
	return best
}

// nextOf returns the appointment starting earliest at or after the proposal
// ends.
func nextOf(p Proposal, existing []model.ExistingAppointment) *model.ExistingAppointment {
	var best *model.ExistingAppointment
	for i := range existing {
		e := &existing[i]
		if e.Window.Start.Before(p.Window.End) {
			continue
		}
		if best == nil || e.Window.Start.Before(best.Window.Start) {
			best = e
		}
	}
	return best
}

func activeOnly(existing []model.ExistingAppointment) []model.ExistingAppointment {
	out := make([]model.ExistingAppointment, 0, len(existing))
	for _, e := range existing {
		if e.Blocks() {
			out = append(out, e)
		}
	}
	return out
}
