package conflict

import (
	"errors"
	"testing"
	"time"

	"github.com/kilianp07/fieldsched/core/geo"
	"github.com/kilianp07/fieldsched/core/model"
	"github.com/kilianp07/fieldsched/infra/logger"
)

var (
	dallas    = model.Location{Lat: 32.7767, Lng: -96.7970}
	fortWorth = model.Location{Lat: 32.7555, Lng: -97.3308}
	elPaso    = model.Location{Lat: 31.7619, Lng: -106.4850}
)

// monday is a working Monday, 09:00 in America/Chicago (CST, UTC-6).
var monday = time.Date(2024, time.March, 4, 15, 0, 0, 0, time.UTC)

func newAnalyzer() *Analyzer {
	return New(Policy{}, geo.NewHaversineEstimator(), logger.NopLogger{}, nil)
}

func window(start time.Time, d time.Duration) model.TimeWindow {
	return model.TimeWindow{Start: start, End: start.Add(d)}
}

func existing(id string, w model.TimeWindow, loc model.Location, status model.AppointmentStatus) model.ExistingAppointment {
	return model.ExistingAppointment{ID: id, Window: w, Location: loc, Status: status}
}

func severityOf(t *testing.T, cs []model.Conflict, typ model.ConflictType) model.Severity {
	t.Helper()
	for _, c := range cs {
		if c.Type == typ {
			return c.Severity
		}
	}
	t.Fatalf("no %s conflict in %+v", typ, cs)
	return ""
}

func TestOverlapSeverityGrades(t *testing.T) {
	a := newAnalyzer()
	proposal := Proposal{Window: window(monday, 2 * time.Hour), Location: dallas}

	cases := []struct {
		name    string
		overlap time.Duration
		want    model.Severity
	}{
		{"brief", 10 * time.Minute, model.SeverityLow},
		{"quarter hour", 20 * time.Minute, model.SeverityMedium},
		{"over an hour", 70 * time.Minute, model.SeverityHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// The existing appointment's tail end overlaps the
			// proposal's head by exactly tc.overlap.
			ex := existing("e1",
				window(monday.Add(tc.overlap-2*time.Hour), 2*time.Hour),
				dallas, model.StatusConfirmed)

			res, err := a.Analyze(proposal, []model.ExistingAppointment{ex}, model.AgentConstraints{})
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if !res.HasConflicts {
				t.Error("HasConflicts = false, want true")
			}
			if got := severityOf(t, res.Conflicts, model.ConflictTimeOverlap); got != tc.want {
				t.Errorf("severity = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestHalfEclipsedOverlapEscalates(t *testing.T) {
	a := newAnalyzer()

	// A 30-minute overlap between two one-hour visits eats half of each;
	// the grade escalates from medium to high.
	proposal := Proposal{Window: window(monday, time.Hour), Location: dallas}
	ex := existing("e1", window(monday.Add(30*time.Minute), time.Hour), dallas, model.StatusConfirmed)

	res, err := a.Analyze(proposal, []model.ExistingAppointment{ex}, model.AgentConstraints{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := severityOf(t, res.Conflicts, model.ConflictTimeOverlap); got != model.SeverityHigh {
		t.Errorf("severity = %s, want high", got)
	}
}

func TestCompletedAndCancelledDoNotConflict(t *testing.T) {
	a := newAnalyzer()
	proposal := Proposal{Window: window(monday, time.Hour), Location: dallas}

	res, err := a.Analyze(proposal, []model.ExistingAppointment{
		existing("done", window(monday, time.Hour), dallas, model.StatusCompleted),
		existing("gone", window(monday, time.Hour), dallas, model.StatusCancelled),
	}, model.AgentConstraints{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.HasConflicts || len(res.Conflicts) != 0 {
		t.Errorf("conflicts = %+v, want none", res.Conflicts)
	}
}

func TestTravelTimeToAdjacentAppointments(t *testing.T) {
	a := newAnalyzer()

	t.Run("long hop is medium", func(t *testing.T) {
		proposal := Proposal{Window: window(monday.Add(2 * time.Hour), time.Hour), Location: dallas}
		prev := existing("prev", window(monday, time.Hour), fortWorth, model.StatusConfirmed)

		res, err := a.Analyze(proposal, []model.ExistingAppointment{prev}, model.AgentConstraints{})
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if got := severityOf(t, res.Conflicts, model.ConflictTravelTime); got != model.SeverityMedium {
			t.Errorf("severity = %s, want medium", got)
		}
	})

	t.Run("extreme hop is high", func(t *testing.T) {
		proposal := Proposal{Window: window(monday.Add(2 * time.Hour), time.Hour), Location: dallas}
		next := existing("next", window(monday.Add(4*time.Hour), time.Hour), elPaso, model.StatusConfirmed)

		res, err := a.Analyze(proposal, []model.ExistingAppointment{next}, model.AgentConstraints{})
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if got := severityOf(t, res.Conflicts, model.ConflictTravelTime); got != model.SeverityHigh {
			t.Errorf("severity = %s, want high", got)
		}
	})

	t.Run("short hop is fine", func(t *testing.T) {
		proposal := Proposal{Window: window(monday.Add(2 * time.Hour), time.Hour), Location: dallas}
		prev := existing("prev", window(monday, time.Hour), dallas, model.StatusConfirmed)

		res, err := a.Analyze(proposal, []model.ExistingAppointment{prev}, model.AgentConstraints{})
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if res.HasConflicts {
			t.Errorf("conflicts = %+v, want none", res.Conflicts)
		}
	})
}

func TestWorkloadCeiling(t *testing.T) {
	a := newAnalyzer()

	var day []model.ExistingAppointment
	for i := 0; i < 6; i++ {
		day = append(day, existing(
			string(rune('a'+i)),
			window(monday.Add(time.Duration(i)*-time.Hour), 30*time.Minute),
			dallas, model.StatusConfirmed))
	}
	proposal := Proposal{Window: window(monday.Add(3 * time.Hour), time.Hour), Location: dallas}

	res, err := a.Analyze(proposal, day, model.AgentConstraints{TimeZone: "America/Chicago"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := severityOf(t, res.Conflicts, model.ConflictWorkload); got != model.SeverityMedium {
		t.Errorf("severity = %s, want medium", got)
	}

	// One appointment fewer stays under the default ceiling of six per day.
	res, err = a.Analyze(proposal, day[:5], model.AgentConstraints{TimeZone: "America/Chicago"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	for _, c := range res.Conflicts {
		if c.Type == model.ConflictWorkload {
			t.Errorf("unexpected workload conflict: %+v", c)
		}
	}
}

func TestOutsideWorkingHours(t *testing.T) {
	a := newAnalyzer()
	wh, err := model.ParseWorkingHours("09:00", "17:00")
	if err != nil {
		t.Fatal(err)
	}
	agent := model.AgentConstraints{WorkingHours: wh, TimeZone: "America/Chicago"}

	t.Run("fully outside is medium", func(t *testing.T) {
		// 18:00-19:00 local.
		proposal := Proposal{Window: window(monday.Add(9 * time.Hour), time.Hour), Location: dallas}
		res, err := a.Analyze(proposal, nil, agent)
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if got := severityOf(t, res.Conflicts, model.ConflictOutsideHours); got != model.SeverityMedium {
			t.Errorf("severity = %s, want medium", got)
		}
	})

	t.Run("spillover is low", func(t *testing.T) {
		// 16:30-17:30 local.
		proposal := Proposal{Window: window(monday.Add(7*time.Hour + 30*time.Minute), time.Hour), Location: dallas}
		res, err := a.Analyze(proposal, nil, agent)
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if got := severityOf(t, res.Conflicts, model.ConflictOutsideHours); got != model.SeverityLow {
			t.Errorf("severity = %s, want low", got)
		}
	})

	t.Run("inside raises nothing", func(t *testing.T) {
		// 10:00-11:00 local.
		proposal := Proposal{Window: window(monday.Add(time.Hour), time.Hour), Location: dallas}
		res, err := a.Analyze(proposal, nil, agent)
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if res.HasConflicts {
			t.Errorf("conflicts = %+v, want none", res.Conflicts)
		}
	})
}

func TestAnalyzeRejectsInvalidProposal(t *testing.T) {
	a := newAnalyzer()

	bad := Proposal{Window: model.TimeWindow{Start: monday, End: monday.Add(-time.Hour)}, Location: dallas}
	if _, err := a.Analyze(bad, nil, model.AgentConstraints{}); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
