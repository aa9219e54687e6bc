package holiday

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kilianp07/fieldsched/core/model"
	"github.com/kilianp07/fieldsched/infra/logger"
)

type failingCalendar struct{}

func (failingCalendar) Name() string { return "failing" }
func (failingCalendar) Holidays(context.Context, Query) ([]model.Holiday, error) {
	return nil, errors.New("timeout")
}

func TestBuiltinFixedDates2024(t *testing.T) {
	hs, err := BuiltinUS{}.Holidays(context.Background(), Query{Year: 2024, Country: "US"})
	if err != nil {
		t.Fatalf("holidays: %v", err)
	}
	byName := map[string]model.Holiday{}
	for _, h := range hs {
		byName[h.Name] = h
	}
	want := map[string]string{
		"New Year's Day":             "2024-01-01",
		"Martin Luther King Jr. Day": "2024-01-15",
		"Washington's Birthday":      "2024-02-19",
		"Memorial Day":               "2024-05-27",
		"Independence Day":           "2024-07-04",
		"Labor Day":                  "2024-09-02",
		"Thanksgiving Day":           "2024-11-28",
		"Christmas Day":              "2024-12-25",
	}
	for name, date := range want {
		h, ok := byName[name]
		if !ok {
			t.Fatalf("missing holiday %s", name)
		}
		if got := h.Date.Format("2006-01-02"); got != date {
			t.Errorf("%s: expected %s got %s", name, date, got)
		}
		if !h.AffectsBusiness {
			t.Errorf("%s should affect business", name)
		}
	}
}

func TestBuiltinObservances(t *testing.T) {
	hs, _ := BuiltinUS{}.Holidays(context.Background(), Query{Year: 2024, Country: "US", IncludeObservances: true})
	found := false
	for _, h := range hs {
		if h.Type == "Observance" {
			found = true
			if h.AffectsBusiness {
				t.Errorf("observance %s must not affect business", h.Name)
			}
		}
	}
	if !found {
		t.Fatal("expected observances when requested")
	}
}

func TestBuiltinUnknownCountry(t *testing.T) {
	hs, err := BuiltinUS{}.Holidays(context.Background(), Query{Year: 2024, Country: "FR"})
	if err != nil || len(hs) != 0 {
		t.Fatalf("expected empty set for unknown country, got %d, err %v", len(hs), err)
	}
}

func TestServiceIsHoliday(t *testing.T) {
	svc := NewService(BuiltinUS{}, logger.NopLogger{}, nil)
	newYear := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	ok, err := svc.IsHoliday(context.Background(), newYear, Query{Country: "US"})
	if err != nil || !ok {
		t.Fatalf("expected 2024-01-01 to be a holiday (err %v)", err)
	}
	plain := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	ok, _ = svc.IsHoliday(context.Background(), plain, Query{Country: "US"})
	if ok {
		t.Fatal("2024-03-05 is not a holiday")
	}
}

func TestServiceObservancesBlockOnlyWhenRequested(t *testing.T) {
	svc := NewService(BuiltinUS{}, logger.NopLogger{}, nil)
	valentines := time.Date(2024, 2, 14, 10, 0, 0, 0, time.UTC)

	ok, err := svc.IsHoliday(context.Background(), valentines, Query{Country: "US"})
	if err != nil || ok {
		t.Fatalf("observance must not block by default (ok %v, err %v)", ok, err)
	}
	ok, err = svc.IsHoliday(context.Background(), valentines, Query{Country: "US", IncludeObservances: true})
	if err != nil || !ok {
		t.Fatalf("requested observance must block (ok %v, err %v)", ok, err)
	}
}

func TestServiceFailOpen(t *testing.T) {
	svc := NewService(failingCalendar{}, logger.NopLogger{}, nil)
	ok, err := svc.IsHoliday(context.Background(), time.Now(), Query{Country: "US"})
	if err != nil {
		t.Fatalf("fail-open must not return an error, got %v", err)
	}
	if ok {
		t.Fatal("fail-open must report no holiday")
	}
}

type countingCalendar struct {
	calls *int
}

func (countingCalendar) Name() string { return "counting" }
func (c countingCalendar) Holidays(ctx context.Context, q Query) ([]model.Holiday, error) {
	*c.calls++
	return BuiltinUS{}.Holidays(ctx, q)
}

func TestServiceCachesPerQuery(t *testing.T) {
	calls := 0
	svc := NewService(countingCalendar{&calls}, logger.NopLogger{}, nil)
	day := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if _, err := svc.IsHoliday(context.Background(), day.AddDate(0, 0, i), Query{Country: "US"}); err != nil {
			t.Fatalf("IsHoliday: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("provider fetched %d times for one query shape, want 1", calls)
	}

	// A different query shape misses the cache.
	if _, err := svc.IsHoliday(context.Background(), day, Query{Country: "US", IncludeObservances: true}); err != nil {
		t.Fatalf("IsHoliday: %v", err)
	}
	if calls != 2 {
		t.Fatalf("provider fetched %d times across two query shapes, want 2", calls)
	}
}

func TestInRange(t *testing.T) {
	svc := NewService(BuiltinUS{}, logger.NopLogger{}, nil)
	rng := model.TimeWindow{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC),
	}
	res := svc.InRange(context.Background(), rng, "US", "")
	if res.Degraded {
		t.Fatal("unexpected degraded flag")
	}
	// New Year's Day and MLK Day.
	if len(res.Holidays) != 2 {
		t.Fatalf("expected 2 holidays in January 2024, got %d", len(res.Holidays))
	}
}

func TestInRangeDegraded(t *testing.T) {
	svc := NewService(failingCalendar{}, logger.NopLogger{}, nil)
	rng := model.TimeWindow{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	res := svc.InRange(context.Background(), rng, "US", "")
	if !res.Degraded || len(res.Holidays) != 0 {
		t.Fatalf("expected empty degraded result, got %#v", res)
	}
}

func TestInRangeCrossYear(t *testing.T) {
	svc := NewService(BuiltinUS{}, logger.NopLogger{}, nil)
	rng := model.TimeWindow{
		Start: time.Date(2023, 12, 24, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	res := svc.InRange(context.Background(), rng, "US", "")
	// Christmas 2023 and New Year's Day 2024.
	if len(res.Holidays) != 2 {
		t.Fatalf("expected 2 holidays across the year boundary, got %d", len(res.Holidays))
	}
}
