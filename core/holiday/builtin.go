package holiday

import (
	"context"
	"time"

	"github.com/kilianp07/fieldsched/core/model"
)

// BuiltinUS computes United States federal holidays offline. It is the
// default calendar: deterministic, no network, no API key. State-specific
// holidays are not modeled; unknown countries yield an empty set.
type BuiltinUS struct{}

func (BuiltinUS) Name() string { return "builtin" }

// Holidays returns the federal holidays for the requested year. Observances
// are included only when asked for and never affect business.
func (BuiltinUS) Holidays(_ context.Context, q Query) ([]model.Holiday, error) {
	if q.Country != "US" && q.Country != "us" {
		return nil, nil
	}
	y := q.Year
	hs := []model.Holiday{
		fixed("New Year's Day", y, time.January, 1),
		nth("Martin Luther King Jr. Day", y, time.January, time.Monday, 3),
		nth("Washington's Birthday", y, time.February, time.Monday, 3),
		last("Memorial Day", y, time.May, time.Monday),
		fixed("Juneteenth National Independence Day", y, time.June, 19),
		fixed("Independence Day", y, time.July, 4),
		nth("Labor Day", y, time.September, time.Monday, 1),
		nth("Columbus Day", y, time.October, time.Monday, 2),
		fixed("Veterans Day", y, time.November, 11),
		nth("Thanksgiving Day", y, time.November, time.Thursday, 4),
		fixed("Christmas Day", y, time.December, 25),
	}
	if q.IncludeObservances {
		hs = append(hs,
			observance("Valentine's Day", y, time.February, 14),
			observance("Halloween", y, time.October, 31),
		)
	}
	return hs, nil
}

func fixed(name string, year int, month time.Month, day int) model.Holiday {
	return model.Holiday{
		Name:            name,
		Date:            time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		Type:            "Federal holiday",
		AffectsBusiness: true,
	}
}

func observance(name string, year int, month time.Month, day int) model.Holiday {
	return model.Holiday{
		Name:            name,
		Date:            time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		Type:            "Observance",
		AffectsBusiness: false,
	}
}

// nth returns the n-th given weekday of the month.
func nth(name string, year int, month time.Month, weekday time.Weekday, n int) model.Holiday {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	d := first.AddDate(0, 0, offset+(n-1)*7)
	return model.Holiday{Name: name, Date: d, Type: "Federal holiday", AffectsBusiness: true}
}

// last returns the last given weekday of the month.
func last(name string, year int, month time.Month, weekday time.Weekday) model.Holiday {
	end := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	offset := (int(end.Weekday()) - int(weekday) + 7) % 7
	d := end.AddDate(0, 0, -offset)
	return model.Holiday{Name: name, Date: d, Type: "Federal holiday", AffectsBusiness: true}
}
