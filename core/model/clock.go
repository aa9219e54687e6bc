package model

import (
	"fmt"
	"time"
)

// ClockTime is a time of day without a date, in a local timezone.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" into a ClockTime.
func ParseClock(s string) (ClockTime, error) {
	var c ClockTime
	if _, err := fmt.Sscanf(s, "%d:%d", &c.Hour, &c.Minute); err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return ClockTime{}, fmt.Errorf("clock time %q out of range", s)
	}
	return c, nil
}

// Minutes returns the offset from midnight in minutes.
func (c ClockTime) Minutes() int { return c.Hour*60 + c.Minute }

// On anchors the clock time on the civil date of t, in t's location.
func (c ClockTime) On(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.Hour, c.Minute, 0, 0, t.Location())
}

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// WorkingHours is a daily working window expressed as local clock times.
type WorkingHours struct {
	Start ClockTime
	End   ClockTime
}

// ParseWorkingHours parses "HH:MM" start and end strings.
func ParseWorkingHours(start, end string) (WorkingHours, error) {
	s, err := ParseClock(start)
	if err != nil {
		return WorkingHours{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return WorkingHours{}, err
	}
	if e.Minutes() <= s.Minutes() {
		return WorkingHours{}, fmt.Errorf("working hours end %s must be after start %s", end, start)
	}
	return WorkingHours{Start: s, End: e}, nil
}

// HourRange is an inclusive range of local hours used for time-of-day
// preferences, e.g. {9, 11} for "between 09:00 and 11:59".
type HourRange struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// ContainsHour reports whether h falls inside the range.
func (r HourRange) ContainsHour(h int) bool {
	return h >= r.StartHour && h <= r.EndHour
}
