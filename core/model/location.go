package model

import (
	"fmt"
	"math"
	"time"
)

// Location is an immutable geographic point with an optional street address.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// Validate checks that the coordinates are within their geographic bounds.
func (l Location) Validate() error {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lng) {
		return fmt.Errorf("coordinates must be numbers")
	}
	if l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("latitude %v out of range", l.Lat)
	}
	if l.Lng < -180 || l.Lng > 180 {
		return fmt.Errorf("longitude %v out of range", l.Lng)
	}
	return nil
}

// TimeWindow is a half-open interval [Start, End).
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate checks that the window is non-empty.
func (w TimeWindow) Validate() error {
	if !w.End.After(w.Start) {
		return fmt.Errorf("window end %v must be after start %v", w.End, w.Start)
	}
	return nil
}

// Duration returns the length of the window.
func (w TimeWindow) Duration() time.Duration { return w.End.Sub(w.Start) }

// Overlaps reports whether the two half-open intervals intersect.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Overlap returns the duration of the intersection, zero if disjoint.
func (w TimeWindow) Overlap(o TimeWindow) time.Duration {
	start := w.Start
	if o.Start.After(start) {
		start = o.Start
	}
	end := w.End
	if o.End.Before(end) {
		end = o.End
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

// Contains reports whether t falls inside the half-open interval.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
