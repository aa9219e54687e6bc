package model

import "time"

// Holiday is a calendar holiday returned by a holiday provider.
type Holiday struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"` // midnight, zone-naive civil date
	// Type is the provider classification, e.g. "National holiday".
	Type            string `json:"type"`
	AffectsBusiness bool   `json:"affects_business"`
	Description     string `json:"description,omitempty"`
}

// SameDate reports whether the holiday falls on the civil date of t.
func (h Holiday) SameDate(t time.Time) bool {
	return h.Date.Year() == t.Year() && h.Date.Month() == t.Month() && h.Date.Day() == t.Day()
}

// TimezoneInfo describes the timezone governing a geographic point.
type TimezoneInfo struct {
	ZoneID        string `json:"zone_id"` // IANA identifier, e.g. America/New_York
	OffsetMinutes int    `json:"offset_minutes"`
	ObservesDST   bool   `json:"observes_dst"`
	Abbreviation  string `json:"abbreviation"`
}
