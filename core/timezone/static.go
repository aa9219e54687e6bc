package timezone

import (
	"context"

	"github.com/kilianp07/fieldsched/core/model"
)

// StaticResolver maps coordinates to zones using regional bounding boxes.
// It needs no network access and never fails; unknown regions resolve to UTC.
// Precision is per-region, not per-border: it is meant as the offline default
// and as the zone selector for providers that take a zone id as input.
type StaticResolver struct{}

func (StaticResolver) Name() string { return "static" }

// Resolve returns the zone info for the region containing the coordinate.
func (StaticResolver) Resolve(_ context.Context, lat, lng float64) (model.TimezoneInfo, error) {
	return zoneInfo(ZoneFor(lat, lng)), nil
}

// ZoneFor picks an IANA zone id for the coordinate.
func ZoneFor(lat, lng float64) string {
	switch {
	// Continental United States and Alaska.
	case lat >= 24 && lat <= 71 && lng >= -179 && lng <= -66:
		switch {
		case lng >= -87:
			return "America/New_York"
		case lng >= -102:
			return "America/Chicago"
		case lng >= -115:
			return "America/Denver"
		default:
			return "America/Los_Angeles"
		}
	// Canada.
	case lat >= 42 && lat <= 83 && lng >= -141 && lng <= -52:
		switch {
		case lng >= -90:
			return "America/Toronto"
		case lng >= -102:
			return "America/Winnipeg"
		case lng >= -115:
			return "America/Edmonton"
		default:
			return "America/Vancouver"
		}
	// Europe.
	case lat >= 35 && lat <= 71 && lng >= -10 && lng <= 30:
		switch {
		case lng <= 0:
			return "Europe/London"
		case lng <= 15:
			return "Europe/Paris"
		default:
			return "Europe/Helsinki"
		}
	// Asia.
	case lat >= -10 && lat <= 70 && lng >= 60 && lng <= 180:
		switch {
		case lng <= 90:
			return "Asia/Kolkata"
		case lng <= 120:
			return "Asia/Shanghai"
		case lng <= 140:
			return "Asia/Tokyo"
		default:
			return "Asia/Seoul"
		}
	// Australia.
	case lat >= -45 && lat <= -10 && lng >= 110 && lng <= 155:
		switch {
		case lng <= 130:
			return "Australia/Perth"
		case lng <= 145:
			return "Australia/Adelaide"
		default:
			return "Australia/Sydney"
		}
	default:
		return "UTC"
	}
}

// zoneInfo returns standard-time offsets for the zones ZoneFor can produce.
func zoneInfo(zone string) model.TimezoneInfo {
	switch zone {
	case "America/New_York":
		return model.TimezoneInfo{ZoneID: zone, OffsetMinutes: -300, ObservesDST: true, Abbreviation: "EST"}
	case "America/Chicago":
		return model.TimezoneInfo{ZoneID: zone, OffsetMinutes: -360, ObservesDST: true, Abbreviation: "CST"}
	case "America/Denver":
		return model.TimezoneInfo{ZoneID: zone, OffsetMinutes: -420, ObservesDST: true, Abbreviation: "MST"}
	case "America/Los_Angeles":
		return model.TimezoneInfo{ZoneID: zone, OffsetMinutes: -480, ObservesDST: true, Abbreviation: "PST"}
	case "America/Toronto":
		return model.TimezoneInfo{ZoneID: zone, OffsetMinutes: -300, ObservesDST: true, Abbreviation: "EST"}
	case "America/Winnipeg":
		return model.TimezoneInfo{ZoneID: zone, OffsetMinutes: -360, ObservesDST: true, Abbreviation: "CST"}
	case "America/Edmonton":
		return model.TimezoneInfo{ZoneID: zone, OffsetMinutes: -420, ObservesDST: true, Abbreviation: "MST"}
	case "America/Vancouver":
		return model.TimezoneInfo{ZoneID: zone, OffsetMinutes: -480, ObservesDST: true, Abbreviation: "PST"}
	case "Europe/London":
		return model.TimezoneInfo{ZoneID: zone, OffsetMinutes: 0, ObservesDST: true, Abbreviation: "GMT"}
	case "Europe/Paris":
		return model.TimezoneInfo{ZoneID: zone, OffsetMinutes: 60, ObservesDST: true, Abbreviation: "CET"}
	case "Europe/Helsinki":
		return model.TimezoneInfo{ZoneID: zone, OffsetMinutes: 120, ObservesDST: true, Abbreviation: "EET"}
	case "Asia/Kolkata":
		return model.TimezoneInfo{ZoneID: zone, OffsetMinutes: 330, ObservesDST: false, Abbreviation: "IST"}
	case "Asia/Shanghai":
		return model.TimezoneInfo{ZoneID: zone, OffsetMinutes: 480, ObservesDST: false, Abbreviation: "CST"}
	case "Asia/Tokyo":
		return model.TimezoneInfo{ZoneID: zone, OffsetMinutes: 540, ObservesDST: false, Abbreviation: "JST"}
	case "Asia/Seoul":
		return model.TimezoneInfo{ZoneID: zone, OffsetMinutes: 540, ObservesDST: false, Abbreviation: "KST"}
	case "Australia/Perth":
		return model.TimezoneInfo{ZoneID: zone, OffsetMinutes: 480, ObservesDST: false, Abbreviation: "AWST"}
	case "Australia/Adelaide":
		return model.TimezoneInfo{ZoneID: zone, OffsetMinutes: 570, ObservesDST: true, Abbreviation: "ACST"}
	case "Australia/Sydney":
		return model.TimezoneInfo{ZoneID: zone, OffsetMinutes: 600, ObservesDST: true, Abbreviation: "AEST"}
	default:
		return UTCInfo()
	}
}
