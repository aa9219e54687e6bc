// Package timezone maps coordinates to timezone information and converts
// timestamps between zones. All instants are kept UTC-normalized; local time
// only enters the picture through an explicit zone identifier.
package timezone

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/fieldsched/core/events"
	"github.com/kilianp07/fieldsched/core/logger"
	"github.com/kilianp07/fieldsched/core/model"
	"github.com/kilianp07/fieldsched/internal/eventbus"
)

// ErrProviderUnavailable is returned when a timezone lookup fails after
// all retries.
var ErrProviderUnavailable = errors.New("timezone provider unavailable")

// Resolver maps a coordinate to timezone information.
type Resolver interface {
	Resolve(ctx context.Context, lat, lng float64) (model.TimezoneInfo, error)
	// Name identifies the resolver implementation.
	Name() string
}

// Result is a resolution outcome. Degraded is set when the resolver failed
// and the UTC fallback was substituted; callers must propagate it into
// metrics instead of failing the run.
type Result struct {
	Info     model.TimezoneInfo
	Degraded bool
}

// UTCInfo is the documented fallback when no provider answer is available.
func UTCInfo() model.TimezoneInfo {
	return model.TimezoneInfo{ZoneID: "UTC", OffsetMinutes: 0, ObservesDST: false, Abbreviation: "UTC"}
}

// Service wraps a Resolver with the degraded-mode fallback policy.
type Service struct {
	resolver Resolver
	log      logger.Logger
	bus      eventbus.EventBus
}

// NewService creates a Service. The bus is optional.
func NewService(r Resolver, log logger.Logger, bus eventbus.EventBus) *Service {
	return &Service{resolver: r, log: log, bus: bus}
}

// Resolve returns the timezone for the coordinate, or the UTC fallback with
// Degraded set if the resolver fails.
func (s *Service) Resolve(ctx context.Context, lat, lng float64) Result {
	info, err := s.resolver.Resolve(ctx, lat, lng)
	if err != nil {
		s.log.Warnf("timezone lookup failed for (%.4f, %.4f), falling back to UTC: %v", lat, lng, err)
		eventbus.Publish(s.bus, events.ProviderDegradedEvent{
			Capability: "timezone", Provider: s.resolver.Name(), Err: err,
		})
		return Result{Info: UTCInfo(), Degraded: true}
	}
	return Result{Info: info}
}

// Location returns a *time.Location for local-time arithmetic at the
// coordinate. When the IANA database does not know the resolved zone, a
// fixed-offset location built from the provider offset is used instead.
func (s *Service) Location(ctx context.Context, lat, lng float64) (*time.Location, Result) {
	res := s.Resolve(ctx, lat, lng)
	loc, err := time.LoadLocation(res.Info.ZoneID)
	if err != nil {
		loc = time.FixedZone(res.Info.Abbreviation, res.Info.OffsetMinutes*60)
	}
	return loc, res
}

// Convert interprets the wall-clock reading of t in fromZone and re-expresses
// it in toZone.
func Convert(t time.Time, fromZone, toZone string) (time.Time, error) {
	from, err := time.LoadLocation(fromZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("unknown zone %q: %w", fromZone, err)
	}
	to, err := time.LoadLocation(toZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("unknown zone %q: %w", toZone, err)
	}
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), from)
	return wall.In(to), nil
}
