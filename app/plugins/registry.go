// Package plugins maps config type names to provider constructors. Built-in
// providers register themselves in init; external builds can add their own
// before the service starts.
package plugins

import (
	"github.com/kilianp07/fieldsched/core/factory"
	"github.com/kilianp07/fieldsched/core/geo"
	"github.com/kilianp07/fieldsched/core/holiday"
	"github.com/kilianp07/fieldsched/core/logger"
	coremetrics "github.com/kilianp07/fieldsched/core/metrics"
	"github.com/kilianp07/fieldsched/core/route"
	"github.com/kilianp07/fieldsched/core/timezone"
)

// HolidayFactory builds a holiday calendar from raw config.
type HolidayFactory func(conf map[string]any, log logger.Logger, rec coremetrics.ProviderCallRecorder) (holiday.Calendar, error)

// TimezoneFactory builds a timezone resolver from raw config.
type TimezoneFactory func(conf map[string]any, rec coremetrics.ProviderCallRecorder) (timezone.Resolver, error)

// RoutingFactory builds a route optimizer from raw config.
type RoutingFactory func(conf map[string]any, est geo.Estimator, rec coremetrics.ProviderCallRecorder) (route.Optimizer, error)

// MetricsFactory builds a metrics sink from raw config.
type MetricsFactory func(conf map[string]any, log logger.Logger) (coremetrics.Sink, error)

var (
	Holidays         = factory.NewRegistry[HolidayFactory]()
	Timezones        = factory.NewRegistry[TimezoneFactory]()
	Routers          = factory.NewRegistry[RoutingFactory]()
	MetricsExporters = factory.NewRegistry[MetricsFactory]()
)

// The Register helpers panic on duplicates: provider names are wired at
// init time, so a collision is a programming error, not a runtime state.

func RegisterHoliday(name string, f HolidayFactory) {
	if err := Holidays.Register(name, f); err != nil {
		panic(err)
	}
}

func RegisterTimezone(name string, f TimezoneFactory) {
	if err := Timezones.Register(name, f); err != nil {
		panic(err)
	}
}

func RegisterRouting(name string, f RoutingFactory) {
	if err := Routers.Register(name, f); err != nil {
		panic(err)
	}
}

func RegisterMetrics(name string, f MetricsFactory) {
	if err := MetricsExporters.Register(name, f); err != nil {
		panic(err)
	}
}
