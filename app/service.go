// Package app assembles the scheduling engine from configuration. All
// provider choices are resolved here through the plugin registries; the core
// packages only ever see the interfaces.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/kilianp07/fieldsched/app/plugins"
	"github.com/kilianp07/fieldsched/config"
	"github.com/kilianp07/fieldsched/core/compose"
	"github.com/kilianp07/fieldsched/core/conflict"
	"github.com/kilianp07/fieldsched/core/geo"
	"github.com/kilianp07/fieldsched/core/holiday"
	coremetrics "github.com/kilianp07/fieldsched/core/metrics"
	"github.com/kilianp07/fieldsched/core/model"
	"github.com/kilianp07/fieldsched/core/route"
	"github.com/kilianp07/fieldsched/core/slot"
	"github.com/kilianp07/fieldsched/core/timezone"
	"github.com/kilianp07/fieldsched/infra/logger"
	inframetrics "github.com/kilianp07/fieldsched/infra/metrics"
	"github.com/kilianp07/fieldsched/internal/eventbus"
)

// Service is the assembled engine.
type Service struct {
	Composer  *compose.Composer
	Analyzer  *conflict.Analyzer
	Optimizer route.Optimizer
	Bus       eventbus.EventBus

	log     logger.Logger
	sink    coremetrics.Sink
	promSrv *http.Server
	active  map[string]string
}

// Status reports the provider wiring: the active implementation behind each
// capability and every registered alternative.
type Status struct {
	Active     map[string]string   `json:"active"`
	Registered map[string][]string `json:"registered"`
}

// New builds a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	applyLogLevel(cfg.Logging.Level)
	log := logger.New("service")
	bus := eventbus.New()

	sink, promSrv, err := buildSinks(cfg, log)
	if err != nil {
		return nil, err
	}
	var rec coremetrics.ProviderCallRecorder
	if r, ok := sink.(coremetrics.ProviderCallRecorder); ok {
		rec = r
	}
	var confRec coremetrics.ConflictRecorder
	if r, ok := sink.(coremetrics.ConflictRecorder); ok {
		confRec = r
	}

	est := geo.HaversineEstimator{MinutesPerKm: cfg.Scheduling.MinutesPerKm}

	tzFactory, ok := plugins.Timezones.Lookup(cfg.Providers.Timezone.Type)
	if !ok {
		return nil, fmt.Errorf("unknown timezone provider %q", cfg.Providers.Timezone.Type)
	}
	resolver, err := tzFactory(cfg.Providers.Timezone.Conf, rec)
	if err != nil {
		return nil, fmt.Errorf("timezone provider: %w", err)
	}
	tz := timezone.NewService(resolver, logger.New("timezone"), bus)

	holFactory, ok := plugins.Holidays.Lookup(cfg.Providers.Holiday.Type)
	if !ok {
		return nil, fmt.Errorf("unknown holiday provider %q", cfg.Providers.Holiday.Type)
	}
	cal, err := holFactory(cfg.Providers.Holiday.Conf, logger.New("holiday"), rec)
	if err != nil {
		return nil, fmt.Errorf("holiday provider: %w", err)
	}
	holidays := holiday.NewService(cal, logger.New("holiday"), bus)

	routeFactory, ok := plugins.Routers.Lookup(cfg.Providers.Routing.Type)
	if !ok {
		return nil, fmt.Errorf("unknown routing provider %q", cfg.Providers.Routing.Type)
	}
	optimizer, err := routeFactory(cfg.Providers.Routing.Conf, est, rec)
	if err != nil {
		return nil, fmt.Errorf("routing provider: %w", err)
	}
	if cfg.Providers.Routing.Type != "internal" {
		optimizer = route.NewWithFallback(optimizer, route.NewNearestNeighbor(est), logger.New("route"), bus)
	}

	day, err := cfg.Scheduling.WorkingDay()
	if err != nil {
		return nil, err
	}
	gen, err := slot.New(slot.Config{
		DayStart:           day.Start,
		DayEnd:             day.End,
		Granularity:        cfg.Scheduling.Granularity(),
		Country:            cfg.Scheduling.Country,
		State:              cfg.Scheduling.State,
		IncludeObservances: cfg.Scheduling.IncludeObservances,
	}, tz, holidays, logger.New("slot"))
	if err != nil {
		return nil, err
	}

	composer := compose.New(compose.Config{
		PerCallBudget:  cfg.Scheduling.PerCallBudget(),
		PreferredBonus: cfg.Scheduling.PreferredBonus,
		PriorityTieGap: cfg.Scheduling.PriorityTieGap,
		Country:        cfg.Scheduling.Country,
		State:          cfg.Scheduling.State,
	}, est, gen, holidays, logger.New("compose"), bus, sink)

	analyzer := conflict.New(conflict.Policy{
		TravelTimeThreshold:   minutes(cfg.Conflict.TravelThresholdMinutes),
		MaxAppointmentsPerDay: cfg.Conflict.MaxAppointmentsPerDay,
		OverlapMedium:         minutes(cfg.Conflict.OverlapMediumMinutes),
		OverlapHigh:           minutes(cfg.Conflict.OverlapHighMinutes),
	}, est, logger.New("conflict"), confRec)

	return &Service{
		Composer:  composer,
		Analyzer:  analyzer,
		Optimizer: optimizer,
		Bus:       bus,
		log:       log,
		sink:      sink,
		promSrv:   promSrv,
		active: map[string]string{
			"holiday":  cal.Name(),
			"timezone": resolver.Name(),
			"routing":  optimizer.Name(),
		},
	}, nil
}

// Schedule runs one composition.
func (s *Service) Schedule(ctx context.Context, req compose.Request) (model.Itinerary, error) {
	return s.Composer.Compose(ctx, req)
}

// ProviderStatus lists the active provider behind each capability and the
// registered alternatives a config file may select.
func (s *Service) ProviderStatus() Status {
	active := make(map[string]string, len(s.active))
	for k, v := range s.active {
		active[k] = v
	}
	return Status{
		Active: active,
		Registered: map[string][]string{
			"holiday":  plugins.Holidays.Names(),
			"timezone": plugins.Timezones.Names(),
			"routing":  plugins.Routers.Names(),
			"metrics":  plugins.MetricsExporters.Names(),
		},
	}
}

// Close releases the bus and stops the metrics endpoint.
func (s *Service) Close(ctx context.Context) error {
	s.Bus.Close()
	if s.promSrv != nil {
		return s.promSrv.Shutdown(ctx)
	}
	return nil
}

func buildSinks(cfg *config.Config, log logger.Logger) (coremetrics.Sink, *http.Server, error) {
	var sinks []coremetrics.Sink
	var promSrv *http.Server

	if cfg.Metrics.PrometheusEnabled {
		factory, ok := plugins.MetricsExporters.Lookup("prometheus")
		if !ok {
			return nil, nil, fmt.Errorf("prometheus exporter not registered")
		}
		sink, err := factory(nil, log)
		if err != nil {
			return nil, nil, fmt.Errorf("prometheus sink: %w", err)
		}
		sinks = append(sinks, sink)
		promSrv = inframetrics.StartServer(":"+cfg.Metrics.PrometheusPort, prometheus.DefaultGatherer, log)
	}
	if cfg.Metrics.InfluxEnabled {
		factory, ok := plugins.MetricsExporters.Lookup("influx")
		if !ok {
			return nil, nil, fmt.Errorf("influx exporter not registered")
		}
		sink, err := factory(map[string]any{
			"url":    cfg.Metrics.InfluxURL,
			"token":  cfg.Metrics.InfluxToken,
			"org":    cfg.Metrics.InfluxOrg,
			"bucket": cfg.Metrics.InfluxBucket,
		}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("influx sink: %w", err)
		}
		sinks = append(sinks, sink)
	}

	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, nil, nil
	case 1:
		return sinks[0], promSrv, nil
	default:
		return inframetrics.NewMultiSink(sinks...), promSrv, nil
	}
}

func applyLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
