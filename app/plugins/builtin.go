package plugins

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/fieldsched/core/factory"
	"github.com/kilianp07/fieldsched/core/geo"
	"github.com/kilianp07/fieldsched/core/holiday"
	"github.com/kilianp07/fieldsched/core/logger"
	coremetrics "github.com/kilianp07/fieldsched/core/metrics"
	"github.com/kilianp07/fieldsched/core/route"
	"github.com/kilianp07/fieldsched/core/timezone"
	inframetrics "github.com/kilianp07/fieldsched/infra/metrics"
	"github.com/kilianp07/fieldsched/infra/providers"
)

// httpConf is the shared shape of the HTTP provider config sections.
type httpConf struct {
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url"`
	Mode           string `json:"mode"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	Attempts       uint   `json:"attempts"`
}

func (c httpConf) timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func init() {
	RegisterHoliday("builtin", func(_ map[string]any, _ logger.Logger, _ coremetrics.ProviderCallRecorder) (holiday.Calendar, error) {
		return holiday.BuiltinUS{}, nil
	})
	RegisterHoliday("calendarific", func(conf map[string]any, log logger.Logger, rec coremetrics.ProviderCallRecorder) (holiday.Calendar, error) {
		var c httpConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return providers.NewCalendarific(providers.CalendarificConfig{
			APIKey:   c.APIKey,
			BaseURL:  c.BaseURL,
			Timeout:  c.timeout(),
			Attempts: c.Attempts,
		}, log, rec)
	})

	RegisterTimezone("static", func(_ map[string]any, _ coremetrics.ProviderCallRecorder) (timezone.Resolver, error) {
		return timezone.StaticResolver{}, nil
	})
	RegisterTimezone("worldtime", func(conf map[string]any, rec coremetrics.ProviderCallRecorder) (timezone.Resolver, error) {
		var c httpConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return providers.NewWorldTime(providers.WorldTimeConfig{
			BaseURL:  c.BaseURL,
			Timeout:  c.timeout(),
			Attempts: c.Attempts,
		}, rec), nil
	})

	RegisterRouting("internal", func(_ map[string]any, est geo.Estimator, _ coremetrics.ProviderCallRecorder) (route.Optimizer, error) {
		return route.NewNearestNeighbor(est), nil
	})
	RegisterRouting("geoapify", func(conf map[string]any, _ geo.Estimator, rec coremetrics.ProviderCallRecorder) (route.Optimizer, error) {
		var c httpConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return providers.NewGeoapify(providers.GeoapifyConfig{
			APIKey:   c.APIKey,
			BaseURL:  c.BaseURL,
			Mode:     c.Mode,
			Timeout:  c.timeout(),
			Attempts: c.Attempts,
		}, rec)
	})

	RegisterMetrics("prometheus", func(_ map[string]any, _ logger.Logger) (coremetrics.Sink, error) {
		return inframetrics.NewPromSink(prometheus.DefaultRegisterer)
	})
	RegisterMetrics("influx", func(conf map[string]any, log logger.Logger) (coremetrics.Sink, error) {
		var c inframetrics.InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return inframetrics.NewInfluxSinkWithFallback(c, log), nil
	})
}
