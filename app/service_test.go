package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fieldsched/config"
	"github.com/kilianp07/fieldsched/core/compose"
	"github.com/kilianp07/fieldsched/core/model"
)

func defaultConfig() *config.Config {
	cfg := &config.Config{}
	cfg.SetDefaults()
	return cfg
}

func TestServiceWiresBuiltinProviders(t *testing.T) {
	svc, err := New(defaultConfig())
	require.NoError(t, err)
	defer svc.Close(context.Background())

	assert.Equal(t, "nearest-neighbor", svc.ProviderStatus().Active["routing"])

	it, err := svc.Schedule(context.Background(), compose.Request{
		AgentLocation: model.Location{Lat: 32.7767, Lng: -96.7970},
		Appointments: []model.AppointmentRequest{
			{ID: "a", Location: model.Location{Lat: 32.8140, Lng: -96.9489}, DurationMinutes: 60, Priority: 5},
		},
		DateRange: model.TimeWindow{
			Start: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)
	assert.Len(t, it.Schedule, 1)
	assert.Empty(t, it.Degraded)
}

func TestServiceRejectsUnknownProviders(t *testing.T) {
	cfg := defaultConfig()
	cfg.Providers.Holiday.Type = "nager"
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = defaultConfig()
	cfg.Providers.Timezone.Type = "geoip"
	_, err = New(cfg)
	assert.Error(t, err)

	cfg = defaultConfig()
	cfg.Providers.Routing.Type = "osrm"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestServiceRejectsMisconfiguredProvider(t *testing.T) {
	cfg := defaultConfig()
	cfg.Providers.Holiday.Type = "calendarific"
	// Missing api_key.
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestServiceExternalRoutingGetsFallback(t *testing.T) {
	cfg := defaultConfig()
	cfg.Providers.Routing.Type = "geoapify"
	cfg.Providers.Routing.Conf = map[string]any{"api_key": "k"}

	svc, err := New(cfg)
	require.NoError(t, err)
	defer svc.Close(context.Background())

	assert.Equal(t, "geoapify+nearest-neighbor", svc.ProviderStatus().Active["routing"])
}

func TestProviderStatusCoversAllCapabilities(t *testing.T) {
	svc, err := New(defaultConfig())
	require.NoError(t, err)
	defer svc.Close(context.Background())

	st := svc.ProviderStatus()
	assert.Equal(t, map[string]string{
		"holiday":  "builtin",
		"timezone": "static",
		"routing":  "nearest-neighbor",
	}, st.Active)
	assert.Equal(t, []string{"builtin", "calendarific"}, st.Registered["holiday"])
	assert.Equal(t, []string{"static", "worldtime"}, st.Registered["timezone"])
	assert.Equal(t, []string{"geoapify", "internal"}, st.Registered["routing"])
	assert.Equal(t, []string{"influx", "prometheus"}, st.Registered["metrics"])
}
