package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fieldsched/core/holiday"
	"github.com/kilianp07/fieldsched/core/model"
	"github.com/kilianp07/fieldsched/core/route"
	"github.com/kilianp07/fieldsched/core/timezone"
	"github.com/kilianp07/fieldsched/infra/logger"
)

const calendarificBody = `{
	"response": {
		"holidays": [
			{
				"name": "Independence Day",
				"description": "Fourth of July",
				"type": ["National holiday"],
				"date": {"iso": "2024-07-04"}
			},
			{
				"name": "Halloween",
				"description": "Spooky",
				"type": ["Observance"],
				"date": {"iso": "2024-10-31T00:00:00"}
			}
		]
	}
}`

func TestCalendarificMapsHolidays(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "US", r.URL.Query().Get("country"))
		assert.Equal(t, "us-tx", r.URL.Query().Get("location"))
		w.Write([]byte(calendarificBody))
	}))
	defer srv.Close()

	cal, err := NewCalendarific(CalendarificConfig{APIKey: "test-key", BaseURL: srv.URL}, logger.NopLogger{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "calendarific", cal.Name())

	hs, err := cal.Holidays(context.Background(), holiday.Query{Year: 2024, Country: "US", State: "TX"})
	require.NoError(t, err)
	require.Len(t, hs, 2)

	assert.Equal(t, "Independence Day", hs[0].Name)
	assert.True(t, hs[0].AffectsBusiness)
	assert.Equal(t, time.Date(2024, time.July, 4, 0, 0, 0, 0, time.UTC), hs[0].Date)

	assert.Equal(t, "Halloween", hs[1].Name)
	assert.False(t, hs[1].AffectsBusiness)
	assert.Equal(t, time.Date(2024, time.October, 31, 0, 0, 0, 0, time.UTC), hs[1].Date)

	// The second identical query is served from the cache.
	_, err = cal.Holidays(context.Background(), holiday.Query{Year: 2024, Country: "US", State: "TX"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCalendarificObservancesQuerySeparately(t *testing.T) {
	var types []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		types = append(types, r.URL.Query().Get("type"))
		w.Write([]byte(calendarificBody))
	}))
	defer srv.Close()

	cal, err := NewCalendarific(CalendarificConfig{APIKey: "k", BaseURL: srv.URL}, logger.NopLogger{}, nil)
	require.NoError(t, err)

	_, err = cal.Holidays(context.Background(), holiday.Query{Year: 2024, Country: "US"})
	require.NoError(t, err)
	_, err = cal.Holidays(context.Background(), holiday.Query{Year: 2024, Country: "US", IncludeObservances: true})
	require.NoError(t, err)

	// The observances query is a distinct request with the wider type
	// filter, not a hit on the narrow query's cache entry.
	require.Len(t, types, 2)
	assert.Equal(t, "national", types[0])
	assert.Equal(t, "national,local,religious,observance", types[1])

	// Each shape caches independently afterwards.
	_, err = cal.Holidays(context.Background(), holiday.Query{Year: 2024, Country: "US", IncludeObservances: true})
	require.NoError(t, err)
	assert.Len(t, types, 2)
}

func TestCalendarificRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(calendarificBody))
	}))
	defer srv.Close()

	cal, err := NewCalendarific(CalendarificConfig{APIKey: "k", BaseURL: srv.URL}, logger.NopLogger{}, nil)
	require.NoError(t, err)

	hs, err := cal.Holidays(context.Background(), holiday.Query{Year: 2024, Country: "US"})
	require.NoError(t, err)
	assert.Len(t, hs, 2)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCalendarificDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cal, err := NewCalendarific(CalendarificConfig{APIKey: "bad", BaseURL: srv.URL}, logger.NopLogger{}, nil)
	require.NoError(t, err)

	_, err = cal.Holidays(context.Background(), holiday.Query{Year: 2024, Country: "US"})
	assert.ErrorIs(t, err, holiday.ErrProviderUnavailable)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCalendarificRequiresAPIKey(t *testing.T) {
	_, err := NewCalendarific(CalendarificConfig{}, logger.NopLogger{}, nil)
	assert.Error(t, err)
}

func TestWorldTimeResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/timezone/America/Chicago", r.URL.Path)
		w.Write([]byte(`{
			"timezone": "America/Chicago",
			"abbreviation": "CST",
			"utc_offset": "-06:00",
			"dst": false
		}`))
	}))
	defer srv.Close()

	wt := NewWorldTime(WorldTimeConfig{BaseURL: srv.URL}, nil)
	assert.Equal(t, "worldtime", wt.Name())

	// Dallas.
	info, err := wt.Resolve(context.Background(), 32.7767, -96.7970)
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", info.ZoneID)
	assert.Equal(t, -360, info.OffsetMinutes)
	assert.Equal(t, "CST", info.Abbreviation)
	assert.False(t, info.ObservesDST)
}

func TestWorldTimeFailureIsProviderUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	wt := NewWorldTime(WorldTimeConfig{BaseURL: srv.URL}, nil)
	_, err := wt.Resolve(context.Background(), 32.7767, -96.7970)
	assert.ErrorIs(t, err, timezone.ErrProviderUnavailable)
}

func TestParseUTCOffset(t *testing.T) {
	cases := map[string]int{
		"+05:30": 330,
		"-06:00": -360,
		"+00:00": 0,
	}
	for in, want := range cases {
		got, err := parseUTCOffset(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseUTCOffset("garbage")
	assert.Error(t, err)
}

// matrixFixture builds a 3x3 road-time matrix where waypoint 2 is closest to
// 0 and waypoint 1 closest to 2, so the greedy order is {0, 2, 1}.
func matrixFixture() matrixResponse {
	times := [3][3]float64{
		{0, 3000, 1000},
		{3000, 0, 1500},
		{1000, 1500, 0},
	}
	var resp matrixResponse
	for i := 0; i < 3; i++ {
		row := make([]struct {
			Distance float64 `json:"distance"`
			Time     float64 `json:"time"`
		}, 3)
		for j := 0; j < 3; j++ {
			row[j].Time = times[i][j]
			row[j].Distance = times[i][j] * 20 // meters
		}
		resp.SourcesToTargets = append(resp.SourcesToTargets, row)
	}
	return resp
}

func TestGeoapifyOptimizesOnRoadMatrix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.URL.Query().Get("apiKey"))

		var req matrixRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "drive", req.Mode)
		require.Len(t, req.Sources, 3)

		require.NoError(t, json.NewEncoder(w).Encode(matrixFixture()))
	}))
	defer srv.Close()

	g, err := NewGeoapify(GeoapifyConfig{APIKey: "secret", BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	assert.Equal(t, "geoapify", g.Name())

	waypoints := []model.Location{
		{Lat: 32.77, Lng: -96.79},
		{Lat: 32.75, Lng: -97.33},
		{Lat: 32.81, Lng: -96.94},
	}
	res, err := g.Optimize(context.Background(), waypoints, nil)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2, 1}, res.Order)
	require.Len(t, res.Legs, 2)
	assert.Equal(t, 0, res.Legs[0].From)
	assert.Equal(t, 2, res.Legs[0].To)
	assert.InDelta(t, 20.0, res.Legs[0].Distance, 1e-9) // 1000s * 20m / 1000
	assert.Equal(t, 2500*time.Second, res.TotalDuration)
	assert.True(t, res.Savings.Duration > 0)
}

func TestGeoapifyFailureIsOptimizationFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g, err := NewGeoapify(GeoapifyConfig{APIKey: "k", BaseURL: srv.URL, Attempts: 1}, nil)
	require.NoError(t, err)

	_, err = g.Optimize(context.Background(), []model.Location{
		{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2},
	}, nil)
	assert.ErrorIs(t, err, route.ErrOptimizationFailed)
}
