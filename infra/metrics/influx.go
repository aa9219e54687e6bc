package metrics

import (
	"context"
	"net/http"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/fieldsched/core/metrics"
	"github.com/kilianp07/fieldsched/infra/logger"
)

// InfluxConfig configures the InfluxDB sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes scheduling records to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails. Metrics must never take the engine down.
func NewInfluxSinkWithFallback(cfg InfluxConfig, log logger.Logger) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			log.Warnf("influx health check error, metrics disabled: %v", err)
		} else {
			log.Warnf("influx health status %s, metrics disabled", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordScheduleRun implements coremetrics.Sink.
func (s *InfluxSink) RecordScheduleRun(rec coremetrics.ScheduleRunRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_run").
		AddTag("itinerary", rec.ItineraryID).
		AddField("requested", rec.Requested).
		AddField("placed", rec.Placed).
		AddField("unscheduled", rec.Unscheduled).
		AddField("travel_minutes", rec.TotalTravelTime.Minutes()).
		AddField("utilization", rec.UtilizationRate).
		AddField("avg_confidence", rec.AverageConfidence).
		AddField("holidays_considered", rec.HolidaysConsidered).
		AddField("degraded", len(rec.Degraded)).
		AddField("duration_ms", rec.Duration.Milliseconds()).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordProviderCall implements coremetrics.ProviderCallRecorder.
func (s *InfluxSink) RecordProviderCall(rec coremetrics.ProviderCallRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("provider_call").
		AddTag("capability", rec.Capability).
		AddTag("provider", rec.Provider).
		AddTag("outcome", outcome(rec.Success)).
		AddField("latency_ms", rec.Latency.Milliseconds()).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordConflicts implements coremetrics.ConflictRecorder.
func (s *InfluxSink) RecordConflicts(rec coremetrics.ConflictRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("conflict_analysis").
		AddField("conflicts", rec.Conflicts).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close flushes and releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
