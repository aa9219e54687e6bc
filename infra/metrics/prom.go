// Package metrics provides the concrete sinks behind the engine's metrics
// interfaces: Prometheus, InfluxDB and a fan-out combinator.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/fieldsched/core/logger"
	coremetrics "github.com/kilianp07/fieldsched/core/metrics"
)

// PromSink exposes scheduling metrics on a Prometheus registry.
type PromSink struct {
	runs         prometheus.Counter
	placed       prometheus.Counter
	unscheduled  prometheus.Counter
	degradedRuns *prometheus.CounterVec
	travel       prometheus.Histogram
	utilization  prometheus.Gauge
	confidence   prometheus.Gauge
	runDuration  prometheus.Histogram
	provider     *prometheus.CounterVec
	providerLat  *prometheus.HistogramVec
	conflicts    prometheus.Counter
}

// NewPromSink creates a PromSink registered on reg. Registering twice on the
// same registry reuses the existing collectors, so multiple engine instances
// can share one registry.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	s := &PromSink{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fieldsched_schedule_runs_total",
			Help: "Completed scheduling runs.",
		}),
		placed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fieldsched_appointments_placed_total",
			Help: "Appointments placed on an itinerary.",
		}),
		unscheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fieldsched_appointments_unscheduled_total",
			Help: "Appointments that could not be placed.",
		}),
		degradedRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldsched_degraded_runs_total",
			Help: "Runs that fell back to a degraded capability.",
		}, []string{"capability"}),
		travel: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fieldsched_itinerary_travel_minutes",
			Help:    "Total travel time per itinerary in minutes.",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		}),
		utilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fieldsched_itinerary_utilization_ratio",
			Help: "Service time over service plus travel time of the last run.",
		}),
		confidence: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fieldsched_itinerary_avg_confidence",
			Help: "Average slot confidence of the last run.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fieldsched_schedule_run_seconds",
			Help:    "Wall-clock duration of scheduling runs.",
			Buckets: prometheus.DefBuckets,
		}),
		provider: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldsched_provider_calls_total",
			Help: "External provider calls by capability, provider and outcome.",
		}, []string{"capability", "provider", "outcome"}),
		providerLat: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fieldsched_provider_call_seconds",
			Help:    "External provider call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"capability", "provider"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fieldsched_conflicts_detected_total",
			Help: "Conflicts reported by the analyzer.",
		}),
	}

	collectors := []prometheus.Collector{
		s.runs, s.placed, s.unscheduled, s.degradedRuns, s.travel,
		s.utilization, s.confidence, s.runDuration, s.provider,
		s.providerLat, s.conflicts,
	}
	for i, c := range collectors {
		if err := register(reg, c); err != nil {
			return nil, fmt.Errorf("register collector %d: %w", i, err)
		}
	}
	return s, nil
}

// register tolerates duplicate registration and keeps the first collector.
func register(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return err
		}
	}
	return nil
}

// RecordScheduleRun implements coremetrics.Sink.
func (s *PromSink) RecordScheduleRun(rec coremetrics.ScheduleRunRecord) error {
	s.runs.Inc()
	s.placed.Add(float64(rec.Placed))
	s.unscheduled.Add(float64(rec.Unscheduled))
	for _, capability := range rec.Degraded {
		s.degradedRuns.WithLabelValues(capability).Inc()
	}
	s.travel.Observe(rec.TotalTravelTime.Minutes())
	s.utilization.Set(rec.UtilizationRate)
	s.confidence.Set(rec.AverageConfidence)
	s.runDuration.Observe(rec.Duration.Seconds())
	return nil
}

// RecordProviderCall implements coremetrics.ProviderCallRecorder.
func (s *PromSink) RecordProviderCall(rec coremetrics.ProviderCallRecord) error {
	outcome := "success"
	if !rec.Success {
		outcome = "error"
	}
	s.provider.WithLabelValues(rec.Capability, rec.Provider, outcome).Inc()
	s.providerLat.WithLabelValues(rec.Capability, rec.Provider).Observe(rec.Latency.Seconds())
	return nil
}

// RecordConflicts implements coremetrics.ConflictRecorder.
func (s *PromSink) RecordConflicts(rec coremetrics.ConflictRecord) error {
	s.conflicts.Add(float64(rec.Conflicts))
	return nil
}

// StartServer exposes /metrics for the given registry on addr. It returns the
// server so the caller can shut it down.
func StartServer(addr string, g prometheus.Gatherer, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics server: %v", err)
		}
	}()
	return srv
}
