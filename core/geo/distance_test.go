package geo

import (
	"math"
	"testing"
	"time"

	"github.com/kilianp07/fieldsched/core/model"
)

var (
	dallas  = model.Location{Lat: 32.7767, Lng: -96.7970}
	houston = model.Location{Lat: 29.7604, Lng: -95.3698}
)

func TestDistanceKnownPair(t *testing.T) {
	e := NewHaversineEstimator()
	d := e.Distance(dallas, houston)
	// Dallas to Houston is roughly 362 km great-circle.
	if d < 350 || d > 375 {
		t.Fatalf("unexpected distance %.1f km", d)
	}
}

func TestDistanceZero(t *testing.T) {
	e := NewHaversineEstimator()
	if d := e.Distance(dallas, dallas); d != 0 {
		t.Fatalf("expected zero distance, got %v", d)
	}
}

func TestDistanceSymmetry(t *testing.T) {
	e := NewHaversineEstimator()
	ab := e.Distance(dallas, houston)
	ba := e.Distance(houston, dallas)
	if math.Abs(ab-ba) > 1e-9 {
		t.Fatalf("distance not symmetric: %v vs %v", ab, ba)
	}
}

func TestTravelTimeFactor(t *testing.T) {
	e := NewHaversineEstimator()
	d := e.Distance(dallas, houston)
	want := time.Duration(math.Round(d*DefaultMinutesPerKm)) * time.Minute
	if got := e.TravelTime(dallas, houston); got != want {
		t.Fatalf("expected %v got %v", want, got)
	}
}

func TestTravelTimeZeroFactorDefaults(t *testing.T) {
	e := HaversineEstimator{}
	if e.TravelTime(dallas, houston) == 0 {
		t.Fatalf("zero factor should fall back to default")
	}
}
