// Package geo estimates distance and travel time between coordinates.
//
// The default estimator is the single approximation point the engine
// tolerates: great-circle distance with a fixed minutes-per-kilometer factor
// standing in for road-network routing. Substituting a real routing provider
// behind the Estimator contract changes nothing else in the engine.
package geo

import (
	"math"
	"time"

	"github.com/kilianp07/fieldsched/core/model"
)

// Estimator computes geographic distance and a travel-time estimate.
type Estimator interface {
	// Distance returns the distance between two points in kilometers.
	Distance(a, b model.Location) float64
	// TravelTime returns the estimated door-to-door travel time.
	TravelTime(a, b model.Location) time.Duration
}

const earthRadiusKm = 6371

// DefaultMinutesPerKm models average urban traffic speed.
const DefaultMinutesPerKm = 1.5

// HaversineEstimator implements Estimator with great-circle distance and a
// linear travel-time heuristic.
type HaversineEstimator struct {
	// MinutesPerKm converts distance to travel time. Zero means
	// DefaultMinutesPerKm.
	MinutesPerKm float64
}

// NewHaversineEstimator returns an estimator with the default traffic factor.
func NewHaversineEstimator() HaversineEstimator {
	return HaversineEstimator{MinutesPerKm: DefaultMinutesPerKm}
}

// Distance returns the haversine distance in kilometers.
func (e HaversineEstimator) Distance(a, b model.Location) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// TravelTime returns the distance scaled by MinutesPerKm, rounded to the
// nearest minute.
func (e HaversineEstimator) TravelTime(a, b model.Location) time.Duration {
	factor := e.MinutesPerKm
	if factor == 0 {
		factor = DefaultMinutesPerKm
	}
	minutes := math.Round(e.Distance(a, b) * factor)
	return time.Duration(minutes) * time.Minute
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
