// Package route orders a set of stops to minimize travel. The built-in
// optimizer is a greedy nearest-neighbor heuristic, an O(n²) approximation of
// the underlying vehicle-routing problem. Implementations with better bounds
// (2-opt, external VRP solvers) can be substituted behind the Optimizer
// interface without touching callers.
package route

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/fieldsched/core/geo"
	"github.com/kilianp07/fieldsched/core/model"
)

// ErrOptimizationFailed is returned when an external route optimizer errors.
// Callers are expected to fall back to the internal heuristic.
var ErrOptimizationFailed = errors.New("route optimization failed")

// Constraints bound a route computation. All fields are optional. The
// built-in heuristic honors StartLocation and EndLocation and enforces
// MaxTotalTime and MaxDistance on the assembled result; VehicleCapacity and
// WorkingHours are carried for external providers that price them in and
// are otherwise ignored.
type Constraints struct {
	StartLocation   *model.Location
	EndLocation     *model.Location
	VehicleCapacity int
	WorkingHours    *model.WorkingHours
	MaxTotalTime    time.Duration
	MaxDistance     float64 // kilometers
}

// Leg is one hop of the optimized route. From and To index the original
// waypoint slice; From is -1 for the leg leaving the start location.
type Leg struct {
	From     int
	To       int
	Distance float64 // kilometers
	Duration time.Duration
}

// Savings compares the optimized route against visiting the waypoints in
// input order.
type Savings struct {
	Distance float64 // kilometers
	Duration time.Duration
}

// Result is the outcome of one optimization.
type Result struct {
	// Order is a permutation of the input indices: every waypoint appears
	// exactly once.
	Order         []int
	Legs          []Leg
	TotalDistance float64
	TotalDuration time.Duration
	Savings       Savings
}

// Optimizer orders waypoints to minimize travel.
type Optimizer interface {
	Optimize(ctx context.Context, waypoints []model.Location, cons *Constraints) (Result, error)
	// Name identifies the optimizer implementation.
	Name() string
}

// NearestNeighbor is the internal greedy optimizer. At each step it visits
// the closest unvisited waypoint; ties break on the lower input index so that
// identical inputs always produce identical routes.
type NearestNeighbor struct {
	est geo.Estimator
}

// NewNearestNeighbor creates the internal optimizer.
func NewNearestNeighbor(est geo.Estimator) NearestNeighbor {
	return NearestNeighbor{est: est}
}

func (NearestNeighbor) Name() string { return "nearest-neighbor" }

// Optimize orders the waypoints. Fewer than three waypoints keep their input
// order; there is nothing to reorder.
func (o NearestNeighbor) Optimize(_ context.Context, waypoints []model.Location, cons *Constraints) (Result, error) {
	if len(waypoints) < 2 {
		return Result{}, fmt.Errorf("%w: at least 2 waypoints required, got %d", model.ErrInvalidInput, len(waypoints))
	}
	for i, wp := range waypoints {
		if err := wp.Validate(); err != nil {
			return Result{}, fmt.Errorf("%w: waypoint %d: %v", model.ErrInvalidInput, i, err)
		}
	}

	order := o.order(waypoints, cons)
	res := o.assemble(waypoints, order, cons)

	identity := make([]int, len(waypoints))
	for i := range identity {
		identity[i] = i
	}
	base := o.assemble(waypoints, identity, cons)
	res.Savings = Savings{
		Distance: base.TotalDistance - res.TotalDistance,
		Duration: base.TotalDuration - res.TotalDuration,
	}
	if err := CheckBounds(res, cons); err != nil {
		return Result{}, err
	}
	return res, nil
}

// CheckBounds rejects a result exceeding the caller's route budgets.
// Optimizers call it on their assembled result before returning.
func CheckBounds(res Result, cons *Constraints) error {
	if cons == nil {
		return nil
	}
	if cons.MaxTotalTime > 0 && res.TotalDuration > cons.MaxTotalTime {
		return fmt.Errorf("%w: total duration %s exceeds limit %s",
			ErrOptimizationFailed, res.TotalDuration, cons.MaxTotalTime)
	}
	if cons.MaxDistance > 0 && res.TotalDistance > cons.MaxDistance {
		return fmt.Errorf("%w: total distance %.1fkm exceeds limit %.1fkm",
			ErrOptimizationFailed, res.TotalDistance, cons.MaxDistance)
	}
	return nil
}

func (o NearestNeighbor) order(waypoints []model.Location, cons *Constraints) []int {
	n := len(waypoints)
	order := make([]int, 0, n)
	if n < 3 && (cons == nil || cons.StartLocation == nil) {
		for i := 0; i < n; i++ {
			order = append(order, i)
		}
		return order
	}

	visited := make([]bool, n)
	var current model.Location
	if cons != nil && cons.StartLocation != nil {
		current = *cons.StartLocation
	} else {
		current = waypoints[0]
		visited[0] = true
		order = append(order, 0)
	}

	for len(order) < n {
		best := -1
		var bestDist float64
		for i := 0; i < n; i++ {
			if visited[i] {
				continue
			}
			d := o.est.Distance(current, waypoints[i])
			// Strict less-than keeps the lowest index on ties.
			if best == -1 || d < bestDist {
				best = i
				bestDist = d
			}
		}
		visited[best] = true
		order = append(order, best)
		current = waypoints[best]
	}
	return order
}

// assemble computes legs and totals for a given visiting order.
func (o NearestNeighbor) assemble(waypoints []model.Location, order []int, cons *Constraints) Result {
	res := Result{Order: order}
	prev := -1
	var prevLoc model.Location
	if cons != nil && cons.StartLocation != nil {
		prevLoc = *cons.StartLocation
	} else {
		prev = order[0]
		prevLoc = waypoints[order[0]]
	}

	start := 0
	if prev >= 0 {
		start = 1
	}
	for _, idx := range order[start:] {
		leg := Leg{
			From:     prev,
			To:       idx,
			Distance: o.est.Distance(prevLoc, waypoints[idx]),
			Duration: o.est.TravelTime(prevLoc, waypoints[idx]),
		}
		res.Legs = append(res.Legs, leg)
		prev = idx
		prevLoc = waypoints[idx]
	}
	if cons != nil && cons.EndLocation != nil {
		res.Legs = append(res.Legs, Leg{
			From:     prev,
			To:       -1,
			Distance: o.est.Distance(prevLoc, *cons.EndLocation),
			Duration: o.est.TravelTime(prevLoc, *cons.EndLocation),
		})
	}

	dists := make([]float64, len(res.Legs))
	for i, l := range res.Legs {
		dists[i] = l.Distance
		res.TotalDuration += l.Duration
	}
	res.TotalDistance = floats.Sum(dists)
	return res
}
