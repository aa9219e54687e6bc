package route

import (
	"context"
	"errors"

	"github.com/kilianp07/fieldsched/core/events"
	"github.com/kilianp07/fieldsched/core/logger"
	"github.com/kilianp07/fieldsched/core/model"
	"github.com/kilianp07/fieldsched/internal/eventbus"
)

// WithFallback tries a primary optimizer (typically an external routing
// provider) and falls back to the internal nearest-neighbor heuristic when
// it errors. Invalid input is not retried: it would fail on any optimizer.
type WithFallback struct {
	primary  Optimizer
	fallback Optimizer
	log      logger.Logger
	bus      eventbus.EventBus
}

// NewWithFallback wires a primary optimizer with the internal fallback. The
// bus is optional.
func NewWithFallback(primary, fallback Optimizer, log logger.Logger, bus eventbus.EventBus) *WithFallback {
	return &WithFallback{primary: primary, fallback: fallback, log: log, bus: bus}
}

func (f *WithFallback) Name() string { return f.primary.Name() + "+" + f.fallback.Name() }

// Optimize runs the primary optimizer, degrading to the fallback on error.
func (f *WithFallback) Optimize(ctx context.Context, waypoints []model.Location, cons *Constraints) (Result, error) {
	res, err := f.primary.Optimize(ctx, waypoints, cons)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, model.ErrInvalidInput) {
		return Result{}, err
	}
	f.log.Warnf("optimizer %s failed, using %s: %v", f.primary.Name(), f.fallback.Name(), err)
	eventbus.Publish(f.bus, events.RouteFallbackEvent{Provider: f.primary.Name(), Err: err})
	return f.fallback.Optimize(ctx, waypoints, cons)
}
