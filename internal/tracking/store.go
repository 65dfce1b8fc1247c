package tracking

import (
	"context"
	"errors"

	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/geo"
	"github.com/richxcame/transitflow/pkg/resilience"
)

// BreakerStore guards a VehicleStore with a circuit breaker
type BreakerStore struct {
	next    VehicleStore
	breaker *resilience.CircuitBreaker
}

// NewUpstreamStore wraps next without a breaker. Store failures are still
// reported as upstream errors.
func NewUpstreamStore(next VehicleStore) *BreakerStore {
	return &BreakerStore{next: next}
}

// NewBreakerStore wraps next. Unknown vehicles keep the breaker closed.
func NewBreakerStore(next VehicleStore, settings resilience.Settings) *BreakerStore {
	settings.IsSuccessful = func(err error) bool {
		return err == nil || common.IsNotFound(err)
	}
	return &BreakerStore{next: next, breaker: resilience.NewCircuitBreaker(settings)}
}

// RecordVehiclePosition implements PositionStore
func (s *BreakerStore) RecordVehiclePosition(ctx context.Context, vehicleID string, location geo.Point) error {
	_, err := s.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, s.next.RecordVehiclePosition(ctx, vehicleID, location)
	})
	if err != nil {
		return upstream(err)
	}
	return nil
}

// ListActiveVehicles implements VehicleStore
func (s *BreakerStore) ListActiveVehicles(ctx context.Context, routeID string) ([]*Vehicle, error) {
	result, err := s.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return s.next.ListActiveVehicles(ctx, routeID)
	})
	if err != nil {
		return nil, upstream(err)
	}
	return result.([]*Vehicle), nil
}

// Healthy reports whether the breaker currently lets requests through.
func (s *BreakerStore) Healthy() error {
	if s.breaker != nil && !s.breaker.Allow() {
		return resilience.ErrCircuitOpen
	}
	return nil
}

func (s *BreakerStore) execute(ctx context.Context, op resilience.Operation) (interface{}, error) {
	if s.breaker == nil {
		return op(ctx)
	}
	return s.breaker.Execute(ctx, op)
}

func upstream(err error) error {
	var appErr *common.AppError
	if errors.As(err, &appErr) && appErr.Code < 500 {
		return err
	}
	if common.IsUpstream(err) {
		return err
	}
	return common.NewUpstreamError("vehicle store unavailable", err)
}
