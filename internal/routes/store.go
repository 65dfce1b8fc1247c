package routes

import (
	"context"
	"errors"
	"time"

	"github.com/richxcame/transitflow/pkg/cache"
	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/resilience"
)

// BreakerStore guards a Store with a circuit breaker and reports failures
// as upstream errors. Unknown ids do not count against the store.
type BreakerStore struct {
	next    Store
	breaker *resilience.CircuitBreaker
}

// NewUpstreamStore wraps next without a breaker. Store failures are still
// reported as upstream errors.
func NewUpstreamStore(next Store) *BreakerStore {
	return &BreakerStore{next: next}
}

// NewBreakerStore wraps next. The IsSuccessful classifier of settings is
// replaced so that not-found results keep the breaker closed.
func NewBreakerStore(next Store, settings resilience.Settings) *BreakerStore {
	settings.IsSuccessful = func(err error) bool {
		return err == nil || common.IsNotFound(err)
	}
	return &BreakerStore{next: next, breaker: resilience.NewCircuitBreaker(settings)}
}

// ListActiveRoutes implements Store
func (s *BreakerStore) ListActiveRoutes(ctx context.Context) ([]*Route, error) {
	result, err := s.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return s.next.ListActiveRoutes(ctx)
	})
	if err != nil {
		return nil, upstream(err)
	}
	return result.([]*Route), nil
}

// GetRouteByID implements Store
func (s *BreakerStore) GetRouteByID(ctx context.Context, id string) (*Route, error) {
	result, err := s.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return s.next.GetRouteByID(ctx, id)
	})
	if err != nil {
		return nil, upstream(err)
	}
	return result.(*Route), nil
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
	return common.NewUpstreamError("route store unavailable", err)
}

// CachedStore serves route reads from the shared cache for a short TTL so
// repeated matches do not hit the database. Cache failures fall through to
// the wrapped store.
type CachedStore struct {
	next  Store
	cache *cache.Manager
	ttl   time.Duration
}

// NewCachedStore wraps next with a read-through cache. A non-positive ttl
// disables caching.
func NewCachedStore(next Store, manager *cache.Manager, ttl time.Duration) *CachedStore {
	return &CachedStore{next: next, cache: manager, ttl: ttl}
}

// ListActiveRoutes implements Store
func (s *CachedStore) ListActiveRoutes(ctx context.Context) ([]*Route, error) {
	if s.ttl <= 0 || s.cache == nil {
		return s.next.ListActiveRoutes(ctx)
	}

	var routes []*Route
	err := s.cache.GetOrSet(ctx, cache.Keys.ActiveRoutes(), s.ttl, &routes, func() (interface{}, error) {
		return s.next.ListActiveRoutes(ctx)
	})
	if err != nil {
		return nil, err
	}
	if routes == nil {
		routes = []*Route{}
	}
	return routes, nil
}

// GetRouteByID implements Store
func (s *CachedStore) GetRouteByID(ctx context.Context, id string) (*Route, error) {
	if s.ttl <= 0 || s.cache == nil {
		return s.next.GetRouteByID(ctx, id)
	}

	var route Route
	err := s.cache.GetOrSet(ctx, cache.Keys.Route(id), s.ttl, &route, func() (interface{}, error) {
		return s.next.GetRouteByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &route, nil
}
