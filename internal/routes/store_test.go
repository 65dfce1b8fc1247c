package routes

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/richxcame/transitflow/pkg/cache"
	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/geo"
	"github.com/richxcame/transitflow/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func breakerSettings(name string) resilience.Settings {
	return resilience.Settings{
		Name:             name,
		Timeout:          time.Minute,
		Interval:         time.Minute,
		FailureThreshold: 2,
		SuccessThreshold: 1,
	}
}

func TestBreakerStore_NotFoundPassesThrough(t *testing.T) {
	next := new(mockStore)
	next.On("GetRouteByID", mock.Anything, "missing").
		Return(nil, common.NewNotFoundError("route not found", nil)).Times(3)

	store := NewBreakerStore(next, breakerSettings("routes-notfound"))
	for i := 0; i < 3; i++ {
		_, err := store.GetRouteByID(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, common.IsNotFound(err))
	}
	assert.NoError(t, store.Healthy())
	next.AssertExpectations(t)
}

func TestBreakerStore_FailuresBecomeUpstream(t *testing.T) {
	next := new(mockStore)
	next.On("ListActiveRoutes", mock.Anything).Return(nil, errors.New("connection refused")).Times(2)

	store := NewBreakerStore(next, breakerSettings("routes-upstream"))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := store.ListActiveRoutes(ctx)
		require.Error(t, err)
		assert.True(t, common.IsUpstream(err))

		var appErr *common.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, http.StatusServiceUnavailable, appErr.Code)
		assert.Equal(t, common.CodeUpstream, appErr.ErrorCode)
	}

	// breaker is open now; the store is not called again
	_, err := store.ListActiveRoutes(ctx)
	require.Error(t, err)
	assert.True(t, common.IsUpstream(err))
	assert.True(t, errors.Is(err, resilience.ErrCircuitOpen))
	assert.Error(t, store.Healthy())
	next.AssertExpectations(t)
}

func TestBreakerStore_Success(t *testing.T) {
	route := newRoute("r1", 1, stop("o", 0, 0), stop("d", 0, 1))
	next := new(mockStore)
	next.On("ListActiveRoutes", mock.Anything).Return([]*Route{route}, nil)
	next.On("GetRouteByID", mock.Anything, "r1").Return(route, nil)

	store := NewBreakerStore(next, breakerSettings("routes-ok"))

	routes, err := store.ListActiveRoutes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []*Route{route}, routes)

	got, err := store.GetRouteByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Same(t, route, got)
}

func TestCachedStore_ReadThrough(t *testing.T) {
	route := newRoute("r1", 1, stop("o", 0, 0), stop("d", 0, 1), stop("w", 0, 0.5))
	next := new(mockStore)
	next.On("ListActiveRoutes", mock.Anything).Return([]*Route{route}, nil).Once()
	next.On("GetRouteByID", mock.Anything, "r1").Return(route, nil).Once()

	store := NewCachedStore(next, cache.NewManager(newMemoryCache()), time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		routes, err := store.ListActiveRoutes(ctx)
		require.NoError(t, err)
		require.Len(t, routes, 1)
		assert.Equal(t, "r1", routes[0].ID)
		assert.Equal(t, route.Waypoints, routes[0].Waypoints)
	}

	for i := 0; i < 2; i++ {
		got, err := store.GetRouteByID(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, route.Origin, got.Origin)
	}

	next.AssertExpectations(t)
}

func TestCachedStore_NotFoundIsNotCached(t *testing.T) {
	next := new(mockStore)
	next.On("GetRouteByID", mock.Anything, "missing").
		Return(nil, common.NewNotFoundError("route not found", nil)).Twice()

	store := NewCachedStore(next, cache.NewManager(newMemoryCache()), time.Minute)
	for i := 0; i < 2; i++ {
		_, err := store.GetRouteByID(context.Background(), "missing")
		assert.True(t, common.IsNotFound(err))
	}
	next.AssertExpectations(t)
}

func TestCachedStore_Disabled(t *testing.T) {
	next := new(mockStore)
	next.On("ListActiveRoutes", mock.Anything).Return([]*Route{}, nil).Twice()

	store := NewCachedStore(next, cache.NewManager(newMemoryCache()), 0)
	for i := 0; i < 2; i++ {
		_, err := store.ListActiveRoutes(context.Background())
		require.NoError(t, err)
	}
	next.AssertExpectations(t)
}

func TestUpstreamStore_WithoutBreaker(t *testing.T) {
	store := NewUpstreamStore(NewRepository(&fakeDB{queryErr: errors.New("dial tcp: connection refused")}))
	svc := NewService(store, NewMatcher(DefaultMatchRadiusMeters, DefaultFallbackSize), NewPlanner())

	_, err := svc.FindOptimalRoutes(context.Background(), geo.Point{Latitude: 0, Longitude: 0}, geo.Point{Latitude: 0, Longitude: 1})
	require.Error(t, err)
	assert.True(t, common.IsUpstream(err))

	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Code)
	assert.NoError(t, store.Healthy())
}

func TestUpstreamStore_NotFoundPassesThrough(t *testing.T) {
	store := NewUpstreamStore(NewRepository(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}}))

	_, err := store.GetRouteByID(context.Background(), "missing")
	assert.True(t, common.IsNotFound(err))
	assert.False(t, common.IsUpstream(err))
}
