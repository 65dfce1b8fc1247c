package tracking

import (
	"context"

	"github.com/richxcame/transitflow/internal/routes"
	"github.com/richxcame/transitflow/pkg/geo"
	"github.com/richxcame/transitflow/pkg/websocket"
	"github.com/stretchr/testify/mock"
)

// mockVehicleStore implements VehicleStore
type mockVehicleStore struct {
	mock.Mock
}

func (m *mockVehicleStore) RecordVehiclePosition(ctx context.Context, vehicleID string, location geo.Point) error {
	args := m.Called(ctx, vehicleID, location)
	return args.Error(0)
}

func (m *mockVehicleStore) ListActiveVehicles(ctx context.Context, routeID string) ([]*Vehicle, error) {
	args := m.Called(ctx, routeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Vehicle), args.Error(1)
}

// mockLiveCache implements LiveCache
type mockLiveCache struct {
	mock.Mock
}

func (m *mockLiveCache) SavePosition(ctx context.Context, pos *VehiclePosition) error {
	args := m.Called(ctx, pos)
	return args.Error(0)
}

func (m *mockLiveCache) GetPosition(ctx context.Context, vehicleID string) (*VehiclePosition, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*VehiclePosition), args.Error(1)
}

func (m *mockLiveCache) RoutePositions(ctx context.Context, routeID string) ([]*VehiclePosition, error) {
	args := m.Called(ctx, routeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*VehiclePosition), args.Error(1)
}

func (m *mockLiveCache) LivePositions(ctx context.Context) ([]*VehiclePosition, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*VehiclePosition), args.Error(1)
}

func (m *mockLiveCache) Nearby(ctx context.Context, point geo.Point, radiusMeters float64, limit int) ([]NearbyVehicle, error) {
	args := m.Called(ctx, point, radiusMeters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]NearbyVehicle), args.Error(1)
}

func (m *mockLiveCache) SaveTrip(ctx context.Context, trip *Trip) error {
	args := m.Called(ctx, trip)
	return args.Error(0)
}

func (m *mockLiveCache) GetTrip(ctx context.Context, driverID string) (*Trip, error) {
	args := m.Called(ctx, driverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Trip), args.Error(1)
}

func (m *mockLiveCache) DeleteTrip(ctx context.Context, driverID string) error {
	args := m.Called(ctx, driverID)
	return args.Error(0)
}

// mockRouteLookup implements RouteLookup
type mockRouteLookup struct {
	mock.Mock
}

func (m *mockRouteLookup) GetRoute(ctx context.Context, routeID string) (*routes.Route, error) {
	args := m.Called(ctx, routeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*routes.Route), args.Error(1)
}

// mockBroadcaster implements Broadcaster
type mockBroadcaster struct {
	mock.Mock
}

func (m *mockBroadcaster) BroadcastLocation(ctx context.Context, sender websocket.Subscriber, update LocationUpdate) error {
	args := m.Called(ctx, sender, update)
	return args.Error(0)
}

type testDeps struct {
	store       *mockVehicleStore
	live        *mockLiveCache
	routes      *mockRouteLookup
	broadcaster *mockBroadcaster
}

func newTestService() (*Service, *testDeps) {
	deps := &testDeps{
		store:       new(mockVehicleStore),
		live:        new(mockLiveCache),
		routes:      new(mockRouteLookup),
		broadcaster: new(mockBroadcaster),
	}
	svc := NewService(deps.store, deps.live, deps.routes)
	svc.SetBroadcaster(deps.broadcaster)
	return svc, deps
}

func activeRoute(id string) *routes.Route {
	return &routes.Route{ID: id, Name: "Route " + id, Active: true}
}
