package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/richxcame/transitflow/internal/routes"
	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var observedAt = time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)

func samplePush() LocationPush {
	return LocationPush{
		DriverID:  "driver-1",
		VehicleID: "bus-7",
		RouteID:   "r1",
		Location:  geo.Point{Latitude: 37.95, Longitude: 58.38},
		Timestamp: observedAt,
	}
}

func TestPushLocation_BroadcastsAndRecords(t *testing.T) {
	svc, deps := newTestService()
	push := samplePush()

	deps.broadcaster.On("BroadcastLocation", mock.Anything, nil, push.Update()).Return(nil)
	deps.store.On("RecordVehiclePosition", mock.Anything, "bus-7", push.Location).Return(nil)
	deps.live.On("SavePosition", mock.Anything, mock.MatchedBy(func(p *VehiclePosition) bool {
		return p.VehicleID == "bus-7" && p.RouteID == "r1" && p.H3Cell != ""
	})).Return(nil)

	pos, err := svc.PushLocation(context.Background(), push)
	require.NoError(t, err)
	assert.Equal(t, "bus-7", pos.VehicleID)
	assert.Equal(t, "driver-1", pos.DriverID)
	assert.Equal(t, observedAt, pos.ObservedAt)
	assert.Equal(t, geo.VehicleCell(push.Location), pos.H3Cell)

	deps.broadcaster.AssertExpectations(t)
	deps.store.AssertExpectations(t)
	deps.live.AssertExpectations(t)
}

func TestPushLocation_BroadcastFailureDoesNotFailWrite(t *testing.T) {
	svc, deps := newTestService()
	push := samplePush()

	deps.broadcaster.On("BroadcastLocation", mock.Anything, nil, push.Update()).Return(errors.New("nats down"))
	deps.store.On("RecordVehiclePosition", mock.Anything, "bus-7", push.Location).Return(nil)
	deps.live.On("SavePosition", mock.Anything, mock.Anything).Return(nil)

	pos, err := svc.PushLocation(context.Background(), push)
	require.NoError(t, err)
	assert.NotNil(t, pos)
	deps.store.AssertExpectations(t)
}

func TestPushLocation_WriteFailureStillBroadcasts(t *testing.T) {
	svc, deps := newTestService()
	push := samplePush()

	deps.broadcaster.On("BroadcastLocation", mock.Anything, nil, push.Update()).Return(nil)
	deps.store.On("RecordVehiclePosition", mock.Anything, "bus-7", push.Location).
		Return(common.NewNotFoundError("vehicle not found", nil))

	pos, err := svc.PushLocation(context.Background(), push)
	assert.Nil(t, pos)
	assert.True(t, common.IsNotFound(err))

	deps.broadcaster.AssertExpectations(t)
	deps.live.AssertNotCalled(t, "SavePosition", mock.Anything, mock.Anything)
}

func TestPushLocation_CacheFailureIsIgnored(t *testing.T) {
	svc, deps := newTestService()
	push := samplePush()

	deps.broadcaster.On("BroadcastLocation", mock.Anything, nil, mock.Anything).Return(nil)
	deps.store.On("RecordVehiclePosition", mock.Anything, "bus-7", push.Location).Return(nil)
	deps.live.On("SavePosition", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	_, err := svc.PushLocation(context.Background(), push)
	assert.NoError(t, err)
}

func TestPushLocation_DefaultsTimestamp(t *testing.T) {
	svc, deps := newTestService()
	svc.now = func() time.Time { return observedAt }
	push := samplePush()
	push.Timestamp = time.Time{}

	deps.broadcaster.On("BroadcastLocation", mock.Anything, nil, mock.MatchedBy(func(u LocationUpdate) bool {
		return u.Timestamp.Equal(observedAt)
	})).Return(nil)
	deps.store.On("RecordVehiclePosition", mock.Anything, "bus-7", push.Location).Return(nil)
	deps.live.On("SavePosition", mock.Anything, mock.Anything).Return(nil)

	pos, err := svc.PushLocation(context.Background(), push)
	require.NoError(t, err)
	assert.Equal(t, observedAt, pos.ObservedAt)
	deps.broadcaster.AssertExpectations(t)
}

func TestPushLocation_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LocationPush)
	}{
		{"missing vehicle", func(p *LocationPush) { p.VehicleID = "" }},
		{"missing route", func(p *LocationPush) { p.RouteID = "" }},
		{"bad vehicle id", func(p *LocationPush) { p.VehicleID = "bus 7" }},
		{"latitude out of range", func(p *LocationPush) { p.Location.Latitude = 91 }},
		{"longitude out of range", func(p *LocationPush) { p.Location.Longitude = -181 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestService()
			push := samplePush()
			tt.mutate(&push)

			_, err := svc.PushLocation(context.Background(), push)
			assert.ErrorIs(t, err, common.ErrValidation)
			deps.broadcaster.AssertNotCalled(t, "BroadcastLocation", mock.Anything, mock.Anything, mock.Anything)
			deps.store.AssertNotCalled(t, "RecordVehiclePosition", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestPushLocation_WithoutBroadcaster(t *testing.T) {
	store := new(mockVehicleStore)
	live := new(mockLiveCache)
	svc := NewService(store, live, new(mockRouteLookup))
	push := samplePush()

	store.On("RecordVehiclePosition", mock.Anything, "bus-7", push.Location).Return(nil)
	live.On("SavePosition", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.PushLocation(context.Background(), push)
	assert.NoError(t, err)
}

func TestStartTrip(t *testing.T) {
	svc, deps := newTestService()
	svc.now = func() time.Time { return observedAt }

	deps.routes.On("GetRoute", mock.Anything, "r1").Return(activeRoute("r1"), nil)
	deps.live.On("SaveTrip", mock.Anything, &Trip{
		DriverID: "driver-1", VehicleID: "bus-7", RouteID: "r1", StartedAt: observedAt,
	}).Return(nil)

	trip, err := svc.StartTrip(context.Background(), "driver-1", "bus-7", "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", trip.RouteID)
	deps.live.AssertExpectations(t)
}

func TestStartTrip_Errors(t *testing.T) {
	t.Run("unknown route", func(t *testing.T) {
		svc, deps := newTestService()
		deps.routes.On("GetRoute", mock.Anything, "ghost").Return(nil, common.NewNotFoundError("route not found", nil))

		_, err := svc.StartTrip(context.Background(), "driver-1", "bus-7", "ghost")
		assert.True(t, common.IsNotFound(err))
		deps.live.AssertNotCalled(t, "SaveTrip", mock.Anything, mock.Anything)
	})

	t.Run("inactive route", func(t *testing.T) {
		svc, deps := newTestService()
		route := activeRoute("r1")
		route.Active = false
		deps.routes.On("GetRoute", mock.Anything, "r1").Return(route, nil)

		_, err := svc.StartTrip(context.Background(), "driver-1", "bus-7", "r1")
		assert.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("trip store down", func(t *testing.T) {
		svc, deps := newTestService()
		deps.routes.On("GetRoute", mock.Anything, "r1").Return(activeRoute("r1"), nil)
		deps.live.On("SaveTrip", mock.Anything, mock.Anything).Return(errors.New("redis down"))

		_, err := svc.StartTrip(context.Background(), "driver-1", "bus-7", "r1")
		assert.True(t, common.IsUpstream(err))
	})

	t.Run("invalid vehicle", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.StartTrip(context.Background(), "driver-1", "", "r1")
		assert.ErrorIs(t, err, common.ErrValidation)
	})
}

func TestEndTrip(t *testing.T) {
	svc, deps := newTestService()
	trip := &Trip{DriverID: "driver-1", VehicleID: "bus-7", RouteID: "r1"}

	deps.live.On("GetTrip", mock.Anything, "driver-1").Return(trip, nil)
	deps.live.On("DeleteTrip", mock.Anything, "driver-1").Return(nil)
	deps.live.On("GetTrip", mock.Anything, "driver-2").Return(nil, common.NewNotFoundError("no active trip", nil))

	ended, err := svc.EndTrip(context.Background(), "driver-1")
	require.NoError(t, err)
	assert.Equal(t, trip, ended)

	_, err = svc.EndTrip(context.Background(), "driver-2")
	assert.True(t, common.IsNotFound(err))
	deps.live.AssertNumberOfCalls(t, "DeleteTrip", 1)
}

func TestGetVehiclesOnRoute(t *testing.T) {
	svc, deps := newTestService()
	stored := geo.Point{Latitude: 37.90, Longitude: 58.30}
	updated := observedAt.Add(-time.Hour)
	live := &VehiclePosition{VehicleID: "bus-1", RouteID: "r1", Location: geo.Point{Latitude: 37.95, Longitude: 58.38}, ObservedAt: observedAt}

	deps.routes.On("GetRoute", mock.Anything, "r1").Return(activeRoute("r1"), nil)
	deps.store.On("ListActiveVehicles", mock.Anything, "r1").Return([]*Vehicle{
		{ID: "bus-1", RouteID: "r1", Active: true},
		{ID: "bus-2", RouteID: "r1", Active: true, DriverID: "driver-2", Location: &stored, LocationUpdated: &updated},
		{ID: "bus-3", RouteID: "r1", Active: true},
	}, nil)
	deps.live.On("RoutePositions", mock.Anything, "r1").Return([]*VehiclePosition{live}, nil)

	positions, err := svc.GetVehiclesOnRoute(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Same(t, live, positions[0])
	assert.Equal(t, "bus-2", positions[1].VehicleID)
	assert.Equal(t, stored, positions[1].Location)
	assert.Equal(t, updated, positions[1].ObservedAt)
}

func TestGetVehiclesOnRoute_CacheFailureFallsBackToStore(t *testing.T) {
	svc, deps := newTestService()
	stored := geo.Point{Latitude: 37.90, Longitude: 58.30}

	deps.routes.On("GetRoute", mock.Anything, "r1").Return(activeRoute("r1"), nil)
	deps.store.On("ListActiveVehicles", mock.Anything, "r1").Return([]*Vehicle{
		{ID: "bus-2", RouteID: "r1", Active: true, Location: &stored},
	}, nil)
	deps.live.On("RoutePositions", mock.Anything, "r1").Return(nil, errors.New("redis down"))

	positions, err := svc.GetVehiclesOnRoute(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, stored, positions[0].Location)
}

func TestGetVehiclesOnRoute_UnknownRoute(t *testing.T) {
	svc, deps := newTestService()
	deps.routes.On("GetRoute", mock.Anything, "ghost").Return((*routes.Route)(nil), common.NewNotFoundError("route not found", nil))

	_, err := svc.GetVehiclesOnRoute(context.Background(), "ghost")
	assert.True(t, common.IsNotFound(err))
	deps.store.AssertNotCalled(t, "ListActiveVehicles", mock.Anything, mock.Anything)
}

func TestGetNearbyVehicles(t *testing.T) {
	svc, deps := newTestService()
	point := geo.Point{Latitude: 37.95, Longitude: 58.38}
	hits := []NearbyVehicle{{VehiclePosition: VehiclePosition{VehicleID: "bus-1"}, DistanceMeters: 120}}

	deps.live.On("Nearby", mock.Anything, point, DefaultNearbyRadiusMeters, 0).Return(hits, nil)
	deps.live.On("Nearby", mock.Anything, point, 250.0, 0).Return([]NearbyVehicle{}, nil)

	got, err := svc.GetNearbyVehicles(context.Background(), point, 0)
	require.NoError(t, err)
	assert.Equal(t, hits, got)

	got, err = svc.GetNearbyVehicles(context.Background(), point, 250)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetNearbyVehicles_Errors(t *testing.T) {
	svc, deps := newTestService()
	point := geo.Point{Latitude: 37.95, Longitude: 58.38}

	_, err := svc.GetNearbyVehicles(context.Background(), geo.Point{Latitude: 100}, 0)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.GetNearbyVehicles(context.Background(), point, -5)
	assert.ErrorIs(t, err, common.ErrValidation)

	deps.live.On("Nearby", mock.Anything, point, 500.0, 0).Return(nil, errors.New("redis down"))
	_, err = svc.GetNearbyVehicles(context.Background(), point, 500)
	assert.True(t, common.IsUpstream(err))
}

func TestSetNearbyRadius(t *testing.T) {
	svc, deps := newTestService()
	point := geo.Point{Latitude: 1, Longitude: 1}
	svc.SetNearbyRadius(2500)
	svc.SetNearbyRadius(-1)

	deps.live.On("Nearby", mock.Anything, point, 2500.0, 0).Return([]NearbyVehicle{}, nil)
	_, err := svc.GetNearbyVehicles(context.Background(), point, 0)
	require.NoError(t, err)
	deps.live.AssertExpectations(t)
}

func TestGetVehiclePosition(t *testing.T) {
	svc, deps := newTestService()
	pos := &VehiclePosition{VehicleID: "bus-1"}

	deps.live.On("GetPosition", mock.Anything, "bus-1").Return(pos, nil)
	deps.live.On("GetPosition", mock.Anything, "bus-2").Return(nil, common.NewNotFoundError("no live position for vehicle", nil))
	deps.live.On("GetPosition", mock.Anything, "bus-3").Return(nil, errors.New("redis down"))

	got, err := svc.GetVehiclePosition(context.Background(), "bus-1")
	require.NoError(t, err)
	assert.Same(t, pos, got)

	_, err = svc.GetVehiclePosition(context.Background(), "bus-2")
	assert.True(t, common.IsNotFound(err))

	_, err = svc.GetVehiclePosition(context.Background(), "bus-3")
	assert.True(t, common.IsUpstream(err))

	_, err = svc.GetVehiclePosition(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrValidation)
}
