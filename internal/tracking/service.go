package tracking

import (
	"context"
	"time"

	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/geo"
	"github.com/richxcame/transitflow/pkg/logger"
	"github.com/richxcame/transitflow/pkg/tracing"
	"github.com/richxcame/transitflow/pkg/validation"
	"go.uber.org/zap"
)

// DefaultNearbyRadiusMeters is used when a nearby search names no radius.
const DefaultNearbyRadiusMeters = 1000.0

// Service records vehicle positions and answers live tracking queries
type Service struct {
	store        VehicleStore
	live         LiveCache
	routes       RouteLookup
	broadcaster  Broadcaster
	nearbyRadius float64
	now          func() time.Time
}

// NewService creates a new tracking service
func NewService(store VehicleStore, live LiveCache, routes RouteLookup) *Service {
	return &Service{
		store:        store,
		live:         live,
		routes:       routes,
		nearbyRadius: DefaultNearbyRadiusMeters,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetBroadcaster enables fan-out of pushed locations to route rooms.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetNearbyRadius sets the default radius of nearby searches.
func (s *Service) SetNearbyRadius(meters float64) {
	if meters > 0 {
		s.nearbyRadius = meters
	}
}

// PushLocation broadcasts a position to the route room and records it as
// the vehicle's last known position. The two are independent: a failed
// broadcast is logged and dropped, a failed durable write is returned
// after the broadcast has gone out.
func (s *Service) PushLocation(ctx context.Context, push LocationPush) (*VehiclePosition, error) {
	if !validation.ValidateIdentifier(push.VehicleID) {
		return nil, common.NewValidationError("vehicle id is not a valid identifier")
	}
	if !validation.ValidateIdentifier(push.RouteID) {
		return nil, common.NewValidationError("route id is not a valid identifier")
	}
	if err := push.Location.Validate(); err != nil {
		return nil, err
	}
	if push.Timestamp.IsZero() {
		push.Timestamp = s.now()
	}

	if s.broadcaster != nil {
		if err := s.broadcaster.BroadcastLocation(ctx, push.Sender, push.Update()); err != nil {
			broadcastFailures.Inc()
			logger.WarnContext(ctx, "failed to broadcast vehicle location",
				zap.String("vehicle_id", push.VehicleID),
				zap.String("route_id", push.RouteID),
				zap.Error(err),
			)
		}
	}

	pos := &VehiclePosition{
		VehicleID:  push.VehicleID,
		DriverID:   push.DriverID,
		RouteID:    push.RouteID,
		Location:   push.Location,
		H3Cell:     geo.VehicleCell(push.Location),
		ObservedAt: push.Timestamp,
	}

	attrs := append(
		tracing.RouteAttributes(push.RouteID, push.VehicleID),
		tracing.LocationAttributes(push.Location.Latitude, push.Location.Longitude)...,
	)
	err := tracing.TraceBusinessLogic(ctx, tracerName, "tracking.record", attrs, func(ctx context.Context) error {
		return s.store.RecordVehiclePosition(ctx, push.VehicleID, push.Location)
	})
	if err != nil {
		locationPushes.WithLabelValues("error").Inc()
		return nil, err
	}
	locationPushes.WithLabelValues("ok").Inc()

	if s.live != nil {
		if err := s.live.SavePosition(ctx, pos); err != nil {
			cacheFailures.WithLabelValues("save_position").Inc()
			logger.WarnContext(ctx, "failed to cache vehicle position",
				zap.String("vehicle_id", push.VehicleID),
				zap.Error(err),
			)
		}
	}
	return pos, nil
}

// ResolveTrip fills the vehicle and route a push left empty from the
// driver's running trip, then the vehicle from fallbackVehicle.
func (s *Service) ResolveTrip(ctx context.Context, push LocationPush, fallbackVehicle string) (LocationPush, error) {
	if push.VehicleID == "" || push.RouteID == "" {
		trip, err := s.ActiveTrip(ctx, push.DriverID)
		switch {
		case err == nil:
			if push.VehicleID == "" {
				push.VehicleID = trip.VehicleID
			}
			if push.RouteID == "" {
				push.RouteID = trip.RouteID
			}
		case !common.IsNotFound(err):
			return LocationPush{}, err
		}
	}
	if push.VehicleID == "" {
		push.VehicleID = fallbackVehicle
	}
	if push.VehicleID == "" || push.RouteID == "" {
		return LocationPush{}, common.NewValidationError("no active trip: start a trip or name the vehicle and route")
	}
	return push, nil
}

// StartTrip binds a driver to a vehicle running an existing route
func (s *Service) StartTrip(ctx context.Context, driverID, vehicleID, routeID string) (*Trip, error) {
	if !validation.ValidateIdentifier(driverID) {
		return nil, common.NewValidationError("driver id is not a valid identifier")
	}
	if !validation.ValidateIdentifier(vehicleID) {
		return nil, common.NewValidationError("vehicle id is not a valid identifier")
	}

	route, err := s.routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if !route.Active {
		return nil, common.NewValidationError("route is not active")
	}

	trip := &Trip{
		DriverID:  driverID,
		VehicleID: vehicleID,
		RouteID:   route.ID,
		StartedAt: s.now(),
	}
	if err := s.live.SaveTrip(ctx, trip); err != nil {
		return nil, common.NewUpstreamError("trip store unavailable", err)
	}

	logger.InfoContext(ctx, "trip started",
		zap.String("driver_id", driverID),
		zap.String("vehicle_id", vehicleID),
		zap.String("route_id", route.ID),
	)
	return trip, nil
}

// ActiveTrip returns the running trip of a driver
func (s *Service) ActiveTrip(ctx context.Context, driverID string) (*Trip, error) {
	trip, err := s.live.GetTrip(ctx, driverID)
	if err != nil {
		if common.IsNotFound(err) {
			return nil, err
		}
		return nil, common.NewUpstreamError("trip store unavailable", err)
	}
	return trip, nil
}

// EndTrip ends the running trip of a driver
func (s *Service) EndTrip(ctx context.Context, driverID string) (*Trip, error) {
	trip, err := s.ActiveTrip(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if err := s.live.DeleteTrip(ctx, driverID); err != nil {
		return nil, common.NewUpstreamError("trip store unavailable", err)
	}

	logger.InfoContext(ctx, "trip ended",
		zap.String("driver_id", driverID),
		zap.String("route_id", trip.RouteID),
	)
	return trip, nil
}

// GetVehiclesOnRoute returns the active vehicles of a route with their last
// known positions. Live positions win over the durable record; vehicles that
// never reported are left out.
func (s *Service) GetVehiclesOnRoute(ctx context.Context, routeID string) ([]*VehiclePosition, error) {
	route, err := s.routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}

	vehicles, err := s.store.ListActiveVehicles(ctx, route.ID)
	if err != nil {
		return nil, err
	}

	live := make(map[string]*VehiclePosition)
	if s.live != nil {
		positions, err := s.live.RoutePositions(ctx, route.ID)
		if err != nil {
			cacheFailures.WithLabelValues("route_positions").Inc()
			logger.WarnContext(ctx, "failed to read live route positions", zap.String("route_id", route.ID), zap.Error(err))
		}
		for _, pos := range positions {
			live[pos.VehicleID] = pos
		}
	}

	out := make([]*VehiclePosition, 0, len(vehicles))
	for _, v := range vehicles {
		if pos, ok := live[v.ID]; ok {
			out = append(out, pos)
			continue
		}
		if v.Location == nil {
			continue
		}
		pos := &VehiclePosition{
			VehicleID: v.ID,
			DriverID:  v.DriverID,
			RouteID:   route.ID,
			Location:  *v.Location,
			H3Cell:    geo.VehicleCell(*v.Location),
		}
		if v.LocationUpdated != nil {
			pos.ObservedAt = *v.LocationUpdated
		}
		out = append(out, pos)
	}
	return out, nil
}

// GetNearbyVehicles finds live vehicles around a point, nearest first. A
// zero radius uses the configured default.
func (s *Service) GetNearbyVehicles(ctx context.Context, point geo.Point, radiusMeters float64) ([]NearbyVehicle, error) {
	if err := point.Validate(); err != nil {
		return nil, err
	}
	if radiusMeters == 0 {
		radiusMeters = s.nearbyRadius
	}
	if err := validation.ValidateRadius(radiusMeters); err != nil {
		return nil, err
	}

	nearby, err := s.live.Nearby(ctx, point, radiusMeters, 0)
	if err != nil {
		return nil, common.NewUpstreamError("live position cache unavailable", err)
	}
	return nearby, nil
}

// GetVehiclePosition returns the live position of one vehicle
func (s *Service) GetVehiclePosition(ctx context.Context, vehicleID string) (*VehiclePosition, error) {
	if !validation.ValidateIdentifier(vehicleID) {
		return nil, common.NewValidationError("vehicle id is not a valid identifier")
	}

	pos, err := s.live.GetPosition(ctx, vehicleID)
	if err != nil {
		if common.IsNotFound(err) {
			return nil, err
		}
		return nil, common.NewUpstreamError("live position cache unavailable", err)
	}
	return pos, nil
}

// LivePositions returns every vehicle with a live position
func (s *Service) LivePositions(ctx context.Context) ([]*VehiclePosition, error) {
	positions, err := s.live.LivePositions(ctx)
	if err != nil {
		return nil, common.NewUpstreamError("live position cache unavailable", err)
	}
	return positions, nil
}
