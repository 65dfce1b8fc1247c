package tracking

import (
	"context"

	"github.com/richxcame/transitflow/internal/routes"
	"github.com/richxcame/transitflow/pkg/geo"
	"github.com/richxcame/transitflow/pkg/websocket"
)

// PositionStore persists the last known position of a vehicle
type PositionStore interface {
	RecordVehiclePosition(ctx context.Context, vehicleID string, location geo.Point) error
}

// VehicleStore is the durable vehicle store
type VehicleStore interface {
	PositionStore
	ListActiveVehicles(ctx context.Context, routeID string) ([]*Vehicle, error)
}

// LiveCache holds fresh positions, the nearby index and driver trips
type LiveCache interface {
	SavePosition(ctx context.Context, pos *VehiclePosition) error
	GetPosition(ctx context.Context, vehicleID string) (*VehiclePosition, error)
	RoutePositions(ctx context.Context, routeID string) ([]*VehiclePosition, error)
	LivePositions(ctx context.Context) ([]*VehiclePosition, error)
	Nearby(ctx context.Context, point geo.Point, radiusMeters float64, limit int) ([]NearbyVehicle, error)

	SaveTrip(ctx context.Context, trip *Trip) error
	GetTrip(ctx context.Context, driverID string) (*Trip, error)
	DeleteTrip(ctx context.Context, driverID string) error
}

// Broadcaster fans a location update out to the route room. sender is
// skipped and may be nil.
type Broadcaster interface {
	BroadcastLocation(ctx context.Context, sender websocket.Subscriber, update LocationUpdate) error
}

// RouteLookup resolves routes for trip start
type RouteLookup interface {
	GetRoute(ctx context.Context, routeID string) (*routes.Route, error)
}
