package tracking

import (
	"time"

	"github.com/richxcame/transitflow/pkg/geo"
	"github.com/richxcame/transitflow/pkg/websocket"
)

// VehiclePosition is the last known position of a vehicle
type VehiclePosition struct {
	VehicleID  string    `json:"vehicleId"`
	DriverID   string    `json:"driverId,omitempty"`
	RouteID    string    `json:"routeId,omitempty"`
	Location   geo.Point `json:"currentLocation"`
	H3Cell     string    `json:"h3Cell,omitempty"`
	ObservedAt time.Time `json:"observedAt"`
}

// LocationPush is one position report from a moving vehicle. Sender is the
// connection that sent it, if any, and does not receive its own update.
type LocationPush struct {
	DriverID  string
	VehicleID string
	RouteID   string
	Location  geo.Point
	Timestamp time.Time
	Sender    websocket.Subscriber
}

// LocationUpdate is the payload fanned out to the route room
type LocationUpdate struct {
	RouteID   string    `json:"routeId"`
	VehicleID string    `json:"vehicleId"`
	Location  geo.Point `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// Update builds the broadcast payload for a push
func (p LocationPush) Update() LocationUpdate {
	return LocationUpdate{
		RouteID:   p.RouteID,
		VehicleID: p.VehicleID,
		Location:  p.Location,
		Timestamp: p.Timestamp,
	}
}

// Trip binds a driver to a vehicle running a route
type Trip struct {
	DriverID  string    `json:"driverId"`
	VehicleID string    `json:"vehicleId"`
	RouteID   string    `json:"routeId"`
	StartedAt time.Time `json:"startedAt"`
}

// Vehicle is a vehicle row assigned to a route
type Vehicle struct {
	ID              string     `json:"id"`
	PlateNumber     string     `json:"plateNumber"`
	Capacity        int        `json:"capacity"`
	RouteID         string     `json:"routeId,omitempty"`
	DriverID        string     `json:"driverId,omitempty"`
	Active          bool       `json:"active"`
	Location        *geo.Point `json:"currentLocation,omitempty"`
	LocationUpdated *time.Time `json:"locationUpdated,omitempty"`
}

// NearbyVehicle is a live vehicle with its distance from a search point
type NearbyVehicle struct {
	VehiclePosition
	DistanceMeters float64 `json:"distanceMeters"`
}

// PushLocationRequest is the body of POST /drivers/location
type PushLocationRequest struct {
	Latitude  *float64   `json:"latitude" validate:"required,latitude"`
	Longitude *float64   `json:"longitude" validate:"required,longitude"`
	VehicleID string     `json:"vehicleId,omitempty" validate:"omitempty,identifier"`
	RouteID   string     `json:"routeId,omitempty" validate:"omitempty,identifier"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// StartTripRequest is the body of POST /drivers/trip/start
type StartTripRequest struct {
	VehicleID string `json:"vehicleId" validate:"required,identifier"`
	RouteID   string `json:"routeId" validate:"required,identifier"`
}
