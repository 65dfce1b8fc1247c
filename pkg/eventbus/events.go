package eventbus

import (
	"strings"
	"time"
)

// Subjects for vehicle events.
const (
	SubjectLocationPrefix = "vehicles.location."

	// SubjectLocationAll matches every route. Route ids may contain dots,
	// so this is a full wildcard rather than a single token.
	SubjectLocationAll = "vehicles.location.>"
)

// Event types.
const (
	EventVehicleLocation = "vehicle.location"
)

// LocationSubject returns the subject location events for routeID travel on.
func LocationSubject(routeID string) string {
	return SubjectLocationPrefix + routeID
}

// RouteFromSubject extracts the route id from a location subject.
func RouteFromSubject(subject string) (string, bool) {
	if !strings.HasPrefix(subject, SubjectLocationPrefix) {
		return "", false
	}
	routeID := strings.TrimPrefix(subject, SubjectLocationPrefix)
	return routeID, routeID != ""
}

// VehicleLocationData is published for each accepted location push.
type VehicleLocationData struct {
	RouteID   string    `json:"route_id"`
	VehicleID string    `json:"vehicle_id"`
	DriverID  string    `json:"driver_id,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}
