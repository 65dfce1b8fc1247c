package geo

import (
	"math"

	"github.com/richxcame/transitflow/pkg/common"
)

const (
	// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
	EarthRadiusMeters = 6371000.0

	walkingSpeedMetersPerHour = 5000.0
)

// Distance returns the great-circle distance in metres between two points
// using the haversine formula. It fails with a validation error when either
// point is out of range.
func Distance(p1, p2 Point) (float64, error) {
	if err := p1.Validate(); err != nil {
		return 0, err
	}
	if err := p2.Validate(); err != nil {
		return 0, err
	}
	return haversine(p1, p2), nil
}

// haversine assumes both points are valid.
func haversine(p1, p2 Point) float64 {
	lat1 := toRadians(p1.Latitude)
	lat2 := toRadians(p2.Latitude)
	dLat := toRadians(p2.Latitude - p1.Latitude)
	dLon := toRadians(p2.Longitude - p1.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	if a > 1 {
		a = 1
	}

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// DistanceFrom returns a function measuring distances from a fixed, already
// validated origin. Used by hot loops that compare one request point against
// many route points.
func DistanceFrom(origin Point) (func(Point) (float64, error), error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	return func(p Point) (float64, error) {
		if err := p.Validate(); err != nil {
			return 0, err
		}
		return haversine(origin, p), nil
	}, nil
}

// EstimateWalkMinutes returns the walking time in whole minutes for a
// distance in metres at 5 km/h.
func EstimateWalkMinutes(meters float64) int {
	if meters <= 0 {
		return 0
	}
	return int(math.Ceil(meters * 60 / walkingSpeedMetersPerHour))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// invalidPoint is shared by Validate and ParsePoint so both surface the same error kind.
func invalidPoint(message string) error {
	return common.NewValidationError(message)
}
