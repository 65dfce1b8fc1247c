package geo

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewPoint builds a Point and validates it.
func NewPoint(latitude, longitude float64) (Point, error) {
	p := Point{Latitude: latitude, Longitude: longitude}
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	return p, nil
}

// Validate checks the latitude and longitude ranges.
func (p Point) Validate() error {
	if !isFinite(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return invalidPoint(fmt.Sprintf("latitude must be between -90 and 90, got: %v", p.Latitude))
	}
	if !isFinite(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return invalidPoint(fmt.Sprintf("longitude must be between -180 and 180, got: %v", p.Longitude))
	}
	return nil
}

// String renders the compact "lat,lng" encoding accepted by ParsePoint.
func (p Point) String() string {
	return strconv.FormatFloat(p.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(p.Longitude, 'f', -1, 64)
}

// wirePoint distinguishes missing fields from zero values while decoding.
type wirePoint struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// ParsePoint decodes a textual coordinate. Two encodings are accepted: a JSON
// object {"latitude":..,"longitude":..} and the compact "lat,lng" form.
func ParsePoint(raw string) (Point, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Point{}, invalidPoint("coordinates are required")
	}

	if strings.HasPrefix(raw, "{") {
		var wp wirePoint
		if err := json.Unmarshal([]byte(raw), &wp); err != nil {
			return Point{}, invalidPoint("malformed coordinates: " + err.Error())
		}
		if wp.Latitude == nil || wp.Longitude == nil {
			return Point{}, invalidPoint("coordinates must include latitude and longitude")
		}
		return NewPoint(*wp.Latitude, *wp.Longitude)
	}

	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return Point{}, invalidPoint("malformed coordinates: expected \"latitude,longitude\"")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Point{}, invalidPoint("malformed latitude: " + parts[0])
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Point{}, invalidPoint("malformed longitude: " + parts[1])
	}
	return NewPoint(lat, lng)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
