package geo

import (
	"bytes"
	"encoding/json"
)

// PointInput is a coordinate as it arrives in a request body. Fields are
// pointers so a missing latitude is told apart from 0. Besides the object
// form it accepts a JSON string holding any encoding ParsePoint understands.
type PointInput struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (in *PointInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		p, err := ParsePoint(raw)
		if err != nil {
			return err
		}
		in.Latitude, in.Longitude = &p.Latitude, &p.Longitude
		return nil
	}

	var wp wirePoint
	if err := json.Unmarshal(data, &wp); err != nil {
		return err
	}
	in.Latitude, in.Longitude = wp.Latitude, wp.Longitude
	return nil
}

// Point converts a validated input. Missing fields read as 0.
func (in *PointInput) Point() Point {
	var p Point
	if in == nil {
		return p
	}
	if in.Latitude != nil {
		p.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		p.Longitude = *in.Longitude
	}
	return p
}
