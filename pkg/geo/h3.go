package geo

import (
	"github.com/uber/h3-go/v4"
)

// H3ResolutionVehicle buckets live vehicle positions (~175m edge).
// See: https://h3geo.org/docs/core-library/restable
const H3ResolutionVehicle = 9

// CellFor returns the H3 cell of a point at the given resolution, or 0 when
// the point cannot be indexed.
func CellFor(p Point, resolution int) h3.Cell {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Latitude, p.Longitude), resolution)
	if err != nil {
		return 0
	}
	return cell
}

// VehicleCell returns the hex-encoded H3 cell for a vehicle position.
func VehicleCell(p Point) string {
	cell := CellFor(p, H3ResolutionVehicle)
	if cell == 0 {
		return ""
	}
	return cell.String()
}
