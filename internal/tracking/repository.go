package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/database"
	"github.com/richxcame/transitflow/pkg/geo"
	"github.com/richxcame/transitflow/pkg/tracing"
)

const tracerName = "transitflow/tracking"

// Repository stores vehicle positions in PostgreSQL
type Repository struct {
	db database.DBTX
}

// NewRepository creates a new vehicle repository
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// RecordVehiclePosition overwrites the last known position of a vehicle.
// Unknown vehicles are a NotFound error.
func (r *Repository) RecordVehiclePosition(ctx context.Context, vehicleID string, location geo.Point) error {
	query := `
		UPDATE vehicles
		SET current_lat = $2, current_lng = $3, location_updated = NOW(), updated_at = NOW()
		WHERE id = $1`

	return tracing.TraceDBQuery(ctx, tracerName, "update", query, func(ctx context.Context) error {
		tag, err := r.db.Exec(ctx, query, vehicleID, location.Latitude, location.Longitude)
		if err != nil {
			return fmt.Errorf("failed to record vehicle position: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return common.NewNotFoundError("vehicle not found", nil)
		}
		return nil
	})
}

// ListActiveVehicles returns the active vehicles assigned to a route
func (r *Repository) ListActiveVehicles(ctx context.Context, routeID string) ([]*Vehicle, error) {
	query := `
		SELECT id, plate_number, capacity, COALESCE(route_id, ''), COALESCE(driver_id, ''),
		       active, current_lat, current_lng, location_updated
		FROM vehicles
		WHERE route_id = $1 AND active = true
		ORDER BY id`

	var vehicles []*Vehicle
	err := tracing.TraceDBQuery(ctx, tracerName, "select", query, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, routeID)
		if err != nil {
			return fmt.Errorf("failed to list vehicles: %w", err)
		}
		defer rows.Close()

		vehicles = make([]*Vehicle, 0)
		for rows.Next() {
			v := &Vehicle{}
			var lat, lng *float64
			var updated *time.Time
			if err := rows.Scan(
				&v.ID, &v.PlateNumber, &v.Capacity, &v.RouteID, &v.DriverID,
				&v.Active, &lat, &lng, &updated,
			); err != nil {
				return fmt.Errorf("failed to scan vehicle: %w", err)
			}
			if lat != nil && lng != nil {
				v.Location = &geo.Point{Latitude: *lat, Longitude: *lng}
				v.LocationUpdated = updated
			}
			vehicles = append(vehicles, v)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate vehicles: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}
