package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/database"
	"github.com/richxcame/transitflow/pkg/tracing"
)

const tracerName = "transitflow/routes"

const selectRouteColumns = `
	SELECT id, name,
	       origin_name, origin_lat, origin_lng,
	       destination_name, destination_lat, destination_lng,
	       waypoints, fare::float8, estimated_duration, active,
	       created_at, updated_at
	FROM routes`

// Repository reads routes from PostgreSQL
type Repository struct {
	db database.DBTX
}

// NewRepository creates a new route repository
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// ListActiveRoutes returns every active route ordered by name
func (r *Repository) ListActiveRoutes(ctx context.Context) ([]*Route, error) {
	query := selectRouteColumns + `
	WHERE active = true
	ORDER BY name, id`

	var routes []*Route
	err := tracing.TraceDBQuery(ctx, tracerName, "select", query, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to list active routes: %w", err)
		}
		defer rows.Close()

		routes = make([]*Route, 0)
		for rows.Next() {
			route, err := scanRoute(rows)
			if err != nil {
				return err
			}
			routes = append(routes, route)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate routes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return routes, nil
}

// GetRouteByID retrieves a route by id, active or not
func (r *Repository) GetRouteByID(ctx context.Context, id string) (*Route, error) {
	query := selectRouteColumns + `
	WHERE id = $1`

	var route *Route
	err := tracing.TraceDBQuery(ctx, tracerName, "select", query, func(ctx context.Context) error {
		var err error
		route, err = scanRoute(r.db.QueryRow(ctx, query, id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return route, nil
}

func scanRoute(row pgx.Row) (*Route, error) {
	route := &Route{}
	var waypoints []byte

	err := row.Scan(
		&route.ID,
		&route.Name,
		&route.Origin.Name,
		&route.Origin.Coordinates.Latitude,
		&route.Origin.Coordinates.Longitude,
		&route.Destination.Name,
		&route.Destination.Coordinates.Latitude,
		&route.Destination.Coordinates.Longitude,
		&waypoints,
		&route.Fare,
		&route.EstimatedDuration,
		&route.Active,
		&route.CreatedAt,
		&route.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("route not found", nil)
		}
		return nil, fmt.Errorf("failed to scan route: %w", err)
	}

	if len(waypoints) > 0 {
		if err := json.Unmarshal(waypoints, &route.Waypoints); err != nil {
			return nil, fmt.Errorf("failed to decode waypoints of route %s: %w", route.ID, err)
		}
	}
	// 'null'::jsonb decodes to a nil slice
	if route.Waypoints == nil {
		route.Waypoints = []NamedPoint{}
	}

	return route, nil
}
