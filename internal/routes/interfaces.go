package routes

import "context"

// Store is the read side of the route store. GetRouteByID returns a
// common NotFound error for unknown ids.
type Store interface {
	ListActiveRoutes(ctx context.Context) ([]*Route, error)
	GetRouteByID(ctx context.Context, id string) (*Route, error)
}
