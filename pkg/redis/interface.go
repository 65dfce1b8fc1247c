package redis

import (
	"context"
	"time"
)

// GeoMember is a geospatial search hit.
type GeoMember struct {
	Name           string
	DistanceMeters float64
	Longitude      float64
	Latitude       float64
}

// ClientInterface defines the Redis operations used by the tracking layer
type ClientInterface interface {
	SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error

	// Batch operations
	MGetStrings(ctx context.Context, keys ...string) ([]string, error)

	// Set operations
	SetAdd(ctx context.Context, key string, members ...string) error
	SetRemove(ctx context.Context, key string, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)

	// Geospatial operations
	GeoAdd(ctx context.Context, key string, longitude, latitude float64, member string) error
	GeoSearch(ctx context.Context, key string, longitude, latitude, radiusMeters float64, count int) ([]GeoMember, error)
	GeoRemove(ctx context.Context, key string, members ...string) error
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)
