package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/richxcame/transitflow/pkg/logger"
	"go.uber.org/zap"
)

// Store is the subset of the Redis client the cache needs
type Store interface {
	GetString(ctx context.Context, key string) (string, error)
	SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Manager handles caching operations with JSON serialization
type Manager struct {
	store Store
}

// NewManager creates a new cache manager
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Get retrieves a cached value and unmarshals it into result
func (m *Manager) Get(ctx context.Context, key string, result interface{}) error {
	data, err := m.store.GetString(ctx, key)
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), result)
}

// Set marshals and caches a value with expiration
func (m *Manager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return m.store.SetWithExpiration(ctx, key, string(data), ttl)
}

// GetOrSet fills result from the cache, or from fn on a miss. A cache
// failure never fails the call: the value from fn is still returned.
func (m *Manager) GetOrSet(ctx context.Context, key string, ttl time.Duration, result interface{}, fn func() (interface{}, error)) error {
	if err := m.Get(ctx, key, result); err == nil {
		return nil
	}

	data, err := fn()
	if err != nil {
		return err
	}

	if err := m.Set(ctx, key, data, ttl); err != nil {
		logger.WarnContext(ctx, "failed to cache value", zap.String("key", key), zap.Error(err))
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, result)
}

// Delete removes keys from cache
func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	return m.store.Delete(ctx, keys...)
}

// CacheKeys defines the cache key layout
type CacheKeys struct{}

var Keys = CacheKeys{}

// ActiveRoutes returns the key of the cached active-route list
func (k CacheKeys) ActiveRoutes() string {
	return "routes:active"
}

// Route returns the cache key for one route definition
func (k CacheKeys) Route(routeID string) string {
	return fmt.Sprintf("route:%s", routeID)
}

// VehiclePosition returns the cache key for a vehicle's live position
func (k CacheKeys) VehiclePosition(vehicleID string) string {
	return fmt.Sprintf("vehicle:position:%s", vehicleID)
}

// RouteVehicles returns the key of the set of vehicles live on a route
func (k CacheKeys) RouteVehicles(routeID string) string {
	return fmt.Sprintf("route:vehicles:%s", routeID)
}

// DriverTrip returns the cache key of a driver's active trip
func (k CacheKeys) DriverTrip(driverID string) string {
	return fmt.Sprintf("driver:trip:%s", driverID)
}

// VehiclesGeo returns the key of the GEO index of live vehicles
func (k CacheKeys) VehiclesGeo() string {
	return "vehicles:geo"
}

// LiveVehicles returns the key of the set of vehicles with a live position
func (k CacheKeys) LiveVehicles() string {
	return "vehicles:live"
}
