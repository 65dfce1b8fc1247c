package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/richxcame/transitflow/pkg/cache"
	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/geo"
	"github.com/richxcame/transitflow/pkg/logger"
	redisClient "github.com/richxcame/transitflow/pkg/redis"
	"go.uber.org/zap"
)

const (
	// DefaultPositionTTL is how long a position stays live without a new push.
	DefaultPositionTTL = 5 * time.Minute

	tripTTL = 12 * time.Hour

	// nearbySearchLimit caps the GEO search before stale entries are pruned.
	nearbySearchLimit = 100
)

// PositionCache keeps live positions, the vehicle GEO index and driver trips in Redis
type PositionCache struct {
	redis redisClient.ClientInterface
	ttl   time.Duration
}

// NewPositionCache creates a Redis-backed live cache. A non-positive ttl
// selects DefaultPositionTTL.
func NewPositionCache(redis redisClient.ClientInterface, ttl time.Duration) *PositionCache {
	if ttl <= 0 {
		ttl = DefaultPositionTTL
	}
	return &PositionCache{redis: redis, ttl: ttl}
}

// SavePosition stores a position and indexes the vehicle for nearby and route lookups
func (c *PositionCache) SavePosition(ctx context.Context, pos *VehiclePosition) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("failed to marshal vehicle position: %w", err)
	}

	if err := c.redis.SetWithExpiration(ctx, cache.Keys.VehiclePosition(pos.VehicleID), string(data), c.ttl); err != nil {
		return fmt.Errorf("failed to cache vehicle position: %w", err)
	}
	if err := c.redis.GeoAdd(ctx, cache.Keys.VehiclesGeo(), pos.Location.Longitude, pos.Location.Latitude, pos.VehicleID); err != nil {
		return fmt.Errorf("failed to index vehicle position: %w", err)
	}
	if err := c.redis.SetAdd(ctx, cache.Keys.LiveVehicles(), pos.VehicleID); err != nil {
		return fmt.Errorf("failed to mark vehicle live: %w", err)
	}
	if pos.RouteID != "" {
		if err := c.redis.SetAdd(ctx, cache.Keys.RouteVehicles(pos.RouteID), pos.VehicleID); err != nil {
			return fmt.Errorf("failed to add vehicle to route: %w", err)
		}
	}
	return nil
}

// GetPosition returns the live position of a vehicle
func (c *PositionCache) GetPosition(ctx context.Context, vehicleID string) (*VehiclePosition, error) {
	data, err := c.redis.GetString(ctx, cache.Keys.VehiclePosition(vehicleID))
	if err != nil {
		if redisClient.IsNil(err) {
			return nil, common.NewNotFoundError("no live position for vehicle", nil)
		}
		return nil, fmt.Errorf("failed to get vehicle position: %w", err)
	}

	var pos VehiclePosition
	if err := json.Unmarshal([]byte(data), &pos); err != nil {
		return nil, fmt.Errorf("failed to decode vehicle position: %w", err)
	}
	return &pos, nil
}

// RoutePositions returns the live positions of vehicles last seen on a route.
// Expired members and vehicles that moved to another route are pruned.
func (c *PositionCache) RoutePositions(ctx context.Context, routeID string) ([]*VehiclePosition, error) {
	key := cache.Keys.RouteVehicles(routeID)
	ids, err := c.redis.SetMembers(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list route vehicles: %w", err)
	}

	positions, stale, err := c.load(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*VehiclePosition, 0, len(positions))
	for _, pos := range positions {
		if pos.RouteID != routeID {
			stale = append(stale, pos.VehicleID)
			continue
		}
		out = append(out, pos)
	}
	c.prune(ctx, key, stale)
	return out, nil
}

// LivePositions returns every vehicle with a live position
func (c *PositionCache) LivePositions(ctx context.Context) ([]*VehiclePosition, error) {
	ids, err := c.redis.SetMembers(ctx, cache.Keys.LiveVehicles())
	if err != nil {
		return nil, fmt.Errorf("failed to list live vehicles: %w", err)
	}

	positions, stale, err := c.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		c.prune(ctx, cache.Keys.LiveVehicles(), stale)
		c.unindex(ctx, stale)
	}
	return positions, nil
}

// Nearby finds live vehicles within radiusMeters of point, nearest first.
// Distances are recomputed from the cached positions.
func (c *PositionCache) Nearby(ctx context.Context, point geo.Point, radiusMeters float64, limit int) ([]NearbyVehicle, error) {
	if limit <= 0 {
		limit = nearbySearchLimit
	}

	members, err := c.redis.GeoSearch(ctx, cache.Keys.VehiclesGeo(), point.Longitude, point.Latitude, radiusMeters, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search nearby vehicles: %w", err)
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.Name
	}
	positions, stale, err := c.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	c.unindex(ctx, stale)

	nearby := make([]NearbyVehicle, 0, len(positions))
	for _, pos := range positions {
		distance, err := geo.Distance(point, pos.Location)
		if err != nil || distance > radiusMeters {
			continue
		}
		nearby = append(nearby, NearbyVehicle{VehiclePosition: *pos, DistanceMeters: distance})
	}
	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceMeters < nearby[j].DistanceMeters
	})
	return nearby, nil
}

// SaveTrip records the active trip of a driver
func (c *PositionCache) SaveTrip(ctx context.Context, trip *Trip) error {
	data, err := json.Marshal(trip)
	if err != nil {
		return fmt.Errorf("failed to marshal trip: %w", err)
	}
	if err := c.redis.SetWithExpiration(ctx, cache.Keys.DriverTrip(trip.DriverID), string(data), tripTTL); err != nil {
		return fmt.Errorf("failed to save trip: %w", err)
	}
	return nil
}

// GetTrip returns the active trip of a driver
func (c *PositionCache) GetTrip(ctx context.Context, driverID string) (*Trip, error) {
	data, err := c.redis.GetString(ctx, cache.Keys.DriverTrip(driverID))
	if err != nil {
		if redisClient.IsNil(err) {
			return nil, common.NewNotFoundError("no active trip", nil)
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	var trip Trip
	if err := json.Unmarshal([]byte(data), &trip); err != nil {
		return nil, fmt.Errorf("failed to decode trip: %w", err)
	}
	return &trip, nil
}

// DeleteTrip removes the active trip of a driver
func (c *PositionCache) DeleteTrip(ctx context.Context, driverID string) error {
	if err := c.redis.Delete(ctx, cache.Keys.DriverTrip(driverID)); err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	return nil
}

// load fetches cached positions for ids in order. Ids whose position has
// expired or cannot be decoded are returned as stale.
func (c *PositionCache) load(ctx context.Context, ids []string) ([]*VehiclePosition, []string, error) {
	if len(ids) == 0 {
		return []*VehiclePosition{}, nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cache.Keys.VehiclePosition(id)
	}
	values, err := c.redis.MGetStrings(ctx, keys...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load vehicle positions: %w", err)
	}

	positions := make([]*VehiclePosition, 0, len(values))
	var stale []string
	for i, raw := range values {
		if raw == "" {
			stale = append(stale, ids[i])
			continue
		}
		var pos VehiclePosition
		if err := json.Unmarshal([]byte(raw), &pos); err != nil {
			logger.WarnContext(ctx, "dropping undecodable vehicle position",
				zap.String("vehicle_id", ids[i]),
				zap.Error(err),
			)
			stale = append(stale, ids[i])
			continue
		}
		positions = append(positions, &pos)
	}
	return positions, stale, nil
}

func (c *PositionCache) prune(ctx context.Context, setKey string, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := c.redis.SetRemove(ctx, setKey, ids...); err != nil {
		logger.WarnContext(ctx, "failed to prune stale vehicles", zap.String("key", setKey), zap.Error(err))
	}
}

func (c *PositionCache) unindex(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := c.redis.GeoRemove(ctx, cache.Keys.VehiclesGeo(), ids...); err != nil {
		logger.WarnContext(ctx, "failed to remove stale vehicles from geo index", zap.Error(err))
	}
}
