package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/transitflow/pkg/config"
)

// ErrNil is returned when a key does not exist.
var ErrNil = redis.Nil

// IsNil reports whether err means "key not found".
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Client wraps the Redis client
type Client struct {
	*redis.Client
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}

	return &Client{Client: client}, nil
}

// SetWithExpiration sets a key-value pair with expiration
func (c *Client) SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.Set(ctx, key, value, expiration).Err()
}

// GetString gets a string value by key
func (c *Client) GetString(ctx context.Context, key string) (string, error) {
	return c.Get(ctx, key).Result()
}

// Delete deletes keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	return c.Del(ctx, keys...).Err()
}

// Ping checks connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *Client) Close() error {
	return c.Client.Close()
}

// MGetStrings fetches several keys at once. Missing keys come back as "".
func (c *Client) MGetStrings(ctx context.Context, keys ...string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	values, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(values))
	for i, v := range values {
		if s, ok := v.(string); ok {
			out[i] = s
		}
	}
	return out, nil
}

// SetAdd adds members to a set
func (c *Client) SetAdd(ctx context.Context, key string, members ...string) error {
	return c.SAdd(ctx, key, toArgs(members)...).Err()
}

// SetRemove removes members from a set
func (c *Client) SetRemove(ctx context.Context, key string, members ...string) error {
	return c.SRem(ctx, key, toArgs(members)...).Err()
}

// SetMembers lists the members of a set
func (c *Client) SetMembers(ctx context.Context, key string) ([]string, error) {
	return c.SMembers(ctx, key).Result()
}

// GeoAdd adds a location to a geospatial index
func (c *Client) GeoAdd(ctx context.Context, key string, longitude, latitude float64, member string) error {
	return c.Client.GeoAdd(ctx, key, &redis.GeoLocation{
		Longitude: longitude,
		Latitude:  latitude,
		Name:      member,
	}).Err()
}

// GeoSearch finds members within radiusMeters of a point, nearest first
func (c *Client) GeoSearch(ctx context.Context, key string, longitude, latitude, radiusMeters float64, count int) ([]GeoMember, error) {
	result, err := c.GeoSearchLocation(ctx, key, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  longitude,
			Latitude:   latitude,
			Radius:     radiusMeters,
			RadiusUnit: "m",
			Sort:       "ASC",
			Count:      count,
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, err
	}

	members := make([]GeoMember, 0, len(result))
	for _, loc := range result {
		members = append(members, GeoMember{
			Name:           loc.Name,
			DistanceMeters: loc.Dist,
			Longitude:      loc.Longitude,
			Latitude:       loc.Latitude,
		})
	}
	return members, nil
}

// GeoRemove removes members from a geospatial index
func (c *Client) GeoRemove(ctx context.Context, key string, members ...string) error {
	return c.ZRem(ctx, key, toArgs(members)...).Err()
}

func toArgs(members []string) []interface{} {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return args
}
