package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient() (*Client, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return &Client{Client: db}, mock
}

func TestClient_SetAndGet(t *testing.T) {
	client, mock := newMockClient()
	ctx := context.Background()

	mock.ExpectSet("vehicle:position:bus-1", "payload", time.Minute).SetVal("OK")
	mock.ExpectGet("vehicle:position:bus-1").SetVal("payload")
	mock.ExpectGet("vehicle:position:missing").RedisNil()

	require.NoError(t, client.SetWithExpiration(ctx, "vehicle:position:bus-1", "payload", time.Minute))

	got, err := client.GetString(ctx, "vehicle:position:bus-1")
	require.NoError(t, err)
	assert.Equal(t, "payload", got)

	_, err = client.GetString(ctx, "vehicle:position:missing")
	assert.True(t, IsNil(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_MGetStrings(t *testing.T) {
	client, mock := newMockClient()

	mock.ExpectMGet("a", "b", "c").SetVal([]interface{}{"1", nil, "3"})

	got, err := client.MGetStrings(context.Background(), "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "", "3"}, got)

	empty, err := client.MGetStrings(context.Background())
	require.NoError(t, err)
	assert.Nil(t, empty)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_SetOperations(t *testing.T) {
	client, mock := newMockClient()
	ctx := context.Background()

	mock.ExpectSAdd("route:vehicles:r1", "bus-1").SetVal(1)
	mock.ExpectSMembers("route:vehicles:r1").SetVal([]string{"bus-1"})
	mock.ExpectSRem("route:vehicles:r1", "bus-1").SetVal(1)

	require.NoError(t, client.SetAdd(ctx, "route:vehicles:r1", "bus-1"))
	members, err := client.SetMembers(ctx, "route:vehicles:r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bus-1"}, members)
	require.NoError(t, client.SetRemove(ctx, "route:vehicles:r1", "bus-1"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_GeoSearch(t *testing.T) {
	client, mock := newMockClient()

	mock.ExpectGeoSearchLocation("vehicles:geo", &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  -0.187,
			Latitude:   5.6037,
			Radius:     1000,
			RadiusUnit: "m",
			Sort:       "ASC",
			Count:      10,
		},
		WithCoord: true,
		WithDist:  true,
	}).SetVal([]redis.GeoLocation{
		{Name: "bus-1", Dist: 120.5, Longitude: -0.186, Latitude: 5.604},
	})

	got, err := client.GeoSearch(context.Background(), "vehicles:geo", -0.187, 5.6037, 1000, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bus-1", got[0].Name)
	assert.Equal(t, 120.5, got[0].DistanceMeters)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_GeoSearchError(t *testing.T) {
	client, mock := newMockClient()

	mock.ExpectGeoSearchLocation("vehicles:geo", &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude: 0, Latitude: 0, Radius: 10, RadiusUnit: "m", Sort: "ASC",
		},
		WithCoord: true,
		WithDist:  true,
	}).SetErr(errors.New("connection refused"))

	_, err := client.GeoSearch(context.Background(), "vehicles:geo", 0, 0, 10, 0)
	assert.Error(t, err)
}
