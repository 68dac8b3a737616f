//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/cheques/internal/domain/currency"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRateCache_RedisTier(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	backing := &countingRates{MemoryRateStore: currency.NewMemoryRateStore(newRate(t, "USD", "EGP", "30.5", "2024-03-01"))}
	writer := NewRateCache(backing, RateCacheConfig{TTL: time.Minute, Redis: client})
	reader := NewRateCache(backing, RateCacheConfig{TTL: time.Minute, Redis: client})

	_, err := writer.FindLatest(ctx, "USD", "EGP", asOf)
	require.NoError(t, err)

	got, err := reader.FindLatest(ctx, "USD", "EGP", asOf)
	require.NoError(t, err)
	assert.True(t, got.Rate.Equal(decimal.RequireFromString("30.5")))
	assert.Equal(t, int64(1), backing.finds.Load(), "second replica reads the shared tier")
	assert.Equal(t, int64(1), reader.Stats().RemoteHits)

	require.NoError(t, writer.Save(ctx, newRate(t, "USD", "EGP", "31", "2024-03-14")))
	exists, err := client.Exists(ctx, remoteKey("USD", "EGP")).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestRedisIdempotencyStore(t *testing.T) {
	client := startRedis(t)
	store := NewRedisIdempotencyStore(client, "")
	ctx := context.Background()
	key := "cheque:MCE-0001:row-1"

	ok, err := store.MarkProcessed(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.MarkProcessed(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Release(ctx, key))
	processed, err := store.IsProcessed(ctx, key)
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, store.Close())
	assert.NoError(t, client.Ping(ctx).Err(), "store must not close the shared client")
}
