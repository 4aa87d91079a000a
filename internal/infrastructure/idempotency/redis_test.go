package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration Tests

func setupRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore_SetAndGet(t *testing.T) {
	client := setupRedis(t)
	store := NewRedisStore(client, "o2o-test-"+uuid.NewString())
	ctx := context.Background()

	_, ok, err := store.Get(ctx, ChargeKey("ord-1"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, ChargeKey("ord-1"), "txn-1", time.Minute))

	value, ok, err := store.Get(ctx, ChargeKey("ord-1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "txn-1", value)
}
