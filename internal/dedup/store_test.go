package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ReserveOnce(t *testing.T) {
	store := NewMemoryStore(10, time.Minute)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "msg1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "msg1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Reserve(ctx, "msg2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_ReleaseAllowsRetry(t *testing.T) {
	store := NewMemoryStore(10, time.Minute)
	ctx := context.Background()

	_, _ = store.Reserve(ctx, "msg1")
	require.NoError(t, store.Release(ctx, "msg1"))

	ok, err := store.Reserve(ctx, "msg1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore_UnreachableReturnsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	store := NewRedisStore(client, time.Minute)
	_, err := store.Reserve(context.Background(), "msg1")
	assert.Error(t, err)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
