package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLockMutualExclusion(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "scheduler", time.Minute)
	b := NewRedisLock(client, "scheduler", time.Minute)

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire")

	require.NoError(t, a.Release(ctx))

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReleaseIgnoresForeignLock(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "scheduler", time.Minute)
	b := NewRedisLock(client, "scheduler", time.Minute)

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// b never held the lock; its release must not free a's.
	require.NoError(t, b.Release(ctx))

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLockExpires(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "scheduler", time.Second)
	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	b := NewRedisLock(client, "scheduler", time.Second)
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock is free for the taking")
}
