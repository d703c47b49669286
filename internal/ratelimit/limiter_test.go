package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLimiter(t *testing.T, limits map[string]int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return New(client, limits), mr
}

func TestAllowUpToLimit(t *testing.T) {
	l, _ := setupLimiter(t, map[string]int{"email": 50})
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		require.NoError(t, l.Allow(ctx, "email"), "send %d should be allowed", i+1)
	}

	err := l.Allow(ctx, "email")
	require.Error(t, err)

	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "email", rle.Channel)
	assert.Equal(t, 50, rle.Limit)
}

func TestChannelsIndependent(t *testing.T) {
	l, _ := setupLimiter(t, map[string]int{"email": 2, "social": 30})
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, "email"))
	require.NoError(t, l.Allow(ctx, "email"))
	require.Error(t, l.Allow(ctx, "email"))

	// Email exhaustion does not affect social.
	assert.NoError(t, l.Allow(ctx, "social"))
}

func TestHourBucketKey(t *testing.T) {
	l, _ := setupLimiter(t, nil)
	l.now = func() time.Time {
		return time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)
	}
	assert.Equal(t, "email_rate:2025-06-01-14", l.key("email"))
}

func TestNewHourResetsCounter(t *testing.T) {
	l, _ := setupLimiter(t, map[string]int{"email": 1})
	ctx := context.Background()

	hour := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return hour }

	require.NoError(t, l.Allow(ctx, "email"))
	require.Error(t, l.Allow(ctx, "email"))

	// Next hour gets a fresh bucket.
	l.now = func() time.Time { return hour.Add(time.Hour) }
	assert.NoError(t, l.Allow(ctx, "email"))
}

func TestCounterKeyExpires(t *testing.T) {
	l, mr := setupLimiter(t, nil)
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, "email"))
	key := l.key("email")
	require.True(t, mr.Exists(key))

	mr.FastForward(time.Hour + time.Minute)
	assert.False(t, mr.Exists(key))
}

func TestUsage(t *testing.T) {
	l, _ := setupLimiter(t, nil)
	ctx := context.Background()

	n, err := l.Usage(ctx, "email")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.NoError(t, l.Allow(ctx, "email"))
	require.NoError(t, l.Allow(ctx, "email"))

	n, err = l.Usage(ctx, "email")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUnknownChannelUsesDefault(t *testing.T) {
	l, _ := setupLimiter(t, map[string]int{"email": 50})
	assert.Equal(t, DefaultEmailPerHour, l.limit("sms"))
}

func TestAllowConcurrent(t *testing.T) {
	l, _ := setupLimiter(t, map[string]int{"email": 30})
	ctx := context.Background()

	var wg sync.WaitGroup
	allowed := make([]bool, 60)
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			allowed[i] = l.Allow(ctx, "email") == nil
		}(i)
	}
	wg.Wait()

	count := 0
	for _, ok := range allowed {
		if ok {
			count++
		}
	}
	assert.Equal(t, 30, count, "exactly the limit may pass under contention")
}
