package outreach

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetryTransientThenSuccess(t *testing.T) {
	attempts := 0
	err := fastPolicy().Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return Transient(errors.New("connection reset"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryPermanentNoRetry(t *testing.T) {
	permanent := errors.New("invalid recipient")
	attempts := 0
	err := fastPolicy().Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestRetryExhaustion(t *testing.T) {
	attempts := 0
	err := fastPolicy().Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return Transient(errors.New("still down"))
	})
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.True(t, IsTransient(err))
}

func TestRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}.Do(ctx, func(ctx context.Context) error {
		attempts++
		cancel()
		return Transient(errors.New("flaky"))
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestBackoffCapped(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: 4 * time.Second, MaxDelay: 10 * time.Second}
	assert.Equal(t, 4*time.Second, p.backoff(1))
	assert.Equal(t, 8*time.Second, p.backoff(2))
	assert.Equal(t, 10*time.Second, p.backoff(3))
	assert.Equal(t, 10*time.Second, p.backoff(4))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(Transient(errors.New("x"))))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(errors.New("bad address")))
	assert.False(t, IsTransient(nil))
}
