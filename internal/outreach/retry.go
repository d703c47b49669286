package outreach

import (
	"context"
	"math"
	"time"
)

// Retry policy defaults: 3 attempts, exponential backoff between 4s and 10s.
// Only transient connectivity failures are retried; everything else
// propagates from the first attempt.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 4 * time.Second
	DefaultMaxDelay    = 10 * time.Second
)

// RetryPolicy controls the backoff loop in Do.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns the standard transient-retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// backoff returns the delay before the given attempt (1-based retry count):
// BaseDelay * 2^(attempt-1), capped at MaxDelay.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(2, float64(attempt-1))
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Do runs op up to MaxAttempts times, sleeping with exponential backoff
// between attempts. Non-transient errors and context cancellation stop the
// loop immediately; the last error is returned after exhaustion.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(p.backoff(attempt - 1))
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
