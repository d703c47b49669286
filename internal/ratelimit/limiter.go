// Package ratelimit bounds outbound sends per channel per clock hour using
// Redis counters with TTL expiry. The check-and-increment is a single Lua
// script so concurrent senders never race between the read and the
// increment.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default hourly limits per channel.
const (
	DefaultEmailPerHour  = 50
	DefaultSocialPerHour = 30
)

// hourKeyFormat buckets counters per clock hour; the 51st send in the same
// hour is rejected regardless of how earlier sends fared.
const hourKeyFormat = "2006-01-02-15"

// RateLimitError reports a rejected attempt. It is never retried by the
// limiter's callers; the next scheduled pass retries naturally.
type RateLimitError struct {
	Channel string
	Limit   int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for channel %q (%d/hour)", e.Channel, e.Limit)
}

// The script increments only when the counter is below the limit, and sets
// the TTL on first increment so the key expires with its hour bucket.
const checkAndIncrScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = tonumber(redis.call("GET", key) or "0")
if current >= limit then
    return {0, current}
end

local newVal = redis.call("INCR", key)
if newVal == 1 then
    redis.call("EXPIRE", key, ttl)
end
return {1, newVal}
`

// Limiter enforces per-channel hourly send limits.
type Limiter struct {
	redis  *redis.Client
	script *redis.Script
	limits map[string]int
	now    func() time.Time
}

// New creates a limiter with the given per-channel hourly limits. Channels
// missing from limits fall back to the email default.
func New(client *redis.Client, limits map[string]int) *Limiter {
	if limits == nil {
		limits = map[string]int{
			"email":  DefaultEmailPerHour,
			"social": DefaultSocialPerHour,
		}
	}
	return &Limiter{
		redis:  client,
		script: redis.NewScript(checkAndIncrScript),
		limits: limits,
		now:    time.Now,
	}
}

// NewFromURL connects to Redis and returns a limiter.
func NewFromURL(redisURL string, limits map[string]int) (*Limiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return New(client, limits), nil
}

func (l *Limiter) key(channel string) string {
	return fmt.Sprintf("%s_rate:%s", channel, l.now().Format(hourKeyFormat))
}

func (l *Limiter) limit(channel string) int {
	if limit, ok := l.limits[channel]; ok {
		return limit
	}
	return DefaultEmailPerHour
}

// Allow counts one attempted send on the channel. It returns a
// *RateLimitError when the hourly limit is already reached; the counter is
// incremented on every allowed attempt whether or not the send later
// succeeds.
func (l *Limiter) Allow(ctx context.Context, channel string) error {
	limit := l.limit(channel)

	result, err := l.script.Run(ctx, l.redis,
		[]string{l.key(channel)},
		limit,
		int(time.Hour/time.Second),
	).Slice()
	if err != nil {
		return fmt.Errorf("rate limit check failed: %w", err)
	}

	if allowed, _ := result[0].(int64); allowed != 1 {
		return &RateLimitError{Channel: channel, Limit: limit}
	}
	return nil
}

// Usage returns the current hour's counter for the channel.
func (l *Limiter) Usage(ctx context.Context, channel string) (int64, error) {
	n, err := l.redis.Get(ctx, l.key(channel)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// Close releases the Redis connection.
func (l *Limiter) Close() error {
	return l.redis.Close()
}
