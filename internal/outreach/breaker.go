package outreach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ignite/lead-engine/internal/pkg/logger"
)

// Breaker defaults: trip after 5 consecutive failures, probe again after a
// 300-second cooldown.
const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 300 * time.Second
)

// ErrCircuitOpen is returned while the breaker short-circuits calls.
// Callers log and move on; the next scheduled pass retries naturally.
var ErrCircuitOpen = errors.New("outreach: circuit open")

// BreakerConfig tunes a Guard's circuit breaker.
type BreakerConfig struct {
	FailureThreshold uint32
	Cooldown         time.Duration
}

// Guard wraps a Channel with a circuit breaker.
// While open, Send fails immediately without touching the underlying
// channel. Half-open lets one trial call through; a failure there re-opens
// the circuit and restarts the cooldown.
type Guard struct {
	channel Channel
	cb      *gobreaker.CircuitBreaker
	log     *logger.Logger
}

// NewGuard wraps channel with a circuit breaker. Zero config fields get the
// defaults.
func NewGuard(channel Channel, cfg BreakerConfig) *Guard {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = DefaultCooldown
	}

	log := logger.New("breaker")
	settings := gobreaker.Settings{
		Name:        fmt.Sprintf("%s-channel", channel.Name()),
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit state changed",
				"name", name, "from", from.String(), "to", to.String())
		},
	}

	return &Guard{
		channel: channel,
		cb:      gobreaker.NewCircuitBreaker(settings),
		log:     log,
	}
}

// Name returns the underlying channel's name.
func (g *Guard) Name() string { return g.channel.Name() }

// Send delivers through the breaker. Returns ErrCircuitOpen while the
// circuit rejects calls.
func (g *Guard) Send(ctx context.Context, recipientID string, msg Message) (Result, error) {
	res, err := g.cb.Execute(func() (any, error) {
		return g.channel.Send(ctx, recipientID, msg)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Result{Channel: g.channel.Name()}, ErrCircuitOpen
		}
		return Result{Channel: g.channel.Name()}, err
	}
	return res.(Result), nil
}

// State exposes the breaker state for health reporting.
func (g *Guard) State() string { return g.cb.State().String() }
