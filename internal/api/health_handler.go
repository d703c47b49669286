package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/lead-engine/internal/pkg/httputil"
	"github.com/ignite/lead-engine/internal/storage"
)

// HealthStatus represents the overall health of the engine.
type HealthStatus struct {
	Status string                    `json:"status"` // "healthy", "degraded"
	Uptime string                    `json:"uptime"`
	Checks map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck represents the health of a single dependency.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "not_configured"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthChecker probes the engine's dependencies. Any dependency can be
// nil; it is reported as "not_configured" without degrading health.
type HealthChecker struct {
	store     storage.Store
	redis     *redis.Client
	startTime time.Time
}

// NewHealthChecker creates a checker for the given dependencies.
func NewHealthChecker(store storage.Store, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{store: store, redis: redisClient, startTime: time.Now()}
}

func (hc *HealthChecker) checkStore(r *http.Request) ComponentCheck {
	if hc.store == nil {
		return ComponentCheck{Status: "not_configured"}
	}
	start := time.Now()
	var probe map[string]any
	err := hc.store.Get(r.Context(), "health:probe", &probe)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return ComponentCheck{Status: "down", Message: err.Error()}
	}
	return ComponentCheck{Status: "up", Latency: time.Since(start).String()}
}

func (hc *HealthChecker) checkRedis(r *http.Request) ComponentCheck {
	if hc.redis == nil {
		return ComponentCheck{Status: "not_configured"}
	}
	start := time.Now()
	if err := hc.redis.Ping(r.Context()).Err(); err != nil {
		return ComponentCheck{Status: "down", Message: err.Error()}
	}
	return ComponentCheck{Status: "up", Latency: time.Since(start).String()}
}

// HandleHealth reports dependency health.
// GET /health
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		httputil.OK(w, HealthStatus{Status: "healthy", Checks: map[string]ComponentCheck{}})
		return
	}

	checks := map[string]ComponentCheck{
		"storage": h.health.checkStore(r),
		"redis":   h.health.checkRedis(r),
	}

	status := "healthy"
	for _, c := range checks {
		if c.Status == "down" {
			status = "degraded"
		}
	}

	httputil.OK(w, HealthStatus{
		Status: status,
		Uptime: time.Since(h.health.startTime).Round(time.Second).String(),
		Checks: checks,
	})
}
