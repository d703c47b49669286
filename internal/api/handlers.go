// Package api exposes the engagement engine over HTTP: lead research and
// admission, plan lifecycle, sequence management, engagement webhooks, and
// A/B reporting.
package api

import (
	"context"

	"github.com/ignite/lead-engine/internal/analytics"
	"github.com/ignite/lead-engine/internal/domain"
	"github.com/ignite/lead-engine/internal/engagement"
	"github.com/ignite/lead-engine/internal/leads"
	"github.com/ignite/lead-engine/internal/pkg/logger"
	"github.com/ignite/lead-engine/internal/sequence"
	"github.com/ignite/lead-engine/internal/storage"
)

func leadKey(email string) string { return "lead:" + email }

// Handlers bundles the services the HTTP layer fronts.
type Handlers struct {
	store      storage.Store
	researcher *leads.Researcher
	engine     *engagement.Engine
	sequences  *sequence.Manager
	analytics  *analytics.Aggregator
	health     *HealthChecker
	log        *logger.Logger
}

// NewHandlers creates the handler set. Any service can be nil; its
// endpoints will respond 503.
func NewHandlers(store storage.Store, researcher *leads.Researcher, engine *engagement.Engine, seq *sequence.Manager, agg *analytics.Aggregator, health *HealthChecker) *Handlers {
	return &Handlers{
		store:      store,
		researcher: researcher,
		engine:     engine,
		sequences:  seq,
		analytics:  agg,
		health:     health,
		log:        logger.New("api"),
	}
}

func (h *Handlers) saveLead(ctx context.Context, p domain.LeadProfile) error {
	return h.store.Set(ctx, leadKey(p.Email), p)
}

func (h *Handlers) loadLead(ctx context.Context, email string) (domain.LeadProfile, error) {
	var p domain.LeadProfile
	err := h.store.Get(ctx, leadKey(email), &p)
	return p, err
}
