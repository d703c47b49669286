package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/lead-engine/internal/domain"
	"github.com/ignite/lead-engine/internal/leads"
	"github.com/ignite/lead-engine/internal/pkg/httputil"
	"github.com/ignite/lead-engine/internal/storage"
)

// ResearchRequest asks the researcher to discover leads for a market.
type ResearchRequest struct {
	BusinessType string `json:"business_type"`
	Location     string `json:"location"`
}

// ResearchResponse carries the admitted profiles from one research pass.
type ResearchResponse struct {
	Count int                  `json:"count"`
	Leads []domain.LeadProfile `json:"leads"`
}

// HandleResearch runs a research pass and persists the admitted profiles.
// POST /api/leads/research
func (h *Handlers) HandleResearch(w http.ResponseWriter, r *http.Request) {
	if h.researcher == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "researcher not configured")
		return
	}

	var req ResearchRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.BusinessType == "" || req.Location == "" {
		httputil.BadRequest(w, "business_type and location are required")
		return
	}

	profiles, err := h.researcher.Research(r.Context(), req.BusinessType, req.Location)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	for _, p := range profiles {
		if err := h.saveLead(r.Context(), p); err != nil {
			h.log.Error("failed to persist researched lead", "lead", p.Email, "error", err)
		}
	}

	httputil.OK(w, ResearchResponse{Count: len(profiles), Leads: profiles})
}

// HandleAdmitLead validates and admits a single raw lead, scoring it on the
// way in.
// POST /api/leads
func (h *Handlers) HandleAdmitLead(w http.ResponseWriter, r *http.Request) {
	var raw domain.RawLead
	if !httputil.Decode(w, r, &raw) {
		return
	}

	profile, err := domain.NewLeadProfile(raw, leads.InitialEngagementScore(raw), leads.QualityScore(raw))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	if err := h.saveLead(r.Context(), profile); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, profile)
}

// HandleGetLead returns a stored profile by email.
// GET /api/leads/{email}
func (h *Handlers) HandleGetLead(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	profile, err := h.loadLead(r.Context(), email)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.NotFound(w, "lead not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, profile)
}

// InteractionRequest records an outreach touch against a lead, which
// recomputes its engagement score.
type InteractionRequest struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Channel string         `json:"channel,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// HandleLeadInteraction appends an interaction to a lead's history.
// POST /api/leads/{email}/interactions
func (h *Handlers) HandleLeadInteraction(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	var req InteractionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Type == "" {
		httputil.BadRequest(w, "type is required")
		return
	}

	profile, err := h.loadLead(r.Context(), email)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.NotFound(w, "lead not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	updated := leads.UpdateProfile(profile, domain.Interaction{
		ID:      req.ID,
		Type:    req.Type,
		Channel: req.Channel,
		Details: req.Details,
	})
	if err := h.saveLead(r.Context(), updated); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, updated)
}
