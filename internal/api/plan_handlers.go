package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/lead-engine/internal/domain"
	"github.com/ignite/lead-engine/internal/pkg/httputil"
	"github.com/ignite/lead-engine/internal/storage"
)

// HandleCreatePlan derives an engagement plan for a stored lead.
// POST /api/leads/{email}/plan
func (h *Handlers) HandleCreatePlan(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "engagement engine not configured")
		return
	}
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

	plan, err := h.engine.CreatePlan(r.Context(), profile)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, plan)
}

// HandleGetPlan returns the cached plan for a lead.
// GET /api/leads/{email}/plan
func (h *Handlers) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "engagement engine not configured")
		return
	}
	email := chi.URLParam(r, "email")

	plan, err := h.engine.Plan(r.Context(), email)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.NotFound(w, "plan not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, plan)
}

// ApprovalRequest sets a plan's approval decision.
type ApprovalRequest struct {
	Approved bool `json:"approved"`
}

// HandleApprovePlan records the human decision on a pending plan.
// POST /api/leads/{email}/plan/approval
func (h *Handlers) HandleApprovePlan(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "engagement engine not configured")
		return
	}
	email := chi.URLParam(r, "email")

	var req ApprovalRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	status := domain.ApprovalRejected
	if req.Approved {
		status = domain.ApprovalApproved
	}

	plan, err := h.engine.SetApproval(r.Context(), email, status)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.NotFound(w, "plan not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, plan)
}

// ExecuteResponse reports the outcome of one plan execution.
type ExecuteResponse struct {
	Executed bool                  `json:"executed"`
	Plan     domain.EngagementPlan `json:"plan"`
}

// HandleExecutePlan runs the plan's channels through rate limiting and the
// outreach stack. An unapproved plan is a no-op, not an error.
// POST /api/leads/{email}/plan/execute
func (h *Handlers) HandleExecutePlan(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "engagement engine not configured")
		return
	}
	email := chi.URLParam(r, "email")

	plan, err := h.engine.Plan(r.Context(), email)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.NotFound(w, "plan not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	updated, ok := h.engine.ExecutePlan(r.Context(), plan)
	httputil.OK(w, ExecuteResponse{Executed: ok, Plan: updated})
}
