package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/lead-engine/internal/domain"
	"github.com/ignite/lead-engine/internal/pkg/httputil"
	"github.com/ignite/lead-engine/internal/sequence"
)

// CreateSequenceRequest defines a new drip sequence.
type CreateSequenceRequest struct {
	ID    string                `json:"id"`
	Steps []domain.SequenceStep `json:"steps"`
}

// HandleCreateSequence registers a sequence definition.
// POST /api/sequences
func (h *Handlers) HandleCreateSequence(w http.ResponseWriter, r *http.Request) {
	if h.sequences == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "sequence manager not configured")
		return
	}

	var req CreateSequenceRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		httputil.BadRequest(w, "id is required")
		return
	}

	err := h.sequences.CreateSequence(r.Context(), req.ID, req.Steps)
	if errors.Is(err, sequence.ErrSequenceExists) {
		httputil.Conflict(w, "sequence already exists")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, map[string]string{"id": req.ID})
}

// EnrollRequest adds a contact to a sequence.
type EnrollRequest struct {
	ContactID  string         `json:"contact_id"`
	CustomData map[string]any `json:"custom_data,omitempty"`
}

// HandleEnroll enrolls a contact at step zero, due immediately.
// POST /api/sequences/{id}/enrollments
func (h *Handlers) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	if h.sequences == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "sequence manager not configured")
		return
	}
	sequenceID := chi.URLParam(r, "id")

	var req EnrollRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.ContactID == "" {
		httputil.BadRequest(w, "contact_id is required")
		return
	}

	err := h.sequences.Enroll(r.Context(), req.ContactID, sequenceID, req.CustomData)
	switch {
	case errors.Is(err, sequence.ErrSequenceNotFound):
		httputil.NotFound(w, "sequence not found")
	case errors.Is(err, sequence.ErrAlreadyEnrolled):
		httputil.Conflict(w, "contact already enrolled")
	case err != nil:
		httputil.InternalError(w, err)
	default:
		state, _ := h.sequences.State(req.ContactID, sequenceID)
		httputil.Created(w, state)
	}
}

// StatusRequest transitions a contact's sequence state.
type StatusRequest struct {
	ContactID string                `json:"contact_id"`
	Status    domain.SequenceStatus `json:"status"`
}

// HandleSetStatus pauses, resumes, or unsubscribes a contact. Terminal
// states reject further transitions.
// PUT /api/sequences/{id}/status
func (h *Handlers) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	if h.sequences == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "sequence manager not configured")
		return
	}
	sequenceID := chi.URLParam(r, "id")

	var req StatusRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	err := h.sequences.SetStatus(r.Context(), req.ContactID, sequenceID, req.Status)
	switch {
	case errors.Is(err, sequence.ErrStateNotFound):
		httputil.NotFound(w, "contact not enrolled")
	case errors.Is(err, sequence.ErrTerminalState):
		httputil.Conflict(w, "state is terminal")
	case err != nil:
		httputil.BadRequest(w, err.Error())
	default:
		state, _ := h.sequences.State(req.ContactID, sequenceID)
		httputil.OK(w, state)
	}
}

// HandleProcessDue triggers one scheduler pass outside the worker cadence.
// POST /api/sequences/process
func (h *Handlers) HandleProcessDue(w http.ResponseWriter, r *http.Request) {
	if h.sequences == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "sequence manager not configured")
		return
	}
	report := h.sequences.ProcessDue(r.Context())
	httputil.OK(w, report)
}

// HandleSequencePerformance returns the rollup for a sequence.
// GET /api/sequences/{id}/performance
func (h *Handlers) HandleSequencePerformance(w http.ResponseWriter, r *http.Request) {
	if h.sequences == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "sequence manager not configured")
		return
	}
	sequenceID := chi.URLParam(r, "id")

	perf, err := h.sequences.Performance(sequenceID)
	if errors.Is(err, sequence.ErrSequenceNotFound) {
		httputil.NotFound(w, "sequence not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, perf)
}

// EngagementEvent is the webhook payload for opens, clicks, and replies.
type EngagementEvent struct {
	ContactID  string `json:"contact_id"`
	SequenceID string `json:"sequence_id"`
	Metric     string `json:"metric"`
	Value      int    `json:"value,omitempty"`
}

// HandleEngagementEvent records an engagement metric against a contact's
// sequence state and forwards it to A/B analytics.
// POST /api/engagement/events
func (h *Handlers) HandleEngagementEvent(w http.ResponseWriter, r *http.Request) {
	if h.sequences == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "sequence manager not configured")
		return
	}

	var ev EngagementEvent
	if !httputil.Decode(w, r, &ev) {
		return
	}
	if ev.Value == 0 {
		ev.Value = 1
	}

	err := h.sequences.UpdateEngagement(r.Context(), ev.ContactID, ev.SequenceID, ev.Metric, ev.Value)
	switch {
	case errors.Is(err, sequence.ErrStateNotFound):
		httputil.NotFound(w, "contact not enrolled")
	case errors.Is(err, sequence.ErrInvalidMetric):
		httputil.BadRequest(w, "unknown metric: "+ev.Metric)
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.OK(w, map[string]string{"status": "recorded"})
	}
}
