package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/lead-engine/internal/analytics"
	"github.com/ignite/lead-engine/internal/pkg/httputil"
)

// HandleCampaignResults returns per-variant rates and the winner for one
// A/B campaign.
// GET /api/abtests/{campaignID}/results
func (h *Handlers) HandleCampaignResults(w http.ResponseWriter, r *http.Request) {
	if h.analytics == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "analytics not configured")
		return
	}
	campaignID := chi.URLParam(r, "campaignID")

	results, err := h.analytics.CampaignResults(campaignID)
	if errors.Is(err, analytics.ErrCampaignNotFound) {
		httputil.NotFound(w, "campaign not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, results)
}

// HandleAnalyticsReport returns the cross-campaign report sorted by click
// rate.
// GET /api/analytics/report
func (h *Handlers) HandleAnalyticsReport(w http.ResponseWriter, r *http.Request) {
	if h.analytics == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "analytics not configured")
		return
	}
	httputil.OK(w, h.analytics.AnalyticsReport())
}
