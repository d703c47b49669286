package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the router with logging, recovery, and CORS
// middleware and mounts all engine endpoints under /api.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HandleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Route("/leads", func(lr chi.Router) {
			lr.Post("/", h.HandleAdmitLead)
			lr.Post("/research", h.HandleResearch)
			lr.Get("/{email}", h.HandleGetLead)
			lr.Post("/{email}/interactions", h.HandleLeadInteraction)
			lr.Post("/{email}/plan", h.HandleCreatePlan)
			lr.Get("/{email}/plan", h.HandleGetPlan)
			lr.Post("/{email}/plan/approval", h.HandleApprovePlan)
			lr.Post("/{email}/plan/execute", h.HandleExecutePlan)
		})

		api.Route("/sequences", func(sr chi.Router) {
			sr.Post("/", h.HandleCreateSequence)
			sr.Post("/process", h.HandleProcessDue)
			sr.Post("/{id}/enrollments", h.HandleEnroll)
			sr.Put("/{id}/status", h.HandleSetStatus)
			sr.Get("/{id}/performance", h.HandleSequencePerformance)
		})

		api.Post("/engagement/events", h.HandleEngagementEvent)

		api.Get("/abtests/{campaignID}/results", h.HandleCampaignResults)
		api.Get("/analytics/report", h.HandleAnalyticsReport)
	})

	return r
}
