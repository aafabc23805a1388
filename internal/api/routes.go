package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ignite/outreach-tracker/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, health *HealthChecker, allowedOrigins []string, metricsPath string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(metrics.Middleware)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if health != nil {
		r.Get("/health", health.HandleHealth)
		r.Get("/health/live", health.HandleLiveness)
		r.Get("/health/ready", health.HandleReadiness)
	}
	if metricsPath != "" {
		r.Handle(metricsPath, promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(requireUser)

		r.Route("/outreach", func(r chi.Router) {
			r.Get("/by-stage/{stage}", h.ListByStage)
			r.Post("/generate", h.GenerateBatch)
			r.Post("/dedup", h.Dedup)
			r.Put("/{id}/status", h.SetStatus)
			r.Post("/{id}/mark-sent", h.MarkSent)
			r.Post("/{id}/lastchance", h.RegenerateLastchance)
			r.Delete("/{id}", h.DeleteRecord)
		})

		r.Get("/templates", h.ListTemplates)

		r.Route("/friends", func(r chi.Router) {
			r.Get("/", h.ListFriends)
			r.Get("/requests", h.ListFriendRequests)
			r.Post("/requests", h.SendFriendRequest)
			r.Post("/requests/{fromUserID}/respond", h.RespondFriendRequest)
			r.Get("/shared-emails", h.SharedEmails)
			r.Post("/{id}/share", h.SetSharing)
			r.Delete("/{id}", h.RemoveFriend)
		})

		r.Get("/settings/intervals", h.GetIntervals)
		r.Post("/settings/intervals", h.UpdateIntervals)

		r.Post("/admin/sweep", h.RunSweep)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	})
	return r
}
