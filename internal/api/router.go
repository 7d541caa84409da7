package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter assembles the HTTP routes with the standard middleware chain.
func NewRouter(h *Handlers, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(Recoverer(logger))
	r.Use(RequestID)
	r.Use(RequestLogger(logger))

	r.Get("/healthz", h.Healthz)

	r.Route("/api/v1/jobs", func(r chi.Router) {
		r.Get("/status", h.GetJobsStatus)
		r.Post("/run/{jobID}", h.RunJob)
	})

	r.Post("/api/v1/interactions", h.CreateInteraction)

	r.Route("/api/v1/appointments", func(r chi.Router) {
		r.Post("/{id}/reschedule", h.RescheduleAppointment)
		r.Post("/{id}/cancel", h.CancelAppointment)
	})

	r.Route("/integrations/google", func(r chi.Router) {
		r.Get("/init", h.BeginGoogleAuth)
		r.Get("/callback", h.CompleteGoogleAuth)
		r.Get("/status/{userID}", h.GetGoogleStatus)
		r.Delete("/disconnect/{userID}", h.DisconnectGoogle)
	})

	return r
}
