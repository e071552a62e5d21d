package console

import (
	"net/http"

	"github.com/classroute/routeconsole/internal/config"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the HTTP router exposing the engine to the UI.
func NewRouter(cfg *config.Config, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(Logger)
	r.Use(Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health & info
	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler(cfg))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Post("/refresh", h.Refresh)
		r.Post("/identity", h.ChangeIdentity)
		r.Post("/simulate", h.Simulate)

		// Draft edits
		r.Route("/draft", func(r chi.Router) {
			r.Post("/reset", h.ResetDraft)
			r.Route("/channels", func(r chi.Router) {
				r.Post("/", h.AddChannel)
				r.Patch("/{index}", h.UpdateChannel)
				r.Delete("/{index}", h.RemoveChannel)
			})
			r.Route("/rules", func(r chi.Router) {
				r.Post("/", h.AddRule)
				r.Patch("/{index}", h.UpdateRule)
				r.Delete("/{index}", h.RemoveRule)
			})
		})

		// Proposal workflow
		r.Route("/proposals", func(r chi.Router) {
			r.Post("/", h.Propose)
			r.Route("/{proposalId}", func(r chi.Router) {
				r.Get("/", h.GetProposalDetail)
				r.Post("/review", h.ReviewProposal)
				r.Post("/toggle", h.ToggleProposalDetail)
			})
		})
		r.Post("/rollback", h.Rollback)

		// History
		r.Get("/history", h.GetHistory)

		// Provider registry
		r.Route("/providers", func(r chi.Router) {
			r.Get("/", h.ListProviders)
			r.Post("/", h.CreateProvider)
			r.Route("/{providerId}", func(r chi.Router) {
				r.Get("/form", h.GetProviderForm)
				r.Patch("/", h.UpdateProvider)
				r.Delete("/", h.DeleteProvider)
			})
		})

		// Model discovery
		r.Get("/models/{provider}", h.GetModels)
		r.Post("/models/probe", h.ProbeDraftProviders)

		// Preferences
		r.Get("/prefs", h.GetPrefs)
		r.Post("/prefs", h.SetPref)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "routeconsole",
	})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{
			"version": cfg.Version,
			"service": "routeconsole",
		})
	}
}
