/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the web and mobile clients

ROUTE GROUPS:
  /api/presets              Preset catalog
  /api/households/*         Households, staff, invitations, policy
  /api/invitations/accept   Join a household by code
  /api/onboarding/*         Wizard state and commands
  /api/scenarios/*          Demo scenarios (AllowScenarios only)
  /metrics                  Prometheus
  /healthz                  Store reachability

SECURITY NOTE:
  Authentication is terminated upstream; the gateway sets X-User-ID.

SEE ALSO:
  - handlers.go, onboarding.go, scenarios.go: Handler implementations
  - cmd/homestaff/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/homestaff/household-engine/internal/metrics"
)

// NewRouter creates a new router with all routes configured.
// allowedOrigins defaults to any origin when empty.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", UserHeader},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/presets", h.ListPresets)

		r.Route("/households", func(r chi.Router) {
			r.Get("/", h.ListHouseholds)
			r.Post("/", h.CreateHousehold)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetHousehold)

				r.Get("/employees", h.ListEmployees)
				r.Post("/employees", h.CreateEmployee)
				r.Post("/invitations", h.CreateInvitation)

				r.Get("/policy", h.GetPolicyOverview)
				r.Put("/holiday-preset", h.ApplyHolidayPreset)
				r.Put("/attendance-preset", h.ApplyAttendancePreset)
				r.Get("/holiday-rules", h.ListHolidayRules)
				r.Post("/holiday-rules", h.CreateHolidayRule)
				r.Get("/holiday-rules/{ruleID}/calendar", h.GetRuleCalendar)
			})
		})

		r.Post("/invitations/accept", h.AcceptInvitation)

		r.Route("/onboarding", func(r chi.Router) {
			r.Get("/", h.GetOnboarding)
			r.Post("/start", h.StartOnboarding)
			r.Post("/resume", h.ResumeOnboarding)
			r.Post("/commands", h.HandleOnboardingCommand)
			r.Post("/autosave", h.AutoSaveOnboarding)
		})

		if h.AllowScenarios {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
				r.Post("/reset", h.ResetDatabase)
			})
		}
	})

	return r
}
