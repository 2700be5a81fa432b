// Package metrics exposes Prometheus counters for the onboarding flow,
// preset application and background jobs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "homestaff"

var (
	// OnboardingCommands counts handled wizard commands by type and outcome
	// ("ok", "invalid", "error").
	OnboardingCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "onboarding",
		Name:      "commands_total",
		Help:      "Onboarding commands handled, by command and outcome.",
	}, []string{"command", "outcome"})

	OnboardingCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "onboarding",
		Name:      "completed_total",
		Help:      "Onboarding flows completed.",
	})

	AutoSaveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "onboarding",
		Name:      "autosave_failures_total",
		Help:      "Best-effort progress saves that failed.",
	})

	// PresetsApplied counts preset applications by kind ("holiday",
	// "attendance") and preset id.
	PresetsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "policy",
		Name:      "presets_applied_total",
		Help:      "Default-policy presets applied to households.",
	}, []string{"kind", "preset"})

	InvitationsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "household",
		Name:      "invitations_expired_total",
		Help:      "Pending invitations expired by the sweeper.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
