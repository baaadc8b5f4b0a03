// Package metrics holds the Prometheus collectors exported by Liora.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "liora"

// Metrics groups every collector used by the engine.
type Metrics struct {
	registry *prometheus.Registry

	AgentTurns          *prometheus.CounterVec
	ExtractionFailures  *prometheus.CounterVec
	GuardRejections     *prometheus.CounterVec
	FamilyLookups       *prometheus.CounterVec
	InviteCodesIssued   prometheus.Counter
	CompletionDuration  *prometheus.HistogramVec
	CompletionFailures  *prometheus.CounterVec
	PersistenceFailures prometheus.Counter
	VersionConflicts    prometheus.Counter
	RemindersSent       prometheus.Counter
}

// New creates all collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		AgentTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_turns_total",
			Help:      "Conversation turns handled, by agent.",
		}, []string{"agent"}),
		ExtractionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Completions that could not be parsed as JSON, by agent.",
		}, []string{"agent"}),
		GuardRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_rejections_total",
			Help:      "Structured update fields dropped by onboarding guards, by guard.",
		}, []string{"guard"}),
		FamilyLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "family_lookups_total",
			Help:      "Family code lookups, by outcome.",
		}, []string{"outcome"}),
		InviteCodesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invite_codes_issued_total",
			Help:      "Invite codes generated for pioneers completing onboarding.",
		}),
		CompletionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Latency of completion provider calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"provider"}),
		CompletionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_failures_total",
			Help:      "Completion provider calls that returned an error.",
		}, []string{"provider"}),
		PersistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Reconciled updates that could not be written.",
		}),
		VersionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_version_conflicts_total",
			Help:      "Optimistic profile writes retried because of a concurrent update.",
		}),
		RemindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_reminders_sent_total",
			Help:      "Schedule reminders delivered to family members.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.AgentTurns,
		m.ExtractionFailures,
		m.GuardRejections,
		m.FamilyLookups,
		m.InviteCodesIssued,
		m.CompletionDuration,
		m.CompletionFailures,
		m.PersistenceFailures,
		m.VersionConflicts,
		m.RemindersSent,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
