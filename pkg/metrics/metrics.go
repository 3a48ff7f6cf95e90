// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// GenerationDuration tracks vendor completion duration end to end,
	// including retries within a single provider.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_duration_seconds",
			Help:    "Vendor completion duration in seconds",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
		[]string{"provider", "status"},
	)

	// GenerationTokensTotal tracks tokens exchanged with vendors.
	GenerationTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_tokens_total",
			Help: "Total tokens exchanged with vendors",
		},
		[]string{"provider", "direction"},
	)

	// ProviderAttemptsTotal tracks individual provider attempts by outcome.
	ProviderAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_attempts_total",
			Help: "Provider attempts by outcome",
		},
		[]string{"provider", "outcome"},
	)

	// FailoversTotal counts hand-offs away from a failed provider.
	FailoversTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_failovers_total",
			Help: "Failovers away from an exhausted provider",
		},
		[]string{"provider"},
	)

	// FallbacksTotal counts requests served by the static fallback.
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_fallbacks_total",
			Help: "Requests answered with the static fallback",
		},
		[]string{"reason"},
	)

	// RiskAssessmentsTotal counts assessments by resulting level.
	RiskAssessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_assessments_total",
			Help: "Risk assessments by level",
		},
		[]string{"level"},
	)

	// EscalationsTotal counts escalation hand-offs by priority and status.
	EscalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escalations_total",
			Help: "Escalation records by priority and hand-off status",
		},
		[]string{"priority", "status"},
	)

	// RedactionFailuresTotal counts records shipped with content withheld.
	RedactionFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "escalation_redaction_failures_total",
			Help: "Escalations whose content was withheld after unverified redaction",
		},
	)

	// SessionsTotal counts conversation sessions opened.
	SessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_total",
			Help: "Conversation sessions opened",
		},
	)

	// SummarizationsTotal counts history folds into the long-term summary.
	SummarizationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_summarizations_total",
			Help: "History folds into the long-term summary",
		},
	)

	// NATSStreamMessages tracks messages in NATS stream.
	NATSStreamMessages = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nats_stream_messages",
			Help: "Number of messages in NATS stream",
		},
		[]string{"stream"},
	)

	// NATSStreamBytes tracks bytes in NATS stream.
	NATSStreamBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nats_stream_bytes",
			Help: "Bytes in NATS stream",
		},
		[]string{"stream"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordGeneration records token usage for a completed vendor call.
func RecordGeneration(provider string, tokensIn, tokensOut int) {
	GenerationTokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	GenerationTokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
}
