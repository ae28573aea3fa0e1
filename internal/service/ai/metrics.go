package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upstream attempt outcomes.
const (
	outcomeOK          = "ok"
	outcomeRateLimited = "rate_limited"
	outcomeStatusError = "status_error"
	outcomeTransport   = "transport_error"
	outcomeMalformed   = "malformed"
)

var (
	generationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyforge_generations_total",
		Help: "Story generations served, by source (upstream, mock, fallback).",
	}, []string{"source"})

	upstreamAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyforge_upstream_attempts_total",
		Help: "HTTP attempts against the upstream model, by outcome.",
	}, []string{"model", "outcome"})

	upstreamAttemptDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storyforge_upstream_attempt_duration_seconds",
		Help:    "Duration of single upstream attempts.",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	upstreamTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyforge_upstream_tokens_total",
		Help: "Tokens reported by the upstream model, by kind (prompt, completion).",
	}, []string{"model", "kind"})
)
