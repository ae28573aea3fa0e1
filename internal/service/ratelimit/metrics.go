package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultAllowed = "allowed"
	resultLimited = "limited"
	resultError   = "error"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyforge_ratelimit_decisions_total",
		Help: "Rate limiter decisions by result",
	}, []string{"result"})

	trackedKeys = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storyforge_ratelimit_tracked_keys",
		Help: "Client keys currently held by the in-memory limiter store",
	})

	evictedKeysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyforge_ratelimit_evicted_keys_total",
		Help: "Client keys removed by the in-memory limiter janitor",
	})
)
