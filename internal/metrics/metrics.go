// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snowrail_validations_total",
		Help: "Validation requests by final decision.",
	}, []string{"decision"})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snowrail_validation_cache_hits_total",
		Help: "Validation results served from cache.",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snowrail_validation_cache_misses_total",
		Help: "Validation requests that ran the full check pipeline.",
	})

	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snowrail_validations_rate_limited_total",
		Help: "Validation requests rejected by per-destination admission control.",
	})

	CheckDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snowrail_check_duration_seconds",
		Help:    "Individual trust check execution time.",
		Buckets: prometheus.DefBuckets,
	}, []string{"check"})

	IntentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snowrail_payment_intents_total",
		Help: "Payment intents by lifecycle event.",
	}, []string{"event"})

	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snowrail_settlements_total",
		Help: "Settlement submissions by outcome code.",
	}, []string{"code"})
)
