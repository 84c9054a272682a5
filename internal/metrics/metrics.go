// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Search metrics
	SearchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelhouse_search_requests_total",
		Help: "Aggregated searches by outcome",
	}, []string{"outcome"}) // outcome=success|invalid

	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reelhouse_search_duration_seconds",
		Help:    "Wall time of an aggregated search including all providers",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	ProviderRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelhouse_provider_requests_total",
		Help: "Provider calls by outcome",
	}, []string{"provider", "outcome"}) // outcome=success|error|timeout|rejected|panic

	ProviderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reelhouse_provider_duration_seconds",
		Help:    "Provider call latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	ProviderCircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reelhouse_provider_circuit_state",
		Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
	}, []string{"provider"})

	// Cache metrics
	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelhouse_cache_requests_total",
		Help: "Response cache lookups by result",
	}, []string{"result"}) // result=hit|miss|error

	// Cast metrics
	CastSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reelhouse_cast_sessions_active",
		Help: "Cast sessions currently held by the registry",
	})

	CastTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelhouse_cast_transitions_total",
		Help: "Cast session state transitions",
	}, []string{"state"}) // state=connecting|connected|disconnected

	DevicesDiscovered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reelhouse_cast_devices_discovered",
		Help: "Devices returned by the last discovery",
	})

	// API metrics
	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelhouse_api_rate_limited_total",
		Help: "Requests rejected by the per-client rate limit",
	}, []string{"route"})
)

// RecordProvider records one provider call.
func RecordProvider(provider, outcome string, seconds float64) {
	ProviderRequestsTotal.WithLabelValues(provider, outcome).Inc()
	ProviderDuration.WithLabelValues(provider).Observe(seconds)
}

// RecordCache records a cache lookup result.
func RecordCache(result string) {
	CacheRequestsTotal.WithLabelValues(result).Inc()
}

// RecordCastTransition records a session entering state.
func RecordCastTransition(state string) {
	CastTransitionsTotal.WithLabelValues(state).Inc()
}
