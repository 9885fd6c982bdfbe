// Package metrics holds placerank's Prometheus collectors.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "placerank"

var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"strategy"},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of searches by outcome",
		},
		[]string{"strategy", "outcome"}, // "ok" / "invalid_query" / "error"
	)

	ExpansionFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expansion_fallbacks_total",
			Help:      "Searches that ran on the unexpanded query because expansion failed",
		},
		[]string{"reason"},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_total",
			Help:      "Result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_requests_total",
			Help:      "Embedding and mask-filling calls by outcome",
		},
		[]string{"service", "outcome"},
	)

	ListingsIndexedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_indexed_total",
			Help:      "Total listings written to the index",
		},
	)
)

var registerOnce sync.Once

// Register registers every collector with the default registry. It is safe
// to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			SearchDuration,
			SearchesTotal,
			ExpansionFallbacksTotal,
			CacheTotal,
			AIRequestsTotal,
			ListingsIndexedTotal,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}

// ObserveAI is an outcome observer for the AI guard.
func ObserveAI(service, outcome string) {
	AIRequestsTotal.WithLabelValues(service, outcome).Inc()
}
