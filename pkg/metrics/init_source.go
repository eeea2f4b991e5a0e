package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSourceMetrics() {
	r.SourceAttestationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustrank_source_attestations_total",
			Help: "Attestations read from the source, by conversion outcome",
		},
		[]string{"outcome"},
	)

	r.SourceFetchDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trustrank_source_fetch_duration_seconds",
			Help:    "Attestation fetch duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"fetcher"},
	)

	r.ScoringPassesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustrank_scoring_passes_total",
			Help: "Scoring passes executed by reward sources",
		},
		[]string{"source", "status"},
	)

	r.ScoringCacheTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustrank_scoring_cache_total",
			Help: "Reward source cache lookups by result",
		},
		[]string{"source", "result"},
	)
}
