package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPageRankMetrics() {
	r.PageRankRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustrank_pagerank_runs_total",
			Help: "Total number of PageRank runs by outcome",
		},
		[]string{"status"},
	)

	r.PageRankIterations = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trustrank_pagerank_iterations",
			Help:    "Iterations performed per PageRank run",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 1000},
		},
	)

	r.PageRankDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trustrank_pagerank_duration_seconds",
			Help:    "PageRank computation duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
	)

	r.GraphNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trustrank_graph_nodes",
			Help: "Accounts in the most recently scored attestation graph",
		},
	)

	r.GraphEdgesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trustrank_graph_edges",
			Help: "Edges in the most recently scored attestation graph",
		},
	)

	r.GraphSeedNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trustrank_graph_seed_nodes",
			Help: "Trusted seeds present in the most recently scored graph",
		},
	)

	r.GraphIsolatedNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trustrank_graph_isolated_nodes",
			Help: "Accounts unreachable from any trusted seed",
		},
	)
}
