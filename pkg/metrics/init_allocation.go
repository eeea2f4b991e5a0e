package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAllocationMetrics() {
	r.AllocationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustrank_allocations_total",
			Help: "Total number of reward allocations by outcome",
		},
		[]string{"status"},
	)

	r.AllocationDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trustrank_allocation_duration_seconds",
			Help:    "Reward allocation duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		},
	)

	r.AllocationRecipients = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trustrank_allocation_recipients",
			Help: "Accounts that received a reward in the most recent allocation",
		},
	)
}
