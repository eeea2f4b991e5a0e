package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPublishMetrics() {
	r.PublishTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustrank_publish_total",
			Help: "Result publications by publisher and status",
		},
		[]string{"publisher", "status"},
	)

	r.PublishPayloadBytes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trustrank_publish_payload_bytes",
			Help:    "Size of published result payloads",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
	)
}
