package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// PageRank Metrics
	PageRankRunsTotal   *prometheus.CounterVec
	PageRankIterations  prometheus.Histogram
	PageRankDuration    prometheus.Histogram
	GraphNodesTotal     prometheus.Gauge
	GraphEdgesTotal     prometheus.Gauge
	GraphSeedNodesTotal prometheus.Gauge
	GraphIsolatedNodes  prometheus.Gauge

	// Allocation Metrics
	AllocationsTotal     *prometheus.CounterVec
	AllocationDuration   prometheus.Histogram
	AllocationRecipients prometheus.Gauge

	// Source Metrics
	SourceAttestationsTotal *prometheus.CounterVec
	SourceFetchDuration     *prometheus.HistogramVec
	ScoringPassesTotal      *prometheus.CounterVec
	ScoringCacheTotal       *prometheus.CounterVec

	// Publish Metrics
	PublishTotal        *prometheus.CounterVec
	PublishPayloadBytes prometheus.Histogram

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initPageRankMetrics()
	r.initAllocationMetrics()
	r.initSourceMetrics()
	r.initPublishMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
