package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status label values shared by the counters below.
const (
	StatusSuccess       = "success"
	StatusError         = "error"
	StatusConverged     = "converged"
	StatusMaxIterations = "max_iterations"
	CacheHit            = "hit"
	CacheMiss           = "miss"
)

// RecordPageRank records one PageRank run
func (r *Registry) RecordPageRank(iterations int, converged bool, duration time.Duration) {
	status := StatusMaxIterations
	if converged {
		status = StatusConverged
	}
	r.PageRankRunsTotal.WithLabelValues(status).Inc()
	r.PageRankIterations.Observe(float64(iterations))
	r.PageRankDuration.Observe(duration.Seconds())
}

// RecordPageRankError records a PageRank run rejected before iterating
func (r *Registry) RecordPageRankError() {
	r.PageRankRunsTotal.WithLabelValues(StatusError).Inc()
}

// UpdateGraphMetrics updates the gauges describing the last scored graph
func (r *Registry) UpdateGraphMetrics(nodes, edges, seeds, isolated int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.GraphNodesTotal.Set(float64(nodes))
	r.GraphEdgesTotal.Set(float64(edges))
	r.GraphSeedNodesTotal.Set(float64(seeds))
	r.GraphIsolatedNodes.Set(float64(isolated))
}

// RecordAllocation records one reward allocation
func (r *Registry) RecordAllocation(status string, recipients int, duration time.Duration) {
	r.AllocationsTotal.WithLabelValues(status).Inc()
	r.AllocationDuration.Observe(duration.Seconds())
	if status == StatusSuccess {
		r.AllocationRecipients.Set(float64(recipients))
	}
}

// RecordAttestations adds n attestations with the given conversion outcome
func (r *Registry) RecordAttestations(outcome string, n int) {
	if n <= 0 {
		return
	}
	r.SourceAttestationsTotal.WithLabelValues(outcome).Add(float64(n))
}

// RecordFetch records how long a fetcher took
func (r *Registry) RecordFetch(fetcher string, duration time.Duration) {
	r.SourceFetchDuration.WithLabelValues(fetcher).Observe(duration.Seconds())
}

// RecordScoringPass records a scoring pass executed by a reward source
func (r *Registry) RecordScoringPass(source, status string) {
	r.ScoringPassesTotal.WithLabelValues(source, status).Inc()
}

// RecordCacheLookup records a reward source cache hit or miss
func (r *Registry) RecordCacheLookup(source string, hit bool) {
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	r.ScoringCacheTotal.WithLabelValues(source, result).Inc()
}

// RecordPublish records a publication attempt
func (r *Registry) RecordPublish(publisher, status string, payloadBytes int) {
	r.PublishTotal.WithLabelValues(publisher, status).Inc()
	if status == StatusSuccess {
		r.PublishPayloadBytes.Observe(float64(payloadBytes))
	}
}

// UpdateSystemMetrics samples runtime statistics
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(mem.Alloc))
	r.MemorySysBytes.Set(float64(mem.Sys))
}

// WriteTextfile writes every registered metric to path in the Prometheus
// text format, for pickup by a node exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
