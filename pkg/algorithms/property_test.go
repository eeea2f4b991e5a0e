package algorithms

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
	"github.com/dd0wney/cluso-trustrank/pkg/graph"
)

// zipEdges pairs generated endpoints and weights into a graph
func zipEdges(froms, tos []uint8, weights []float64) *graph.AttestationGraph {
	n := min(len(froms), len(tos), len(weights))
	edges := make([]graph.Edge, n)
	for i := 0; i < n; i++ {
		edges[i] = edge(froms[i], tos[i], weights[i])
	}
	return graph.BuildAttestationGraph(edges, graph.DefaultGraphOptions())
}

// TestPageRankInvariants uses property-based testing to verify solver invariants
// These properties should ALWAYS hold true for any attestation graph
func TestPageRankInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	endpoints := gen.SliceOf(gen.UInt8Range(0, 12))
	weights := gen.SliceOf(gen.Float64Range(0, 150))

	// Property 1: scores sum to one for any non-empty graph
	properties.Property("scores are normalized", prop.ForAll(
		func(froms, tos []uint8, ws []float64, seed uint8) bool {
			g := zipEdges(froms, tos, ws)
			cfg := DefaultPageRankConfig()
			cfg.Trust = trustConfig(acct(seed))

			scores, err := CalculatePageRank(g, cfg)
			if err != nil {
				return false
			}
			if g.IsEmpty() {
				return len(scores) == 0
			}
			return math.Abs(sumScores(scores)-1.0) < 1e-9
		},
		endpoints, endpoints, weights, gen.UInt8Range(0, 12),
	))

	// Property 2: disabled trust and an empty seed set are bit-identical
	properties.Property("empty seed set equals disabled trust", prop.ForAll(
		func(froms, tos []uint8, ws []float64, share, decay float64) bool {
			g := zipEdges(froms, tos, ws)

			disabled := DefaultPageRankConfig()
			disabled.Trust = TrustConfig{}

			empty := DefaultPageRankConfig()
			empty.Trust = TrustConfig{TrustedSeeds: account.NewSet(), TrustMultiplier: 4, TrustShare: share, TrustDecay: decay}

			a, errA := CalculatePageRank(g, disabled)
			b, errB := CalculatePageRank(g, empty)
			if errA != nil || errB != nil || len(a) != len(b) {
				return false
			}
			for node, score := range a {
				if math.Float64bits(score) != math.Float64bits(b[node]) {
					return false
				}
			}
			return true
		},
		endpoints, endpoints, weights, gen.Float64Range(0, 1), gen.Float64Range(0, 1),
	))

	// Property 3: every score is finite and non-negative
	properties.Property("scores are finite and non-negative", prop.ForAll(
		func(froms, tos []uint8, ws []float64) bool {
			scores, err := CalculatePageRank(zipEdges(froms, tos, ws), DefaultPageRankConfig())
			if err != nil {
				return false
			}
			for _, s := range scores {
				if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
					return false
				}
			}
			return true
		},
		endpoints, endpoints, weights,
	))

	properties.TestingRun(t)
}
