package algorithms

import (
	"container/heap"
	"math"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
	"github.com/dd0wney/cluso-trustrank/pkg/graph"
)

// DefaultTopNodes is the number of entries kept in PageRankResult.TopNodes.
const DefaultTopNodes = 10

// PageRankResult contains PageRank scores for all nodes
type PageRankResult struct {
	Scores        map[account.Account]float64 // Account -> normalized score
	Iterations    int                         // Number of iterations performed
	Converged     bool                        // Whether algorithm converged
	TopNodes      []RankedNode                // Top N nodes by score
	Isolated      []account.Account           // Nodes unreachable from any seed (trust enabled only)
	TrustDistance map[account.Account]int     // Hop count from nearest seed (trust enabled only)
}

// RankedNode represents a node with its rank
type RankedNode struct {
	Account account.Account
	Score   float64
}

// incomingEdge is a precomputed propagation term for one edge a -> r.
type incomingEdge struct {
	from  int
	ratio float64 // effective_weight(a, w) / max_possible(a)
}

// CalculatePageRank returns the normalized score map for g.
func CalculatePageRank(g *graph.AttestationGraph, cfg PageRankConfig) (map[account.Account]float64, error) {
	result, err := PageRank(g, cfg)
	if err != nil {
		return nil, err
	}
	return result.Scores, nil
}

// PageRank computes trust-aware PageRank scores for all nodes in the graph.
//
// The teleport vector is the initial distribution, which is biased towards
// trusted seeds when trust is enabled. Nodes unreachable from every seed
// receive only their teleport term. Each attester's outgoing weight is
// normalised against the weight it could have given had every edge been at
// MaxWeight, so one strong attestation outweighs many weak ones.
//
// A pass that ends with a non-finite or non-positive score sum returns an
// error instead of a partial result.
//
// The graph is read through a canonical view (nodes and edges sorted by
// account), so results do not depend on insertion order or map iteration.
func PageRank(g *graph.AttestationGraph, cfg PageRankConfig) (*PageRankResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	trust := cfg.Trust.Normalized()

	if g == nil || g.IsEmpty() {
		return &PageRankResult{
			Scores:        make(map[account.Account]float64),
			Converged:     true,
			TrustDistance: make(map[account.Account]int),
		}, nil
	}

	view := newCanonicalView(g)
	n := len(view.nodes)
	trustEnabled := trust.Enabled()

	initial := initialScores(view, trust)

	var distance []int
	if trustEnabled {
		distance = trustDistances(view, trust)
	}

	decay := make([]float64, n)
	for i := range decay {
		switch {
		case !trustEnabled:
			decay[i] = 1
		case distance[i] < 0:
			decay[i] = 0
		default:
			decay[i] = math.Pow(trust.TrustDecay, float64(distance[i]))
		}
	}

	incoming := buildIncoming(view, cfg)

	damping := cfg.DampingFactor
	scores := slices.Clone(initial)
	newScores := make([]float64, n)
	converged := false
	iterations := 0

	for iterations < cfg.MaxIterations {
		iterations++

		maxDelta := 0.0
		for r := 0; r < n; r++ {
			// Teleportation term
			newScore := (1.0 - damping) * initial[r]

			if !trustEnabled || distance[r] >= 0 {
				for _, in := range incoming[r] {
					newScore += damping * scores[in.from] * in.ratio * decay[in.from]
				}
			}

			newScores[r] = newScore
			if delta := math.Abs(newScore - scores[r]); delta > maxDelta {
				maxDelta = delta
			}
		}

		scores, newScores = newScores, scores

		if maxDelta < cfg.Tolerance {
			converged = true
			break
		}
	}

	// Normalize scores to sum to 1
	sum := 0.0
	for _, score := range scores {
		sum += score
	}
	if math.IsNaN(sum) || math.IsInf(sum, 0) || sum <= 0 {
		return nil, errors.AssertionFailedf("pagerank produced a degenerate score sum %v over %d nodes", sum, n)
	}
	for i := range scores {
		scores[i] /= sum
	}

	result := &PageRankResult{
		Scores:        make(map[account.Account]float64, n),
		Iterations:    iterations,
		Converged:     converged,
		TrustDistance: make(map[account.Account]int),
	}
	for i, node := range view.nodes {
		result.Scores[node] = scores[i]
		if trustEnabled {
			if distance[i] >= 0 {
				result.TrustDistance[node] = distance[i]
			} else {
				result.Isolated = append(result.Isolated, node)
			}
		}
	}
	result.TopNodes = findTopNodes(result.Scores, DefaultTopNodes)

	return result, nil
}

// initialScores builds the starting (and teleport) distribution. With trust
// enabled, seeds present in the graph share TrustShare and every other node
// shares the remainder. If either group is empty the other takes all mass.
func initialScores(view *canonicalView, trust TrustConfig) []float64 {
	n := len(view.nodes)
	initial := make([]float64, n)

	seeds := 0
	if trust.Enabled() {
		for _, node := range view.nodes {
			if trust.IsSeed(node) {
				seeds++
			}
		}
	}

	if seeds == 0 || seeds == n {
		uniform := 1.0 / float64(n)
		for i := range initial {
			initial[i] = uniform
		}
		return initial
	}

	seedScore := trust.TrustShare / float64(seeds)
	otherScore := (1.0 - trust.TrustShare) / float64(n-seeds)
	for i, node := range view.nodes {
		if trust.IsSeed(node) {
			initial[i] = seedScore
		} else {
			initial[i] = otherScore
		}
	}
	return initial
}

// buildIncoming precomputes, for every recipient, the normalised weight of
// each edge pointing at it. Weights are clamped to the config bounds first.
// Self-loops and non-positive edges never propagate.
//
// A seed's multiplier scales both the edge weight and max_possible, so the
// ratio reduces to w / (|edges(a)| * MaxWeight) for every attester. The
// reduced form stays finite for any multiplier.
func buildIncoming(view *canonicalView, cfg PageRankConfig) [][]incomingEdge {
	n := len(view.nodes)
	incoming := make([][]incomingEdge, n)
	weights := make([]float64, 0)

	for a := 0; a < n; a++ {
		weights = weights[:0]
		valid := 0
		for _, e := range view.edges[a] {
			w := cfg.ClampWeight(e.weight)
			weights = append(weights, w)
			if e.target != a && w > 0 {
				valid++
			}
		}
		if valid == 0 {
			continue
		}

		for i, e := range view.edges[a] {
			w := weights[i]
			if e.target == a || w <= 0 {
				continue
			}
			incoming[e.target] = append(incoming[e.target], incomingEdge{
				from:  a,
				ratio: w / cfg.MaxWeight / float64(valid),
			})
		}
	}

	// Attesters are visited in canonical order, so each incoming list is
	// already sorted by attester and sums are reproducible.
	return incoming
}

// rankedNodeHeap implements a min-heap for RankedNode by score.
// The worst element sits at the root so the heap keeps the best N.
// Ties are broken by account identity, lower accounts ranking higher.
type rankedNodeHeap []RankedNode

func rankedBefore(a, b RankedNode) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Account.Less(b.Account)
}

func (h rankedNodeHeap) Len() int           { return len(h) }
func (h rankedNodeHeap) Less(i, j int) bool { return rankedBefore(h[j], h[i]) }
func (h rankedNodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *rankedNodeHeap) Push(x any) {
	*h = append(*h, x.(RankedNode))
}

func (h *rankedNodeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// findTopNodes finds the top N nodes by score using a min-heap.
// Time complexity: O(n log k) where n = len(scores)
func findTopNodes(scores map[account.Account]float64, n int) []RankedNode {
	if n <= 0 {
		return nil
	}

	h := make(rankedNodeHeap, 0, n)
	heap.Init(&h)

	for acct, score := range scores {
		rn := RankedNode{Account: acct, Score: score}

		if h.Len() < n {
			heap.Push(&h, rn)
		} else if rankedBefore(rn, h[0]) {
			heap.Pop(&h)
			heap.Push(&h, rn)
		}
	}

	// Extract elements from heap (will be in ascending order)
	result := make([]RankedNode, h.Len())
	for i := h.Len() - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(RankedNode)
	}

	return result
}

// GetTopNodesByPageRank returns top N nodes by PageRank score
func (pr *PageRankResult) GetTopNodesByPageRank(n int) []RankedNode {
	if n > len(pr.TopNodes) {
		return pr.TopNodes
	}
	return pr.TopNodes[:n]
}

// GetNodeRank returns the PageRank score for a specific account
func (pr *PageRankResult) GetNodeRank(a account.Account) float64 {
	return pr.Scores[a]
}

// IsIsolated reports whether a was unreachable from every trusted seed.
func (pr *PageRankResult) IsIsolated(a account.Account) bool {
	_, ok := slices.BinarySearchFunc(pr.Isolated, a, account.Account.Compare)
	return ok
}
