package algorithms

import (
	"github.com/dd0wney/cluso-trustrank/pkg/account"
	"github.com/dd0wney/cluso-trustrank/pkg/graph"
)

// canonicalView is an index-addressed, sorted snapshot of a graph.
// Node i is view.nodes[i]; edges[i] holds node i's outgoing edges sorted by
// target then weight.
type canonicalView struct {
	nodes []account.Account
	index map[account.Account]int
	edges [][]viewEdge
}

type viewEdge struct {
	target int
	weight float64
}

func newCanonicalView(g *graph.AttestationGraph) *canonicalView {
	nodes := account.Sorted(g.Nodes())
	index := make(map[account.Account]int, len(nodes))
	for i, node := range nodes {
		index[node] = i
	}

	edges := make([][]viewEdge, len(nodes))
	for i, node := range nodes {
		out := g.Outgoing(node)
		graph.SortEdges(out)
		edges[i] = make([]viewEdge, len(out))
		for j, e := range out {
			edges[i][j] = viewEdge{target: index[e.Target], weight: e.Weight}
		}
	}

	return &canonicalView{nodes: nodes, index: index, edges: edges}
}

// trustDistances runs a multi-source BFS from every seed present in the
// graph, following edges forward. Unreached nodes get distance -1.
func trustDistances(view *canonicalView, trust TrustConfig) []int {
	distance := make([]int, len(view.nodes))
	for i := range distance {
		distance[i] = -1
	}

	queue := make([]int, 0, len(view.nodes))
	for i, node := range view.nodes {
		if trust.IsSeed(node) {
			distance[i] = 0
			queue = append(queue, i)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, e := range view.edges[current] {
			if distance[e.target] >= 0 {
				continue
			}
			distance[e.target] = distance[current] + 1
			queue = append(queue, e.target)
		}
	}

	return distance
}

// TrustDistances returns the hop count from the nearest trusted seed for
// every reachable node. Nodes absent from the map are isolated.
func TrustDistances(g *graph.AttestationGraph, trust TrustConfig) map[account.Account]int {
	out := make(map[account.Account]int)
	if g == nil || g.IsEmpty() || !trust.Enabled() {
		return out
	}

	view := newCanonicalView(g)
	for i, d := range trustDistances(view, trust) {
		if d >= 0 {
			out[view.nodes[i]] = d
		}
	}
	return out
}
