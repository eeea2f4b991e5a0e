// Package graph holds the in-memory attestation graph: a directed, weighted
// multigraph of accounts built once per scoring pass.
package graph

import (
	"math"
	"slices"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
)

// Default edge weight bounds.
const (
	DefaultMinWeight = 0.0
	DefaultMaxWeight = 100.0
)

// Edge is a single attestation: From vouches for To with Weight.
type Edge struct {
	From   account.Account
	To     account.Account
	Weight float64
}

// WeightedEdge is an outgoing adjacency entry.
type WeightedEdge struct {
	Target account.Account
	Weight float64
}

// GraphOptions configures edge storage.
type GraphOptions struct {
	AllowDuplicates bool    // append parallel edges; false = last write wins per target
	MinWeight       float64 // lower clamp bound
	MaxWeight       float64 // upper clamp bound
}

// DefaultGraphOptions returns the default options: duplicates allowed,
// weights clamped to [0, 100].
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		AllowDuplicates: true,
		MinWeight:       DefaultMinWeight,
		MaxWeight:       DefaultMaxWeight,
	}
}

// AttestationGraph is a directed weighted graph keyed by account.
// It is not safe for concurrent mutation; build it, then read it.
type AttestationGraph struct {
	opts      GraphOptions
	nodes     []account.Account
	seen      map[account.Account]struct{}
	adjacency map[account.Account][]WeightedEdge
	edgeCount int
}

// NewAttestationGraph creates an empty graph.
func NewAttestationGraph(opts GraphOptions) *AttestationGraph {
	if opts.MaxWeight < opts.MinWeight {
		opts.MinWeight, opts.MaxWeight = opts.MaxWeight, opts.MinWeight
	}
	return &AttestationGraph{
		opts:      opts,
		seen:      make(map[account.Account]struct{}),
		adjacency: make(map[account.Account][]WeightedEdge),
	}
}

// BuildAttestationGraph creates a graph and adds every edge in order.
func BuildAttestationGraph(edges []Edge, opts GraphOptions) *AttestationGraph {
	g := NewAttestationGraph(opts)
	for _, e := range edges {
		g.AddEdge(e.From, e.To, e.Weight)
	}
	return g
}

// Options returns the options the graph was built with.
func (g *AttestationGraph) Options() GraphOptions {
	return g.opts
}

// ClampWeight bounds w to the graph's weight range. NaN maps to the lower bound.
func (g *AttestationGraph) ClampWeight(w float64) float64 {
	if math.IsNaN(w) || w < g.opts.MinWeight {
		return g.opts.MinWeight
	}
	if w > g.opts.MaxWeight {
		return g.opts.MaxWeight
	}
	return w
}

// AddNode registers a node without edges. Re-adding is a no-op.
func (g *AttestationGraph) AddNode(a account.Account) {
	if _, ok := g.seen[a]; ok {
		return
	}
	g.seen[a] = struct{}{}
	g.nodes = append(g.nodes, a)
}

// AddEdge registers both endpoints and stores the edge. With duplicates
// disallowed an existing edge to the same target is overwritten in place.
func (g *AttestationGraph) AddEdge(from, to account.Account, weight float64) {
	g.AddNode(from)
	g.AddNode(to)

	weight = g.ClampWeight(weight)
	edges := g.adjacency[from]

	if !g.opts.AllowDuplicates {
		for i := range edges {
			if edges[i].Target == to {
				edges[i].Weight = weight
				return
			}
		}
	}

	g.adjacency[from] = append(edges, WeightedEdge{Target: to, Weight: weight})
	g.edgeCount++
}

// Sort orders nodes by identity and each edge list by target, then weight.
func (g *AttestationGraph) Sort() {
	account.Sort(g.nodes)
	for from, edges := range g.adjacency {
		SortEdges(edges)
		g.adjacency[from] = edges
	}
}

// SortEdges orders an edge list by target identity, then weight.
func SortEdges(edges []WeightedEdge) {
	slices.SortStableFunc(edges, func(a, b WeightedEdge) int {
		if c := a.Target.Compare(b.Target); c != 0 {
			return c
		}
		switch {
		case a.Weight < b.Weight:
			return -1
		case a.Weight > b.Weight:
			return 1
		}
		return 0
	})
}

// Nodes returns the nodes in their current order.
func (g *AttestationGraph) Nodes() []account.Account {
	return slices.Clone(g.nodes)
}

// Outgoing returns a copy of node's outgoing edges.
func (g *AttestationGraph) Outgoing(node account.Account) []WeightedEdge {
	return slices.Clone(g.adjacency[node])
}

// HasNode reports whether node has been seen as an edge endpoint.
func (g *AttestationGraph) HasNode(node account.Account) bool {
	_, ok := g.seen[node]
	return ok
}

// NodeCount returns the number of distinct nodes.
func (g *AttestationGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of stored edges, self-loops included.
func (g *AttestationGraph) EdgeCount() int {
	return g.edgeCount
}

// IsEmpty reports whether the graph has no nodes.
func (g *AttestationGraph) IsEmpty() bool {
	return len(g.nodes) == 0
}
