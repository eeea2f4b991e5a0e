package algorithms

import (
	"slices"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
	"github.com/dd0wney/cluso-trustrank/pkg/graph"
)

// Ring is a strongly connected group of accounts: every member is reachable
// from every other member by following attestations.
type Ring struct {
	ID      int
	Members []account.Account // Identity order
}

// Size returns the number of members.
func (r Ring) Size() int {
	return len(r.Members)
}

// RingResult holds the strongly connected components of an attestation graph.
type RingResult struct {
	Rings          []Ring                  // Components with more than one member, largest first
	Component      map[account.Account]int // Account -> component index, singletons included
	Components     int
	SingletonCount int
}

// Largest returns the biggest ring, or false when the graph has none.
func (r *RingResult) Largest() (Ring, bool) {
	if len(r.Rings) == 0 {
		return Ring{}, false
	}
	return r.Rings[0], true
}

// InRing reports whether a belongs to a ring of two or more accounts.
func (r *RingResult) InRing(a account.Account) bool {
	for _, ring := range r.Rings {
		if _, ok := slices.BinarySearchFunc(ring.Members, a, account.Account.Compare); ok {
			return true
		}
	}
	return false
}

// tarjanState holds per-node state during Tarjan's DFS.
type tarjanState struct {
	index   int
	lowlink int
	onStack bool
	visited bool
}

// AttestationRings finds the strongly connected components of g with
// Tarjan's algorithm in O(V+E). Only outgoing edges are followed and
// self-loops never form a ring. Traversal runs over the canonical view, so
// component numbering is the same for any insertion order.
func AttestationRings(g *graph.AttestationGraph) *RingResult {
	result := &RingResult{Component: make(map[account.Account]int)}
	if g == nil || g.IsEmpty() {
		return result
	}

	view := newCanonicalView(g)
	n := len(view.nodes)
	state := make([]tarjanState, n)
	stack := make([]int, 0, n)
	indexCounter := 0
	var components [][]int

	var strongconnect func(u int)
	strongconnect = func(u int) {
		state[u] = tarjanState{index: indexCounter, lowlink: indexCounter, onStack: true, visited: true}
		indexCounter++
		stack = append(stack, u)

		for _, e := range view.edges[u] {
			v := e.target
			if !state[v].visited {
				strongconnect(v)
				state[u].lowlink = min(state[u].lowlink, state[v].lowlink)
			} else if state[v].onStack {
				state[u].lowlink = min(state[u].lowlink, state[v].index)
			}
		}

		// u is the root of a component: pop it off the stack
		if state[u].lowlink == state[u].index {
			var members []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				state[w].onStack = false
				members = append(members, w)
				if w == u {
					break
				}
			}
			components = append(components, members)
		}
	}

	for u := 0; u < n; u++ {
		if !state[u].visited {
			strongconnect(u)
		}
	}

	result.Components = len(components)
	for id, members := range components {
		ring := Ring{Members: make([]account.Account, len(members))}
		for i, m := range members {
			ring.Members[i] = view.nodes[m]
			result.Component[view.nodes[m]] = id
		}
		if len(members) == 1 {
			result.SingletonCount++
			continue
		}
		account.Sort(ring.Members)
		result.Rings = append(result.Rings, ring)
	}

	slices.SortFunc(result.Rings, func(a, b Ring) int {
		if a.Size() != b.Size() {
			return b.Size() - a.Size()
		}
		return a.Members[0].Compare(b.Members[0])
	})
	for i := range result.Rings {
		result.Rings[i].ID = i
	}
	return result
}
