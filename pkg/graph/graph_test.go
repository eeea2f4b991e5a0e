package graph

import (
	"math"
	"testing"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
)

func acct(b byte) account.Account {
	return account.FromBytes([]byte{b})
}

// TestAddEdge_RegistersNodesInFirstSeenOrder tests node registration order
func TestAddEdge_RegistersNodesInFirstSeenOrder(t *testing.T) {
	g := NewAttestationGraph(DefaultGraphOptions())
	g.AddEdge(acct(3), acct(1), 10)
	g.AddEdge(acct(2), acct(3), 10)

	nodes := g.Nodes()
	want := []account.Account{acct(3), acct(1), acct(2)}
	if len(nodes) != len(want) {
		t.Fatalf("Expected %d nodes, got %d", len(want), len(nodes))
	}
	for i := range want {
		if nodes[i] != want[i] {
			t.Errorf("Node %d: expected %s, got %s", i, want[i], nodes[i])
		}
	}
}

// TestAddEdge_DuplicatesAllowed tests parallel edge storage
func TestAddEdge_DuplicatesAllowed(t *testing.T) {
	g := NewAttestationGraph(DefaultGraphOptions())
	g.AddEdge(acct(1), acct(2), 10)
	g.AddEdge(acct(1), acct(2), 20)

	out := g.Outgoing(acct(1))
	if len(out) != 2 {
		t.Fatalf("Expected 2 parallel edges, got %d", len(out))
	}
	if g.EdgeCount() != 2 {
		t.Errorf("Expected edge count 2, got %d", g.EdgeCount())
	}
}

// TestAddEdge_LastWriteWins tests overwrite semantics when duplicates are disallowed
func TestAddEdge_LastWriteWins(t *testing.T) {
	opts := DefaultGraphOptions()
	opts.AllowDuplicates = false
	g := NewAttestationGraph(opts)

	g.AddEdge(acct(1), acct(2), 10)
	g.AddEdge(acct(1), acct(3), 5)
	g.AddEdge(acct(1), acct(2), 0)

	out := g.Outgoing(acct(1))
	if len(out) != 2 {
		t.Fatalf("Expected 2 edges after overwrite, got %d", len(out))
	}
	if out[0].Target != acct(2) || out[0].Weight != 0 {
		t.Errorf("Expected overwritten edge to keep its slot with weight 0, got %+v", out[0])
	}
	if g.EdgeCount() != 2 {
		t.Errorf("Expected edge count 2, got %d", g.EdgeCount())
	}
}

// TestAddEdge_ClampsWeight tests defensive weight clamping
func TestAddEdge_ClampsWeight(t *testing.T) {
	g := NewAttestationGraph(DefaultGraphOptions())
	g.AddEdge(acct(1), acct(2), 500)
	g.AddEdge(acct(1), acct(3), -4)
	g.AddEdge(acct(1), acct(4), math.NaN())

	out := g.Outgoing(acct(1))
	want := []float64{100, 0, 0}
	for i, w := range want {
		if out[i].Weight != w {
			t.Errorf("Edge %d: expected weight %v, got %v", i, w, out[i].Weight)
		}
	}
}

// TestAddEdge_SelfLoopStored tests that self-loops are kept in the graph
func TestAddEdge_SelfLoopStored(t *testing.T) {
	g := NewAttestationGraph(DefaultGraphOptions())
	g.AddEdge(acct(7), acct(7), 100)

	if g.NodeCount() != 1 {
		t.Errorf("Expected 1 node, got %d", g.NodeCount())
	}
	if len(g.Outgoing(acct(7))) != 1 {
		t.Error("Expected self-loop to be stored")
	}
}

// TestSort tests canonical ordering of nodes and edges
func TestSort(t *testing.T) {
	g := BuildAttestationGraph([]Edge{
		{From: acct(9), To: acct(5), Weight: 3},
		{From: acct(9), To: acct(2), Weight: 7},
		{From: acct(9), To: acct(2), Weight: 1},
		{From: acct(4), To: acct(9), Weight: 1},
	}, DefaultGraphOptions())

	g.Sort()

	nodes := g.Nodes()
	for i := 1; i < len(nodes); i++ {
		if !nodes[i-1].Less(nodes[i]) {
			t.Fatalf("Nodes not sorted: %v", nodes)
		}
	}

	out := g.Outgoing(acct(9))
	if out[0].Target != acct(2) || out[0].Weight != 1 {
		t.Errorf("Expected (2, 1) first, got %+v", out[0])
	}
	if out[1].Target != acct(2) || out[1].Weight != 7 {
		t.Errorf("Expected (2, 7) second, got %+v", out[1])
	}
	if out[2].Target != acct(5) {
		t.Errorf("Expected target 5 last, got %+v", out[2])
	}
}

// TestOutgoingReturnsCopy tests that callers cannot mutate the adjacency
func TestOutgoingReturnsCopy(t *testing.T) {
	g := NewAttestationGraph(DefaultGraphOptions())
	g.AddEdge(acct(1), acct(2), 10)

	out := g.Outgoing(acct(1))
	out[0].Weight = 99

	if g.Outgoing(acct(1))[0].Weight != 10 {
		t.Error("Outgoing should return a copy")
	}
}

// TestEmptyGraph tests accessor behaviour on an empty graph
func TestEmptyGraph(t *testing.T) {
	g := BuildAttestationGraph(nil, DefaultGraphOptions())
	if !g.IsEmpty() || g.NodeCount() != 0 || g.EdgeCount() != 0 {
		t.Error("Expected empty graph")
	}
	if g.HasNode(acct(1)) {
		t.Error("Empty graph should not contain nodes")
	}
	if len(g.Outgoing(acct(1))) != 0 {
		t.Error("Unknown node should have no outgoing edges")
	}
}
