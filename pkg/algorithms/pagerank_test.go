package algorithms

import (
	"math"
	"testing"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
	"github.com/dd0wney/cluso-trustrank/pkg/graph"
)

func acct(b byte) account.Account {
	return account.FromBytes([]byte{b})
}

// buildGraph creates a graph with default options from (from, to, weight) triples
func buildGraph(t *testing.T, edges ...graph.Edge) *graph.AttestationGraph {
	t.Helper()
	return graph.BuildAttestationGraph(edges, graph.DefaultGraphOptions())
}

func edge(from, to byte, w float64) graph.Edge {
	return graph.Edge{From: acct(from), To: acct(to), Weight: w}
}

func sumScores(scores map[account.Account]float64) float64 {
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return sum
}

func trustConfig(seeds ...account.Account) TrustConfig {
	tc := DefaultTrustConfig()
	tc.TrustedSeeds = account.NewSet(seeds...)
	return tc
}

// TestPageRank_EmptyGraph tests PageRank on empty graph
func TestPageRank_EmptyGraph(t *testing.T) {
	result, err := PageRank(buildGraph(t), DefaultPageRankConfig())
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}

	if len(result.Scores) != 0 {
		t.Errorf("Expected 0 scores for empty graph, got %d", len(result.Scores))
	}

	if !result.Converged {
		t.Error("Expected convergence for empty graph")
	}

	scores, err := CalculatePageRank(nil, DefaultPageRankConfig())
	if err != nil || len(scores) != 0 {
		t.Errorf("Expected empty map for nil graph, got %v (err %v)", scores, err)
	}
}

// TestPageRank_SingleNode tests PageRank on single node with and without a self-loop
func TestPageRank_SingleNode(t *testing.T) {
	plain := graph.NewAttestationGraph(graph.DefaultGraphOptions())
	plain.AddNode(acct(1))

	looped := buildGraph(t, edge(1, 1, 100))

	for name, g := range map[string]*graph.AttestationGraph{"plain": plain, "self-loop": looped} {
		t.Run(name, func(t *testing.T) {
			result, err := PageRank(g, DefaultPageRankConfig())
			if err != nil {
				t.Fatalf("PageRank failed: %v", err)
			}
			if len(result.Scores) != 1 {
				t.Fatalf("Expected 1 score, got %d", len(result.Scores))
			}
			if score := result.GetNodeRank(acct(1)); score != 1.0 {
				t.Errorf("Expected score 1.0 for single node, got %v", score)
			}
		})
	}
}

// TestPageRank_LinearChain tests PageRank on linear chain A->B->C
func TestPageRank_LinearChain(t *testing.T) {
	g := buildGraph(t, edge(1, 2, 100), edge(2, 3, 100))

	result, err := PageRank(g, DefaultPageRankConfig())
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}

	scoreA := result.GetNodeRank(acct(1))
	scoreB := result.GetNodeRank(acct(2))
	scoreC := result.GetNodeRank(acct(3))

	if scoreC <= scoreB {
		t.Errorf("Expected C score (%f) > B score (%f)", scoreC, scoreB)
	}
	if scoreB <= scoreA {
		t.Errorf("Expected B score (%f) > A score (%f)", scoreB, scoreA)
	}
	if sum := scoreA + scoreB + scoreC; math.Abs(sum-1.0) > 1e-12 {
		t.Errorf("Expected scores to sum to 1.0, got %v", sum)
	}
}

// TestPageRank_Star tests PageRank on star topology (hub and spokes)
func TestPageRank_Star(t *testing.T) {
	g := buildGraph(t, edge(2, 1, 50), edge(3, 1, 50), edge(4, 1, 50))

	result, err := PageRank(g, DefaultPageRankConfig())
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}

	hub := result.GetNodeRank(acct(1))
	for _, spoke := range []byte{2, 3, 4} {
		if s := result.GetNodeRank(acct(spoke)); hub <= s {
			t.Errorf("Expected hub score (%f) > spoke %d score (%f)", hub, spoke, s)
		}
	}

	if result.GetNodeRank(acct(2)) != result.GetNodeRank(acct(3)) || result.GetNodeRank(acct(3)) != result.GetNodeRank(acct(4)) {
		t.Error("Expected identical spoke scores")
	}

	if result.TopNodes[0].Account != acct(1) {
		t.Errorf("Expected hub as top node, got %s", result.TopNodes[0].Account)
	}
}

// TestPageRank_Cycle tests PageRank on symmetric cycle A->B->C->A
func TestPageRank_Cycle(t *testing.T) {
	g := buildGraph(t, edge(1, 2, 40), edge(2, 3, 40), edge(3, 1, 40))

	result, err := PageRank(g, DefaultPageRankConfig())
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}

	for _, b := range []byte{1, 2, 3} {
		if s := result.GetNodeRank(acct(b)); math.Abs(s-1.0/3.0) > 1e-9 {
			t.Errorf("Expected score ~1/3 for node %d, got %v", b, s)
		}
	}

	if !result.Converged {
		t.Error("Expected convergence for symmetric cycle")
	}
}

// TestPageRank_SelfLoopDoesNotPropagate tests the anti-self-vouching rule
func TestPageRank_SelfLoopDoesNotPropagate(t *testing.T) {
	without := buildGraph(t, edge(1, 2, 100), edge(3, 2, 100))
	with := buildGraph(t, edge(1, 2, 100), edge(3, 2, 100), edge(3, 3, 100))

	a, err := CalculatePageRank(without, DefaultPageRankConfig())
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}
	b, err := CalculatePageRank(with, DefaultPageRankConfig())
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}

	for node, score := range a {
		if b[node] != score {
			t.Errorf("Self-loop changed score of %s: %v -> %v", node, score, b[node])
		}
	}
}

// TestPageRank_MaxPossibleNormalization tests that one strong edge outweighs many weak ones
func TestPageRank_MaxPossibleNormalization(t *testing.T) {
	edges := []graph.Edge{edge(1, 2, 100)}
	for target := byte(10); target < 20; target++ {
		edges = append(edges, edge(3, target, 10))
	}
	g := buildGraph(t, edges...)

	result, err := PageRank(g, DefaultPageRankConfig())
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}

	strong := result.GetNodeRank(acct(2))
	weak := result.GetNodeRank(acct(10))
	if strong <= weak {
		t.Errorf("Expected strongly-vouched node (%v) > weakly-vouched node (%v)", strong, weak)
	}
}

// TestPageRank_ZeroWeightEdgesIgnored tests that zero-weight edges neither propagate nor dilute
func TestPageRank_ZeroWeightEdgesIgnored(t *testing.T) {
	base := buildGraph(t, edge(1, 2, 100), edge(3, 4, 1))
	diluted := buildGraph(t, edge(1, 2, 100), edge(1, 4, 0), edge(3, 4, 1))

	a, _ := CalculatePageRank(base, DefaultPageRankConfig())
	b, _ := CalculatePageRank(diluted, DefaultPageRankConfig())

	if a[acct(2)] != b[acct(2)] {
		t.Errorf("Zero-weight edge changed recipient share: %v vs %v", a[acct(2)], b[acct(2)])
	}
}

// TestPageRank_Convergence tests convergence detection
func TestPageRank_Convergence(t *testing.T) {
	g := buildGraph(t, edge(1, 2, 100), edge(2, 1, 100))

	cfg := DefaultPageRankConfig()
	cfg.Tolerance = 1e-6
	cfg.MaxIterations = 100

	result, err := PageRank(g, cfg)
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}
	if !result.Converged {
		t.Error("Expected convergence")
	}
	if result.Iterations > cfg.MaxIterations {
		t.Errorf("Iterations (%d) exceeded max (%d)", result.Iterations, cfg.MaxIterations)
	}
}

// TestPageRank_MaxIterationsBound tests that the iteration cap is honoured
func TestPageRank_MaxIterationsBound(t *testing.T) {
	g := buildGraph(t, edge(1, 2, 100), edge(2, 3, 30), edge(3, 1, 70), edge(3, 2, 5))

	cfg := DefaultPageRankConfig()
	cfg.MaxIterations = 2
	cfg.Tolerance = 1e-300

	result, err := PageRank(g, cfg)
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}
	if result.Iterations != 2 || result.Converged {
		t.Errorf("Expected 2 unconverged iterations, got %d (converged=%v)", result.Iterations, result.Converged)
	}
	if sum := sumScores(result.Scores); math.Abs(sum-1.0) > 1e-12 {
		t.Errorf("Expected normalized scores even without convergence, got sum %v", sum)
	}
}

// TestPageRank_TrustDisabledMatchesEmptySeeds tests the backward-compatibility invariant
func TestPageRank_TrustDisabledMatchesEmptySeeds(t *testing.T) {
	g := buildGraph(t,
		edge(1, 2, 80), edge(2, 3, 20), edge(3, 1, 55), edge(4, 1, 100), edge(4, 4, 100), edge(2, 4, 7),
	)

	disabled := DefaultPageRankConfig()
	disabled.Trust = TrustConfig{}

	emptySeeds := DefaultPageRankConfig()
	emptySeeds.Trust = TrustConfig{
		TrustedSeeds:    account.NewSet(),
		TrustMultiplier: 7,
		TrustShare:      0.9,
		TrustDecay:      0.1,
	}

	a, err := PageRank(g, disabled)
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}
	b, err := PageRank(g, emptySeeds)
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}

	if a.Iterations != b.Iterations {
		t.Errorf("Iteration counts differ: %d vs %d", a.Iterations, b.Iterations)
	}
	for node, score := range a.Scores {
		if math.Float64bits(score) != math.Float64bits(b.Scores[node]) {
			t.Errorf("Score for %s differs bitwise: %v vs %v", node, score, b.Scores[node])
		}
	}
	if len(b.Isolated) != 0 {
		t.Errorf("Expected no isolated nodes with trust disabled, got %d", len(b.Isolated))
	}
}

// TestPageRank_Determinism tests repeated runs and insertion order independence
func TestPageRank_Determinism(t *testing.T) {
	edges := []graph.Edge{
		edge(5, 1, 13), edge(1, 2, 80), edge(2, 3, 20), edge(3, 1, 55),
		edge(4, 1, 100), edge(2, 4, 7), edge(5, 2, 99), edge(1, 5, 3),
	}
	cfg := DefaultPageRankConfig()
	cfg.Trust = trustConfig(acct(5))

	g := buildGraph(t, edges...)
	baseline, err := CalculatePageRank(g, cfg)
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}

	for run := 0; run < 5; run++ {
		scores, err := CalculatePageRank(g, cfg)
		if err != nil {
			t.Fatalf("PageRank failed: %v", err)
		}
		for node, score := range baseline {
			if math.Abs(scores[node]-score) > 1e-15 {
				t.Errorf("Run %d: score for %s drifted: %v vs %v", run, node, scores[node], score)
			}
		}
	}

	reversed := make([]graph.Edge, len(edges))
	for i, e := range edges {
		reversed[len(edges)-1-i] = e
	}
	scores, err := CalculatePageRank(buildGraph(t, reversed...), cfg)
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}
	for node, score := range baseline {
		if math.Float64bits(scores[node]) != math.Float64bits(score) {
			t.Errorf("Insertion order changed score for %s: %v vs %v", node, scores[node], score)
		}
	}
}

func spamGraph(t *testing.T) *graph.AttestationGraph {
	t.Helper()
	return buildGraph(t,
		edge(1, 2, 100), edge(2, 3, 100), edge(3, 4, 100),
		edge(0xa0, 0xa0, 100), edge(0xa1, 0xa1, 100), edge(0xa2, 0xa2, 100),
	)
}

func spamFraction(result *PageRankResult, spammers []account.Account) float64 {
	spamTotal := 0.0
	for _, s := range spammers {
		spamTotal += result.GetNodeRank(s)
	}
	return spamTotal / sumScores(result.Scores)
}

// TestPageRank_SpamResistance tests that isolated self-vouching accounts gain
// almost nothing under the default trust configuration
func TestPageRank_SpamResistance(t *testing.T) {
	seed := acct(1)
	spammers := []account.Account{acct(0xa0), acct(0xa1), acct(0xa2)}

	cfg := DefaultPageRankConfig()
	cfg.Trust = trustConfig(seed)

	result, err := PageRank(spamGraph(t), cfg)
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}

	for _, s := range spammers {
		if !result.IsIsolated(s) {
			t.Errorf("Expected spammer %s to be isolated", s)
		}
	}
	if frac := spamFraction(result, spammers); frac >= 0.01 {
		t.Errorf("Spammers hold %.4f of total score, expected < 1%%", frac)
	}

	first := result.GetNodeRank(spammers[0])
	for _, s := range spammers[1:] {
		if math.Abs(result.GetNodeRank(s)-first) > 1e-15 {
			t.Errorf("Expected symmetric spammer scores, got %v vs %v", result.GetNodeRank(s), first)
		}
	}

	for b, want := range map[byte]int{1: 0, 2: 1, 3: 2, 4: 3} {
		if got, ok := result.TrustDistance[acct(b)]; !ok || got != want {
			t.Errorf("Expected trust distance %d for node %d, got %d (reachable=%v)", want, b, got, ok)
		}
	}
}

// TestPageRank_SpamShareFollowsTrustShare tests that isolated nodes keep only
// their teleport mass, so their share of the total shrinks as TrustShare grows
func TestPageRank_SpamShareFollowsTrustShare(t *testing.T) {
	spammers := []account.Account{acct(0xa0), acct(0xa1), acct(0xa2)}

	previous := 1.0
	for _, share := range []float64{0.5, 0.9, 0.99, 1} {
		cfg := DefaultPageRankConfig()
		cfg.Trust = trustConfig(acct(1))
		cfg.Trust.TrustShare = share

		result, err := PageRank(spamGraph(t), cfg)
		if err != nil {
			t.Fatalf("PageRank failed: %v", err)
		}

		frac := spamFraction(result, spammers)
		if frac >= previous {
			t.Errorf("Share %v: spam fraction %.4f did not drop below %.4f", share, frac, previous)
		}
		previous = frac
	}

	// With every bit of teleport mass on the seed, spammers hold nothing.
	if previous != 0 {
		t.Errorf("Expected zero spam score at TrustShare 1, got %v", previous)
	}
}

// TestPageRank_IsolatedNodesGetTeleportOnly tests that isolation blocks incoming propagation
func TestPageRank_IsolatedNodesGetTeleportOnly(t *testing.T) {
	// 3 and 4 vouch for each other but nothing links them to the seed.
	g := buildGraph(t, edge(1, 2, 100), edge(3, 4, 100), edge(4, 3, 100))

	cfg := DefaultPageRankConfig()
	cfg.Trust = trustConfig(acct(1))

	result, err := PageRank(g, cfg)
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}

	if result.GetNodeRank(acct(3)) != result.GetNodeRank(acct(4)) {
		t.Error("Expected isolated pair to hold identical teleport-only scores")
	}
	if result.GetNodeRank(acct(2)) <= result.GetNodeRank(acct(3)) {
		t.Errorf("Expected seed-reachable node (%v) above isolated node (%v)",
			result.GetNodeRank(acct(2)), result.GetNodeRank(acct(3)))
	}
	if len(result.Isolated) != 2 {
		t.Errorf("Expected 2 isolated nodes, got %d", len(result.Isolated))
	}
}

// TestPageRank_TrustDecayAttenuatesDistantAttesters tests that an attester
// one hop from the seed passes on less than the seed itself
func TestPageRank_TrustDecayAttenuatesDistantAttesters(t *testing.T) {
	// Seed 1 and non-seed 2 each vouch at half weight.
	g := buildGraph(t, edge(1, 3, 50), edge(2, 4, 50), edge(1, 2, 50))

	cfg := DefaultPageRankConfig()
	cfg.Trust = trustConfig(acct(1))
	cfg.Trust.TrustDecay = 0.5

	result, err := PageRank(g, cfg)
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}

	if result.GetNodeRank(acct(3)) <= result.GetNodeRank(acct(4)) {
		t.Errorf("Expected seed's recipient (%v) above decayed recipient (%v)",
			result.GetNodeRank(acct(3)), result.GetNodeRank(acct(4)))
	}
}

// TestPageRank_TrustMultiplierCancels tests that the multiplier scales a
// seed's edges and its normalisation alike, leaving scores unchanged
func TestPageRank_TrustMultiplierCancels(t *testing.T) {
	g := buildGraph(t, edge(1, 2, 30), edge(1, 3, 90), edge(2, 3, 60), edge(3, 1, 45))

	base := DefaultPageRankConfig()
	base.Trust = trustConfig(acct(1))
	base.Trust.TrustMultiplier = 1

	baseline, err := PageRank(g, base)
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}

	for _, m := range []float64{2, 1e6, 1e306, 1e308, math.MaxFloat64, math.Inf(1)} {
		cfg := base
		cfg.Trust.TrustMultiplier = m

		result, err := PageRank(g, cfg)
		if err != nil {
			t.Fatalf("Multiplier %v: PageRank failed: %v", m, err)
		}
		if sum := sumScores(result.Scores); math.Abs(sum-1) > 1e-12 {
			t.Errorf("Multiplier %v: expected scores summing to 1, got %v", m, sum)
		}
		for node, score := range baseline.Scores {
			if math.Float64bits(result.Scores[node]) != math.Float64bits(score) {
				t.Errorf("Multiplier %v: score for %s changed: %v vs %v", m, node, result.Scores[node], score)
			}
		}
	}
}

// TestPageRank_ClampsToConfigBounds tests that edges stored under wider graph
// bounds are clamped to the config's bounds before propagation
func TestPageRank_ClampsToConfigBounds(t *testing.T) {
	wide := graph.DefaultGraphOptions()
	wide.MaxWeight = 1000
	g := graph.BuildAttestationGraph([]graph.Edge{edge(1, 2, 1000), edge(2, 1, 100)}, wide)

	scores, err := CalculatePageRank(g, DefaultPageRankConfig())
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}

	for _, node := range []account.Account{acct(1), acct(2)} {
		if math.Abs(scores[node]-0.5) > 1e-12 {
			t.Errorf("Expected symmetric score 0.5 for %s, got %v", node, scores[node])
		}
	}
}

// TestPageRank_SeedsOutsideGraph tests that unknown seeds fall back to a uniform result
func TestPageRank_SeedsOutsideGraph(t *testing.T) {
	g := buildGraph(t, edge(1, 2, 100), edge(2, 1, 100))

	cfg := DefaultPageRankConfig()
	cfg.Trust = trustConfig(acct(99))

	result, err := PageRank(g, cfg)
	if err != nil {
		t.Fatalf("PageRank failed: %v", err)
	}
	if result.GetNodeRank(acct(1)) != 0.5 || result.GetNodeRank(acct(2)) != 0.5 {
		t.Errorf("Expected uniform scores, got %v", result.Scores)
	}
	if len(result.Isolated) != 2 {
		t.Errorf("Expected every node isolated, got %d", len(result.Isolated))
	}
}

// TestPageRank_InvalidConfig tests rejection of unclampable parameters
func TestPageRank_InvalidConfig(t *testing.T) {
	g := buildGraph(t, edge(1, 2, 100))

	tests := []struct {
		name   string
		mutate func(*PageRankConfig)
	}{
		{"damping zero", func(c *PageRankConfig) { c.DampingFactor = 0 }},
		{"damping one", func(c *PageRankConfig) { c.DampingFactor = 1 }},
		{"damping NaN", func(c *PageRankConfig) { c.DampingFactor = math.NaN() }},
		{"no iterations", func(c *PageRankConfig) { c.MaxIterations = 0 }},
		{"zero tolerance", func(c *PageRankConfig) { c.Tolerance = 0 }},
		{"inverted bounds", func(c *PageRankConfig) { c.MinWeight = 10; c.MaxWeight = 5 }},
		{"zero max weight", func(c *PageRankConfig) { c.MinWeight = 0; c.MaxWeight = 0 }},
		{"infinite max weight", func(c *PageRankConfig) { c.MaxWeight = math.Inf(1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPageRankConfig()
			tt.mutate(&cfg)
			if _, err := PageRank(g, cfg); err == nil {
				t.Error("Expected configuration error")
			}
		})
	}
}

// TestTrustConfig_Normalized tests clamping of trust parameters
func TestTrustConfig_Normalized(t *testing.T) {
	tc := TrustConfig{TrustMultiplier: 0.2, TrustShare: 1.7, TrustDecay: -3}.Normalized()
	if tc.TrustMultiplier != 1 || tc.TrustShare != 1 || tc.TrustDecay != 0 {
		t.Errorf("Unexpected clamp result: %+v", tc)
	}
	if tc.TrustedSeeds == nil {
		t.Error("Expected non-nil seed set")
	}

	tc = TrustConfig{TrustMultiplier: math.NaN(), TrustShare: math.NaN(), TrustDecay: math.NaN()}.Normalized()
	if tc.TrustMultiplier != 1 || tc.TrustShare != 0 || tc.TrustDecay != 0 {
		t.Errorf("Unexpected NaN clamp result: %+v", tc)
	}
}

// TestFindTopNodes_TieBreak tests deterministic ordering of equal scores
func TestFindTopNodes_TieBreak(t *testing.T) {
	scores := map[account.Account]float64{
		acct(4): 0.25, acct(2): 0.25, acct(3): 0.25, acct(1): 0.25,
	}

	top := findTopNodes(scores, 3)
	want := []account.Account{acct(1), acct(2), acct(3)}
	if len(top) != len(want) {
		t.Fatalf("Expected %d nodes, got %d", len(want), len(top))
	}
	for i, a := range want {
		if top[i].Account != a {
			t.Errorf("Position %d: expected %s, got %s", i, a, top[i].Account)
		}
	}
}

// TestTrustDistances tests multi-source BFS distances
func TestTrustDistances(t *testing.T) {
	g := buildGraph(t, edge(1, 2, 1), edge(2, 3, 1), edge(5, 3, 1), edge(3, 4, 1), edge(6, 7, 1))

	distances := TrustDistances(g, trustConfig(acct(1), acct(5)))

	want := map[account.Account]int{acct(1): 0, acct(5): 0, acct(2): 1, acct(3): 1, acct(4): 2}
	if len(distances) != len(want) {
		t.Fatalf("Expected %d reachable nodes, got %d: %v", len(want), len(distances), distances)
	}
	for a, d := range want {
		if distances[a] != d {
			t.Errorf("Distance for %s: expected %d, got %d", a, d, distances[a])
		}
	}

	if len(TrustDistances(g, TrustConfig{})) != 0 {
		t.Error("Expected no distances with trust disabled")
	}
}
