package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/big"
	"math/rand/v2"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
	"github.com/dd0wney/cluso-trustrank/pkg/algorithms"
	"github.com/dd0wney/cluso-trustrank/pkg/graph"
	"github.com/dd0wney/cluso-trustrank/pkg/rewards"
	"github.com/dd0wney/cluso-trustrank/pkg/source"
)

func main() {
	nodes := flag.Int("nodes", 1000, "Number of accounts to create")
	edges := flag.Int("edges", 3000, "Number of attestations to create")
	seeds := flag.Int("seeds", 10, "Number of trusted seeds")
	seed := flag.Uint64("seed", 42, "Random seed")
	pool := flag.String("pool", "1000000000000000000000000", "Reward pool to allocate")
	workers := flag.Int("workers", 8, "Workers for reward collection")
	flag.Parse()

	poolAmount, ok := new(big.Int).SetString(*pool, 10)
	if !ok {
		log.Fatalf("Invalid pool %q", *pool)
	}

	fmt.Printf("🔥 Cluso TrustRank - PageRank Benchmark\n")
	fmt.Printf("=======================================\n\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Accounts:     %d\n", *nodes)
	fmt.Printf("  Attestations: %d\n", *edges)
	fmt.Printf("  Seeds:        %d\n\n", *seeds)

	rng := rand.New(rand.NewPCG(*seed, *seed))

	// Generate attestations
	fmt.Printf("📝 Generating %d attestations...\n", *edges)
	start := time.Now()

	accounts := make([]account.Account, *nodes)
	for i := range accounts {
		accounts[i] = account.FromBytes(big.NewInt(int64(i + 1)).Bytes())
	}

	atts := make([]source.Attestation, *edges)
	for i := range atts {
		from := rng.IntN(*nodes)
		to := rng.IntN(*nodes)
		if from == to {
			to = (to + 1) % *nodes
		}
		atts[i] = source.Attestation{
			UID:       common.BigToHash(big.NewInt(int64(i + 1))),
			Attester:  accounts[from],
			Recipient: accounts[to],
			Data:      source.EncodeWord(big.NewInt(int64(rng.IntN(101)))),
			Timestamp: uint64(i),
		}
	}

	edgeList, stats := source.ToEdges(atts, source.DefaultWeightDecoder(), nil)
	g := graph.BuildAttestationGraph(edgeList, graph.DefaultGraphOptions())
	fmt.Printf("✅ Built graph with %d nodes and %d edges in %v (%d skipped)\n",
		g.NodeCount(), g.EdgeCount(), time.Since(start), stats.Skipped())

	// Benchmark 1: plain PageRank
	fmt.Printf("\n📊 Benchmark 1: PageRank (trust disabled)\n")
	plainCfg := algorithms.DefaultPageRankConfig()
	plain := runPageRank(g, plainCfg)

	// Benchmark 2: trust-aware PageRank
	fmt.Printf("\n📊 Benchmark 2: Trust-aware PageRank\n")
	trustCfg := algorithms.DefaultPageRankConfig()
	for _, a := range accounts[:min(*seeds, len(accounts))] {
		trustCfg.Trust.TrustedSeeds[a] = struct{}{}
	}
	trusted := runPageRank(g, trustCfg)
	fmt.Printf("  Isolated accounts: %d\n", len(trusted.Isolated))

	// Benchmark 3: allocation
	fmt.Printf("\n📊 Benchmark 3: Reward allocation\n")
	start = time.Now()
	allocation, err := rewards.AllocateRewards(trusted.Scores, poolAmount, 0)
	if err != nil {
		log.Fatalf("Allocation failed: %v", err)
	}
	fmt.Printf("✅ Allocated %s to %d accounts in %v\n", allocation.Total(), len(allocation), time.Since(start))

	// Benchmark 4: collection through a reward source
	fmt.Printf("\n📊 Benchmark 4: Reward source collection (%d workers)\n", *workers)
	start = time.Now()
	src, err := rewards.NewAttestationSource("benchmark", source.NewStaticFetcher(benchmarkSchema, atts...),
		rewards.AttestationSourceConfig{
			SchemaID: benchmarkSchema,
			PageRank: trustCfg,
			Pool:     poolAmount,
			Decoder:  source.DefaultWeightDecoder(),
		})
	if err != nil {
		log.Fatalf("Failed to create source: %v", err)
	}
	collected, err := rewards.Collect(context.Background(), src, *workers)
	if err != nil {
		log.Fatalf("Collection failed: %v", err)
	}
	fmt.Printf("✅ Collected %d rewards in %v (matches direct allocation: %v)\n",
		len(collected), time.Since(start), collected.Total().Cmp(allocation.Total()) == 0)

	// Summary
	fmt.Printf("\n🎯 Summary\n")
	fmt.Printf("==========\n")
	fmt.Printf("Graph with %d accounts and %d attestations:\n", *nodes, *edges)
	fmt.Printf("  Plain PageRank:       %d iterations (converged: %v)\n", plain.Iterations, plain.Converged)
	fmt.Printf("  Trust-aware PageRank: %d iterations (converged: %v)\n", trusted.Iterations, trusted.Converged)

	fmt.Printf("\n✅ Benchmark complete!\n")
}

const benchmarkSchema = "0x00000000000000000000000000000000000000000000000000000000000000be"

func runPageRank(g *graph.AttestationGraph, cfg algorithms.PageRankConfig) *algorithms.PageRankResult {
	start := time.Now()
	result, err := algorithms.PageRank(g, cfg)
	if err != nil {
		log.Fatalf("PageRank failed: %v", err)
	}

	fmt.Printf("✅ PageRank completed in %v\n", time.Since(start))
	fmt.Printf("  Iterations: %d\n", result.Iterations)
	fmt.Printf("  Converged: %v\n", result.Converged)
	fmt.Printf("  Top 5 accounts:\n")
	for i, node := range result.GetTopNodesByPageRank(5) {
		fmt.Printf("    %d. %s (score: %.6f)\n", i+1, node.Account.Hex(), node.Score)
	}
	return result
}
