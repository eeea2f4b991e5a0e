package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
	"github.com/dd0wney/cluso-trustrank/pkg/algorithms"
	"github.com/dd0wney/cluso-trustrank/pkg/rewards"
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Rank accounts by trust-aware PageRank",
		Args:  cobra.NoArgs,
		RunE:  withRuntime(runScore),
	}
	cmd.Flags().Int("top", algorithms.DefaultTopNodes, "number of accounts to print (0 for all)")
	cmd.Flags().Bool("json", false, "output scores as JSON")
	return cmd
}

type scoreRow struct {
	Rank     int     `json:"rank"`
	Account  string  `json:"account"`
	Score    float64 `json:"score"`
	Distance *int    `json:"trustDistance,omitempty"`
	Received int     `json:"attestations"`
	InRing   bool    `json:"inRing"`
}

type scoreReport struct {
	PassID      string     `json:"passId"`
	Schema      string     `json:"schema"`
	Nodes       int        `json:"nodes"`
	Edges       int        `json:"edges"`
	Iterations  int        `json:"iterations"`
	Converged   bool       `json:"converged"`
	Isolated    int        `json:"isolated"`
	Skipped     int        `json:"skippedAttestations"`
	Rings       int        `json:"rings"`
	LargestRing int        `json:"largestRing"`
	Scores      []scoreRow `json:"scores"`
}

func runScore(cmd *cobra.Command, _ []string, rt *runtime) error {
	src, err := rt.attestationSource(cmd.Context())
	if err != nil {
		return err
	}
	pass, err := src.Pass(cmd.Context())
	if err != nil {
		return err
	}

	top, _ := cmd.Flags().GetInt("top")
	asJSON, _ := cmd.Flags().GetBool("json")

	report := buildScoreReport(pass, top)
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printScoreReport(cmd.OutOrStdout(), report)
}

// rankAccounts orders every scored account by descending score, ties by
// ascending account.
func rankAccounts(scores map[account.Account]float64) []algorithms.RankedNode {
	ranked := make([]algorithms.RankedNode, 0, len(scores))
	for a, s := range scores {
		ranked = append(ranked, algorithms.RankedNode{Account: a, Score: s})
	}
	slices.SortFunc(ranked, func(a, b algorithms.RankedNode) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return a.Account.Compare(b.Account)
	})
	return ranked
}

func buildScoreReport(pass *rewards.ScoringPass, top int) scoreReport {
	ranked := rankAccounts(pass.Scores())
	if top > 0 && top < len(ranked) {
		ranked = ranked[:top]
	}

	report := scoreReport{
		PassID:     pass.ID,
		Schema:     pass.Schema,
		Nodes:      pass.Nodes,
		Edges:      pass.Edges,
		Iterations: pass.Result.Iterations,
		Converged:  pass.Result.Converged,
		Isolated:   len(pass.Result.Isolated),
		Skipped:    pass.Stats.Skipped(),
		Rings:      len(pass.Rings.Rings),
		Scores:     make([]scoreRow, len(ranked)),
	}
	if largest, ok := pass.Rings.Largest(); ok {
		report.LargestRing = largest.Size()
	}
	for i, rn := range ranked {
		row := scoreRow{
			Rank:     i + 1,
			Account:  rn.Account.Hex(),
			Score:    rn.Score,
			Received: pass.Received[rn.Account],
			InRing:   pass.Rings.InRing(rn.Account),
		}
		if d, ok := pass.Result.TrustDistance[rn.Account]; ok {
			row.Distance = &d
		}
		report.Scores[i] = row
	}
	return report
}

func printScoreReport(w io.Writer, r scoreReport) error {
	fmt.Fprintf(w, "pass %s: %d nodes, %d edges, %d iterations (converged: %v)\n",
		r.PassID, r.Nodes, r.Edges, r.Iterations, r.Converged)
	if r.Isolated > 0 || r.Skipped > 0 {
		fmt.Fprintf(w, "isolated accounts: %d, skipped attestations: %d\n", r.Isolated, r.Skipped)
	}
	if r.Rings > 0 {
		fmt.Fprintf(w, "attestation rings: %d, largest: %d accounts\n", r.Rings, r.LargestRing)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tACCOUNT\tSCORE\tDISTANCE\tRECEIVED\tRING")
	for _, row := range r.Scores {
		distance := "-"
		if row.Distance != nil {
			distance = fmt.Sprint(*row.Distance)
		}
		ring := ""
		if row.InRing {
			ring = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%.6f\t%s\t%d\t%s\n", row.Rank, row.Account, row.Score, distance, row.Received, ring)
	}
	return tw.Flush()
}
