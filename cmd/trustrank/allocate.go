package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-trustrank/pkg/rewards"
)

func newAllocateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Split the reward pool across scored accounts",
		Args:  cobra.NoArgs,
		RunE:  withRuntime(runAllocate),
	}
	cmd.Flags().Bool("json", false, "output rewards as JSON")
	return cmd
}

type allocationEntry struct {
	Account string `json:"account"`
	Events  int    `json:"events"`
	Reward  string `json:"reward"`
}

type allocationReport struct {
	Source  string            `json:"source"`
	Pool    string            `json:"pool"`
	Total   string            `json:"total"`
	Rewards []allocationEntry `json:"rewards"`
}

func runAllocate(cmd *cobra.Command, _ []string, rt *runtime) error {
	ctx := cmd.Context()

	src, err := rt.attestationSource(ctx)
	if err != nil {
		return err
	}
	allocation, err := rewards.Collect(ctx, src, rt.cfg.Workers)
	if err != nil {
		return err
	}
	pool, err := rt.cfg.Pool()
	if err != nil {
		return err
	}

	report := allocationReport{
		Source:  src.Name(),
		Pool:    pool.String(),
		Total:   allocation.Total().String(),
		Rewards: make([]allocationEntry, 0, len(allocation)),
	}
	for _, a := range allocation.Accounts() {
		r, err := src.EventsAndValue(ctx, a)
		if err != nil {
			return err
		}
		report.Rewards = append(report.Rewards, allocationEntry{
			Account: a.Hex(),
			Events:  r.Events,
			Reward:  allocation[a].String(),
		})
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	w := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tEVENTS\tREWARD")
	for _, e := range report.Rewards {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", e.Account, e.Events, e.Reward)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "total %s of pool %s across %d accounts\n", report.Total, report.Pool, len(report.Rewards))
	return nil
}
