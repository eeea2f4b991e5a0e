package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "trustrank",
		Short: "Trust-aware reputation scoring and reward allocation",
		Long: "trustrank reads the attestations recorded under a schema, ranks accounts with " +
			"trust-aware PageRank and splits a reward pool across them exactly.",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file (default ./trustrank.yaml)")
	root.PersistentFlags().String("log-level", "", "override log level (debug, info, warn, error)")
	root.PersistentFlags().String("metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		newScoreCmd(),
		newAllocateCmd(),
		newPublishCmd(),
		newVerifyCmd(),
	)
	return root
}
