package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-trustrank/pkg/config"
	"github.com/dd0wney/cluso-trustrank/pkg/publish"
)

func newPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Score, allocate and publish the results payload",
		Long: "publish runs a scoring pass and writes the canonical results payload to the " +
			"configured target (none, stdout or s3). The payload digest is Keccak-256 over " +
			"the uncompressed canonical JSON.",
		Args: cobra.NoArgs,
		RunE: withRuntime(runPublish),
	}
	cmd.Flags().String("target", "", "override publish target (none, stdout, s3)")
	cmd.Flags().Bool("compress", false, "snappy-compress the payload")
	return cmd
}

func runPublish(cmd *cobra.Command, _ []string, rt *runtime) error {
	ctx := cmd.Context()

	if target, _ := cmd.Flags().GetString("target"); target != "" {
		rt.cfg.Publish.Target = target
		if err := rt.cfg.Validate(); err != nil {
			return err
		}
	}
	compress := rt.cfg.Publish.Compress
	if cmd.Flags().Changed("compress") {
		compress, _ = cmd.Flags().GetBool("compress")
	}

	src, err := rt.attestationSource(ctx)
	if err != nil {
		return err
	}
	pass, err := src.Pass(ctx)
	if err != nil {
		return err
	}

	pub, err := rt.publisher(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	results := publish.FromPass(pass)
	location, payload, err := publish.PublishResults(ctx, pub, results, compress, rt.metrics, rt.logger)
	if err != nil {
		return err
	}

	// Stdout carries the payload itself; the summary goes to stderr.
	summary := cmd.OutOrStdout()
	if rt.cfg.Publish.Target == config.TargetStdout {
		summary = cmd.ErrOrStderr()
	}
	if location == "" {
		location = "(not stored)"
	}
	fmt.Fprintf(summary, "pass %s published to %s\ndigest %s\n", pass.ID, location, payload.Digest)
	return nil
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <payload-file>",
		Short: "Check a downloaded results payload against its digest",
		Args:  cobra.ExactArgs(1),
		RunE:  runVerify,
	}
	cmd.Flags().String("digest", "", "expected 0x-prefixed Keccak-256 digest (required)")
	_ = cmd.MarkFlagRequired("digest")
	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	path := args[0]
	digest, _ := cmd.Flags().GetString("digest")

	body, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}

	payload := &publish.Payload{
		Body:       body,
		Digest:     strings.ToLower(digest),
		Compressed: strings.HasSuffix(path, ".sz"),
	}
	if !payload.Compressed {
		payload.Body = []byte(strings.TrimRight(string(body), "\n"))
	}

	results, err := publish.Decode(payload)
	if err != nil {
		return errors.Wrapf(err, "verifying %s", path)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ok: pass %s, schema %s, %d accounts, total %s\n",
		results.PassID, results.Schema, len(results.Scores), results.Rewards.Total().String())
	return nil
}
