package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/feedlog/internal/pipeline"
)

func newVerifyCommand() *cobra.Command {
	var opts pipeline.VerifyOptions

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the signature of every message in a log",
		Long: `Verify message signatures one by one, or with --parallel in ordered
chunks that are checked concurrently. Every message is checked; the result is
ok only when all of them verify.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("chunk-size") {
				cfg.WithChunkSize(opts.ChunkSize)
			}
			if cmd.Flags().Changed("workers") {
				cfg.WithWorkers(opts.Workers)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			opts.ChunkSize, opts.Workers = cfg.Verify.ChunkSize, cfg.Verify.Workers
			return runVerify(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Source, "in", "i", "", "Path to the input offset log (required)")
	cmd.Flags().BoolVarP(&opts.Parallel, "parallel", "p", false, "Verify in concurrent batches")
	cmd.Flags().IntVar(&opts.ChunkSize, "chunk-size", 0, "Messages per batch in parallel mode")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "Batches verified at once in parallel mode")
	markRequired(cmd, "in")

	return cmd
}

func runVerify(cmd *cobra.Command, opts pipeline.VerifyOptions) error {
	report, err := newRunner(cmd).Verify(cmd.Context(), opts)
	if pipeline.IsRefusal(err) {
		return reportRefusal(cmd, err, "")
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if report.OK() {
		fmt.Fprintln(out, "All messages ok")
	} else {
		fmt.Fprintln(out, "Not all messages ok")
	}
	if report.Parallel {
		fmt.Fprintf(out, "Checked %d messages in %d batches, %d batches failed\n",
			report.Checked, report.Chunks, report.FailedChunks)
	} else {
		fmt.Fprintf(out, "Checked %d messages, %d failed\n", report.Checked, report.Failed)
	}
	return nil
}
