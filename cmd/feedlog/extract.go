package main

import (
	"fmt"

	"code.cloudfoundry.org/bytefmt"
	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/feedlog/internal/pipeline"
)

func newExtractCommand() *cobra.Command {
	var opts pipeline.ExtractOptions

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Copy one feed's messages into a new log",
		Long: `Copy the messages authored by a feed into a new offset log. The raw
bytes of each message are copied unchanged, so signatures stay valid.
With --invert every message NOT authored by the feed is copied instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Source, "in", "i", "", "Path to the input offset log (required)")
	cmd.Flags().StringVarP(&opts.Destination, "out", "o", "", "Path of the new offset log (required)")
	cmd.Flags().StringVarP(&opts.Author, "feed", "f", "", "Feed id to extract, e.g. @<key>.ed25519 (required)")
	cmd.Flags().BoolVar(&opts.Invert, "invert", false, "Copy every message not authored by the feed")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "Replace the output path if it exists")
	markRequired(cmd, "in", "out", "feed")

	return cmd
}

func runExtract(cmd *cobra.Command, opts pipeline.ExtractOptions) error {
	stderr := cmd.ErrOrStderr()
	if opts.Invert {
		fmt.Fprintf(cmd.OutOrStdout(), "Copying all feeds except: %s\n", opts.Author)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Copying feed id: %s\n", opts.Author)
	}
	fmt.Fprintf(stderr, " from offset log at path:     %s\n", opts.Source)
	fmt.Fprintf(stderr, " into new offset log at path: %s\n", opts.Destination)

	res, err := newRunner(cmd).Extract(cmd.Context(), opts)
	if pipeline.IsRefusal(err) {
		return reportRefusal(cmd, err, opts.Destination)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Copied %d of %d messages (%s)\n",
		res.Copied, res.Scanned, bytefmt.ByteSize(res.Bytes))
	return nil
}
