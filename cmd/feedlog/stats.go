package main

import (
	"fmt"
	"maps"
	"slices"

	"code.cloudfoundry.org/bytefmt"
	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/feedlog/internal/pipeline"
)

func newStatsCommand() *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show entry and author counts of a log",
		Long: `Scan a log once and report the number of entries, padding entries,
entries without a readable author, total payload size and the number of
messages per author.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, in)
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "Path to the input offset log (required)")
	markRequired(cmd, "in")

	return cmd
}

func runStats(cmd *cobra.Command, in string) error {
	stats, err := newRunner(cmd).Stats(cmd.Context(), in)
	if pipeline.IsRefusal(err) {
		return reportRefusal(cmd, err, "")
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Entries:   %d\n", stats.TotalEntries)
	fmt.Fprintf(out, "Padding:   %d\n", stats.PaddingEntries)
	fmt.Fprintf(out, "Malformed: %d\n", stats.MalformedEntries)
	fmt.Fprintf(out, "Bytes:     %d (%s)\n", stats.TotalBytes, bytefmt.ByteSize(stats.TotalBytes))
	fmt.Fprintf(out, "Authors:   %d\n", stats.AuthorCount)
	for _, author := range slices.Sorted(maps.Keys(stats.AuthorCounts)) {
		fmt.Fprintf(out, "  %s %d\n", author, stats.AuthorCounts[author])
	}
	return nil
}
