package main

import (
	"fmt"

	"code.cloudfoundry.org/bytefmt"
	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/feedlog/internal/pipeline"
)

func newSortCommand() *cobra.Command {
	var opts pipeline.SortOptions

	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Rewrite a log in asserted timestamp order",
		Long: `Copy every message of the input log into a new log ordered by the
timestamp each message asserts. Messages with equal timestamps keep their
original relative order. Padding entries are kept and sort as timestamp 0.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Source, "in", "i", "", "Path to the input offset log (required)")
	cmd.Flags().StringVarP(&opts.Destination, "out", "o", "", "Path of the sorted offset log (required)")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "Replace the output path if it exists")
	markRequired(cmd, "in", "out")

	return cmd
}

func runSort(cmd *cobra.Command, opts pipeline.SortOptions) error {
	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "Sorting offset log at path:  %s\n", opts.Source)
	fmt.Fprintf(stderr, " into new offset log at path: %s\n", opts.Destination)

	res, err := newRunner(cmd).Sort(cmd.Context(), opts)
	if pipeline.IsRefusal(err) {
		return reportRefusal(cmd, err, opts.Destination)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Sorted %d entries (%s), %d of them padding\n",
		res.Sorted, bytefmt.ByteSize(res.Bytes), res.Padding)
	return nil
}
