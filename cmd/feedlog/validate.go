package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/feedlog/internal/pipeline"
)

func newValidateCommand() *cobra.Command {
	var (
		opts    pipeline.ValidateOptions
		details bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the hash chain of every feed in a log",
		Long: `Check that every message links to the previous message of its author.
Each message is checked against the message that actually precedes it, so a
single broken link is reported once.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("shards") {
				cfg.WithShards(opts.Shards)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			opts.Shards = cfg.Audit.Shards
			return runValidate(cmd, opts, details)
		},
	}

	cmd.Flags().StringVarP(&opts.Source, "in", "i", "", "Path to the input offset log (required)")
	cmd.Flags().IntVar(&opts.Shards, "shards", 1, "Number of goroutines authors are spread across")
	cmd.Flags().BoolVar(&details, "details", false, "List every error under its author")
	markRequired(cmd, "in")

	return cmd
}

func runValidate(cmd *cobra.Command, opts pipeline.ValidateOptions, details bool) error {
	report, err := newRunner(cmd).Validate(cmd.Context(), opts)
	if pipeline.IsRefusal(err) {
		return reportRefusal(cmd, err, "")
	}
	if err != nil {
		return err
	}

	printValidateReport(cmd.OutOrStdout(), report, details)
	return nil
}

func printValidateReport(w io.Writer, report pipeline.ValidateReport, details bool) {
	if report.Valid() {
		fmt.Fprintln(w, "All messages ok")
		return
	}

	fmt.Fprintln(w, "Not all messages ok. ")
	fmt.Fprintf(w, "There were %d entries that were ok, but %d authors had a total of %d messages with errors:\n",
		report.OK, len(report.Errors), report.ErrorCount())
	for _, author := range report.Authors() {
		fmt.Fprintln(w, author)
		if details {
			for _, err := range report.Errors[author] {
				fmt.Fprintf(w, "  %v\n", err)
			}
		}
	}
	if report.Malformed > 0 {
		fmt.Fprintf(w, "%d entries had no readable author\n", report.Malformed)
	}
}
