package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/feedlog/internal/offsetlog"
	"github.com/rmacdonaldsmith/feedlog/internal/pager"
)

func newViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view FILE",
		Short: "Page through a log interactively",
		Long: `Show one entry at a time, pretty-printed. Press j, n, Down or Right for
the next entry and k, p, Up or Left for the previous one. Press q, Esc or
Ctrl-C to exit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, args[0])
		},
	}
}

func runView(cmd *cobra.Command, path string) (err error) {
	log, err := offsetlog.OpenReadOnly(path)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer log.Close()

	if log.End() == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "Input offset log file is empty.")
		return nil
	}

	raw, err := pager.EnterRaw(int(os.Stdin.Fd()))
	if err != nil {
		return err
	}
	defer func() {
		if rerr := raw.Restore(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	if err := pager.New(log, os.Stdin, cmd.OutOrStdout()).WithKeyLog(cmd.ErrOrStderr()).Run(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), "\n\r")
	return nil
}
