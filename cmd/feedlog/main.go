package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/feedlog/internal/config"
	"github.com/rmacdonaldsmith/feedlog/internal/logging"
	"github.com/rmacdonaldsmith/feedlog/internal/metrics"
	"github.com/rmacdonaldsmith/feedlog/internal/pipeline"
)

const appVersion = "0.1.0"

var (
	// Global flags
	configPath  string
	logLevel    string
	metricsFile string

	// Loaded once per invocation by loadConfig
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "feedlog",
		Short: "Operator toolkit for offset logs of signed feeds",
		Long: `feedlog rewrites, audits and inspects offset log files holding
signed, hash-chained feed messages. It can extract or sort a log into a new
one, check every author's hash chain, verify signatures and page through
entries interactively.`,
		Version:            appVersion,
		Args:               cobra.ArbitraryArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  loadConfig,
		PersistentPostRunE: writeMetrics,
		RunE: func(cmd *cobra.Command, args []string) error {
			// No recognized subcommand is not a failure
			return cmd.Usage()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the command")

	rootCmd.AddCommand(newSortCommand())
	rootCmd.AddCommand(newExtractCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newVerifyCommand())
	rootCmd.AddCommand(newStatsCommand())
	rootCmd.AddCommand(newViewCommand())

	return rootCmd
}

// loadConfig reads the configuration file, applies flag overrides and builds the logger
func loadConfig(cmd *cobra.Command, args []string) error {
	// Skip for help and the bare root command
	if cmd.Name() == "help" || cmd.Parent() == nil {
		return nil
	}

	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		loaded.WithLogLevel(logLevel)
	}
	if cmd.Flags().Changed("metrics-file") {
		loaded.WithMetricsFile(metricsFile)
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	l, err := logging.New(loaded.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	cfg, logger = loaded, l
	logger.Debug("configuration loaded",
		zap.String("config", configPath),
		zap.String("log_level", cfg.LogLevel),
		zap.Int("chunk_size", cfg.Verify.ChunkSize),
		zap.Int("workers", cfg.Verify.Workers),
		zap.Int("shards", cfg.Audit.Shards))
	return nil
}

func writeMetrics(cmd *cobra.Command, args []string) error {
	if cfg == nil || cfg.MetricsFile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
		return err
	}
	logger.Debug("metrics written", zap.String("path", cfg.MetricsFile))
	return nil
}

// newRunner builds a pipeline runner from the loaded configuration
func newRunner(cmd *cobra.Command) *pipeline.Runner {
	r := pipeline.NewRunner(logger).WithSyncWrites(cfg.SyncWrites)
	if cfg.Progress {
		r.WithProgress(cmd.ErrOrStderr())
	}
	return r
}

// reportRefusal prints the reason an operation did not run. Refusals are not
// failures, so they are swallowed here and the command exits successfully.
func reportRefusal(cmd *cobra.Command, err error, out string) error {
	stderr := cmd.ErrOrStderr()
	switch {
	case errors.Is(err, pipeline.ErrDestinationExists):
		fmt.Fprintf(stderr, "Output path `%s` exists.\n", out)
		fmt.Fprintln(stderr, "Use `--overwrite` option to overwrite.")
	case errors.Is(err, pipeline.ErrEmptyLog):
		fmt.Fprintln(stderr, "Input offset log file is empty.")
	default:
		return err
	}
	return nil
}

func markRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("Failed to mark %s flag as required: %v", name, err))
		}
	}
}
