package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"github.com/younsl/lifecycled/internal/config"
	"github.com/younsl/lifecycled/internal/logging"
	"github.com/younsl/lifecycled/internal/version"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lifecycled",
		Short: "EC2 instance lifecycle aggregator",
		Long: `lifecycled merges EC2 spot and state-change notifications into one record
per instance and archives each terminal transition exactly once.

It runs as Lambda handlers in AWS, or replays recorded events locally.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newLambdaCmd(),
		newReplayCmd(),
		newShowCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get())
		},
	}
}

// setup loads configuration and builds the logger every command uses
func setup() (*config.Config, *zap.Logger, error) {
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating logger: %w", err)
	}
	return cfg, logger, nil
}

// startSpinner creates and starts a spinner on stderr so stdout stays
// machine readable
func startSpinner(msg string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[9], 200*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + msg
	s.Start()
	return s
}
