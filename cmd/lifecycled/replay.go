package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/younsl/lifecycled/internal/archive"
	"github.com/younsl/lifecycled/internal/config"
	"github.com/younsl/lifecycled/internal/engine"
	"github.com/younsl/lifecycled/internal/lifecycle"
	awsclient "github.com/younsl/lifecycled/pkg/aws"
	"github.com/younsl/lifecycled/pkg/formatter"
	"github.com/younsl/lifecycled/pkg/memstore"
	"go.uber.org/zap"
)

type replayOptions struct {
	eventsFile    string
	instancesFile string
	describeEC2   bool
	archiveOut    string
	metricsOut    string
	redeliveries  int
	quiet         bool
}

func newReplayCmd() *cobra.Command {
	var opts replayOptions

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded EventBridge events through the pipeline locally",
		Long: `Replay reads EventBridge events (one JSON object per line) and runs them
through normalization, aggregation, enrichment, dispatch and archival in
memory. Instance descriptions come from a JSON file or from EC2.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runReplay(cmd, cfg, logger, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.eventsFile, "file", "f", "", "JSONL file of EventBridge events")
	cmd.Flags().StringVarP(&opts.instancesFile, "instances", "i", "", "JSON array of instance descriptions used for enrichment")
	cmd.Flags().BoolVar(&opts.describeEC2, "describe-ec2", false, "Enrich from EC2 DescribeInstances instead of --instances")
	cmd.Flags().StringVarP(&opts.archiveOut, "archive-out", "o", "", "Write archived records to this JSONL file instead of discarding them")
	cmd.Flags().StringVar(&opts.metricsOut, "metrics-out", "", "Write EMF metric lines to this file instead of stdout")
	cmd.Flags().IntVar(&opts.redeliveries, "max-redeliveries", engine.DefaultMaxRedeliveries, "Redeliver a failed change at most this many times")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not show progress")
	_ = cmd.MarkFlagRequired("file")
	cmd.MarkFlagsMutuallyExclusive("instances", "describe-ec2")
	return cmd
}

func runReplay(cmd *cobra.Command, cfg *config.Config, logger *zap.Logger, opts replayOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	f, err := os.Open(opts.eventsFile)
	if err != nil {
		return fmt.Errorf("error opening events file: %w", err)
	}
	defer f.Close()
	evs, err := engine.ReadEvents(f)
	if err != nil {
		return err
	}

	lookup, err := replayLookup(cmd, cfg, opts)
	if err != nil {
		return err
	}

	archiveW, closeArchive, err := openOutput(opts.archiveOut, io.Discard)
	if err != nil {
		return err
	}
	defer closeArchive()
	metricsW, closeMetrics, err := openOutput(opts.metricsOut, out)
	if err != nil {
		return err
	}
	defer closeMetrics()

	store, err := memstore.NewStore()
	if err != nil {
		return err
	}
	ledger, err := memstore.NewLedger()
	if err != nil {
		return err
	}

	normalizer := lifecycle.NewNormalizer(cfg.RetentionDays, time.Now)
	aggregator := lifecycle.NewAggregator(store, logger, lifecycle.WithStaleGuard(cfg.StaleGuard))
	pipeline := archive.NewPipeline(awsclient.NewEMFWriter(metricsW), archive.NewWriterSink(archiveW), "replay", logger,
		archive.WithNamespace(cfg.MetricsNamespace))
	starter := archive.NewLocalStarter(pipeline)
	dispatcher := lifecycle.NewDispatcher(ledger, starter, cfg.ClaimTTL, logger)
	enricher := lifecycle.NewEnricher(lookup, normalizer, aggregator, logger)
	eng := engine.New(normalizer, aggregator, lifecycle.NewStreamProcessor(enricher, dispatcher, logger), store, logger,
		engine.WithMaxRedeliveries(opts.redeliveries))

	startTime := time.Now()
	var stop func()
	if !opts.quiet {
		s := startSpinner(fmt.Sprintf("Replaying %d events ...", len(evs)))
		stop = s.Stop
	}
	sum, replayErr := eng.Replay(ctx, evs)
	if stop != nil {
		stop()
	}

	records, err := store.Records()
	if err != nil {
		return err
	}
	entries, err := ledger.Entries()
	if err != nil {
		return err
	}

	now := time.Now()
	fmt.Fprintln(out, "\n## Instance Records")
	formatter.PrintRecordsTable(out, records, now)
	formatter.PrintRecordsSummary(out, records)
	fmt.Fprintln(out, "\n## Archival Dispatches")
	formatter.PrintDispatchTable(out, entries)
	formatter.PrintReplaySummary(out, sum, startTime, time.Since(startTime))

	metricErrors := 0
	for _, report := range starter.Reports() {
		metricErrors += len(report.MetricErrors)
	}
	if metricErrors > 0 {
		fmt.Fprintf(out, "Warning: %d metric emissions failed; records were still archived\n", metricErrors)
	}

	if replayErr != nil {
		return fmt.Errorf("replay finished with errors: %w", replayErr)
	}
	if len(sum.Failures) > 0 {
		return fmt.Errorf("%d changes failed after redelivery", len(sum.Failures))
	}
	return nil
}

// replayLookup picks the description source used for enrichment
func replayLookup(cmd *cobra.Command, cfg *config.Config, opts replayOptions) (lifecycle.DescriptionLookup, error) {
	if opts.describeEC2 {
		awsCfg, err := awsclient.LoadConfig(cmd.Context(), cfg.Region)
		if err != nil {
			return nil, err
		}
		return awsclient.NewEC2ClientFromConfig(awsCfg, cfg.DescribeRateLimit), nil
	}
	if opts.instancesFile == "" {
		return engine.StaticLookup{}, nil
	}

	f, err := os.Open(opts.instancesFile)
	if err != nil {
		return nil, fmt.Errorf("error opening instances file: %w", err)
	}
	defer f.Close()
	return engine.LoadStaticLookup(f)
}

// openOutput opens path for writing, or returns def when path is empty
func openOutput(path string, def io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return def, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}
