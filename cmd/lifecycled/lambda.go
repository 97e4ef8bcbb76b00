package main

import (
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/cobra"
	"github.com/younsl/lifecycled/internal/archive"
	"github.com/younsl/lifecycled/internal/config"
	"github.com/younsl/lifecycled/internal/handler"
	"github.com/younsl/lifecycled/internal/lifecycle"
	"github.com/younsl/lifecycled/internal/version"
	awsclient "github.com/younsl/lifecycled/pkg/aws"
	"go.uber.org/zap"
)

func newLambdaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "lambda [events|stream|archive]",
		Short:     "Run as an AWS Lambda handler",
		Long:      "Run one of the Lambda handlers. Without an argument LIFECYCLED_HANDLER selects it.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{config.HandlerEvents, config.HandlerStream, config.HandlerArchive},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			name := cfg.Handler
			if len(args) == 1 {
				name = args[0]
			}
			if err := cfg.Validate(name); err != nil {
				return fmt.Errorf("invalid configuration for %q handler: %w", name, err)
			}

			awsCfg, err := awsclient.LoadConfig(cmd.Context(), cfg.Region)
			if err != nil {
				return err
			}

			logger = logger.With(zap.String("handler", name))
			logger.Info("handler_starting", zap.String("version", version.Get().Version), zap.String("region", awsCfg.Region))

			fn, err := buildHandler(name, cfg, awsCfg, logger)
			if err != nil {
				return err
			}
			lambda.Start(fn)
			return nil
		},
	}
}

// buildHandler wires the AWS adapters behind the named handler and
// returns its entry point
func buildHandler(name string, cfg *config.Config, awsCfg awssdk.Config, logger *zap.Logger) (any, error) {
	normalizer := lifecycle.NewNormalizer(cfg.RetentionDays, time.Now)

	switch name {
	case config.HandlerEvents:
		store := awsclient.NewRecordStoreFromConfig(awsCfg, cfg.InstanceTable)
		aggregator := lifecycle.NewAggregator(store, logger, lifecycle.WithStaleGuard(cfg.StaleGuard))
		return handler.NewEventsHandler(normalizer, aggregator, logger).Handle, nil

	case config.HandlerStream:
		store := awsclient.NewRecordStoreFromConfig(awsCfg, cfg.InstanceTable)
		aggregator := lifecycle.NewAggregator(store, logger, lifecycle.WithStaleGuard(cfg.StaleGuard))
		lookup := awsclient.NewEC2ClientFromConfig(awsCfg, cfg.DescribeRateLimit)
		ledger := awsclient.NewDispatchLedgerFromConfig(awsCfg, cfg.LedgerTable)
		starter := awsclient.NewStepFunctionsStarterFromConfig(awsCfg, cfg.StateMachineARN)

		enricher := lifecycle.NewEnricher(lookup, normalizer, aggregator, logger)
		dispatcher := lifecycle.NewDispatcher(ledger, starter, cfg.ClaimTTL, logger)
		return handler.NewStreamHandler(lifecycle.NewStreamProcessor(enricher, dispatcher, logger), logger).Handle, nil

	case config.HandlerArchive:
		pipeline, err := buildPipeline(cfg, awsCfg, logger)
		if err != nil {
			return nil, err
		}
		return handler.NewArchiveHandler(pipeline, logger).Handle, nil
	}
	return nil, fmt.Errorf("unknown handler %q", name)
}

// buildPipeline selects the metrics backend and archive sink from cfg
func buildPipeline(cfg *config.Config, awsCfg awssdk.Config, logger *zap.Logger) (*archive.Pipeline, error) {
	var metrics archive.MetricsSink
	switch cfg.MetricsBackend {
	case config.MetricsEMF:
		metrics = awsclient.NewEMFWriter(os.Stdout)
	case config.MetricsLogs:
		metrics = awsclient.NewLogsMetricsFromConfig(awsCfg, cfg.MetricsLogGroup, logStreamName())
	case config.MetricsCloudWatch:
		metrics = awsclient.NewCloudWatchMetricsFromConfig(awsCfg)
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", cfg.MetricsBackend)
	}

	var sink archive.StreamSink
	streamID := cfg.ArchiveStream
	switch cfg.ArchiveSink {
	case config.SinkFirehose:
		sink = awsclient.NewFirehoseSinkFromConfig(awsCfg)
	case config.SinkS3:
		sink = awsclient.NewS3SinkFromConfig(awsCfg, cfg.ArchiveBucket, cfg.ArchivePrefix)
		if streamID == "" {
			streamID = "instance-metadata"
		}
	default:
		return nil, fmt.Errorf("unknown archive sink %q", cfg.ArchiveSink)
	}

	breakerCfg := archive.DefaultBreakerConfig()
	breakerCfg.Name = "metrics-" + cfg.MetricsBackend
	return archive.NewPipeline(metrics, sink, streamID, logger,
		archive.WithNamespace(cfg.MetricsNamespace),
		archive.WithBreaker(archive.NewBreaker(breakerCfg)),
	), nil
}

func logStreamName() string {
	if name := os.Getenv("AWS_LAMBDA_LOG_STREAM_NAME"); name != "" {
		return name
	}
	return "lifecycled"
}
