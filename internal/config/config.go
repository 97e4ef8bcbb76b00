package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Handler names accepted by the lambda command
const (
	HandlerEvents  = "events"
	HandlerStream  = "stream"
	HandlerArchive = "archive"
)

// Archive sinks
const (
	SinkFirehose = "firehose"
	SinkS3       = "s3"
)

// Metrics backends
const (
	MetricsEMF        = "emf"
	MetricsLogs       = "logs"
	MetricsCloudWatch = "cloudwatch"
)

// Config holds application configuration.
type Config struct {
	Region   string
	LogLevel string
	Handler  string

	InstanceTable string
	RetentionDays int
	StaleGuard    bool

	LedgerTable     string
	ClaimTTL        time.Duration
	StateMachineARN string

	DescribeRateLimit float64

	ArchiveSink   string
	ArchiveStream string
	ArchiveBucket string
	ArchivePrefix string

	MetricsBackend   string
	MetricsNamespace string
	MetricsLogGroup  string
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Region:   getenv("AWS_REGION", os.Getenv("AWS_DEFAULT_REGION")),
		LogLevel: getenv("LOG_LEVEL", "info"),
		Handler:  getenv("LIFECYCLED_HANDLER", ""),

		InstanceTable: getenv("INSTANCE_METADATA_TABLE", "InstanceMetadata"),
		RetentionDays: getenvInt("INSTANCE_METADATA_ITEM_RETENTION_DAYS", 30),
		StaleGuard:    getenvBool("STALE_EVENT_GUARD", true),

		LedgerTable:     getenv("DISPATCH_LEDGER_TABLE", "InstanceDispatchLedger"),
		ClaimTTL:        getenvDuration("DISPATCH_CLAIM_TTL", 5*time.Minute),
		StateMachineARN: getenv("DATA_SINK_STATE_MACHINE_ARN", ""),

		DescribeRateLimit: getenvFloat("DESCRIBE_RATE_LIMIT", 10),

		ArchiveSink:   strings.ToLower(getenv("ARCHIVE_SINK", SinkFirehose)),
		ArchiveStream: getenv("INSTANCE_METADATA_STREAM", ""),
		ArchiveBucket: getenv("ARCHIVE_BUCKET", ""),
		ArchivePrefix: getenv("ARCHIVE_PREFIX", "instances/"),

		MetricsBackend:   strings.ToLower(getenv("METRICS_BACKEND", MetricsEMF)),
		MetricsNamespace: getenv("METRICS_NAMESPACE", "EC2SpotInterruptions"),
		MetricsLogGroup:  getenv("METRICS_LOG_GROUP", "EC2SpotInterruptions"),
	}
}

// Validate checks the settings the given handler depends on
func (c *Config) Validate(handler string) error {
	var errs []error
	if c.RetentionDays <= 0 {
		errs = append(errs, fmt.Errorf("INSTANCE_METADATA_ITEM_RETENTION_DAYS must be positive, got %d", c.RetentionDays))
	}

	switch handler {
	case HandlerEvents:
		errs = append(errs, required("INSTANCE_METADATA_TABLE", c.InstanceTable))
	case HandlerStream:
		errs = append(errs,
			required("INSTANCE_METADATA_TABLE", c.InstanceTable),
			required("DISPATCH_LEDGER_TABLE", c.LedgerTable),
			required("DATA_SINK_STATE_MACHINE_ARN", c.StateMachineARN),
		)
		if c.ClaimTTL <= 0 {
			errs = append(errs, fmt.Errorf("DISPATCH_CLAIM_TTL must be positive, got %s", c.ClaimTTL))
		}
	case HandlerArchive:
		switch c.ArchiveSink {
		case SinkFirehose:
			errs = append(errs, required("INSTANCE_METADATA_STREAM", c.ArchiveStream))
		case SinkS3:
			errs = append(errs, required("ARCHIVE_BUCKET", c.ArchiveBucket))
		default:
			errs = append(errs, fmt.Errorf("ARCHIVE_SINK must be %q or %q, got %q", SinkFirehose, SinkS3, c.ArchiveSink))
		}
		switch c.MetricsBackend {
		case MetricsEMF, MetricsCloudWatch:
		case MetricsLogs:
			errs = append(errs, required("METRICS_LOG_GROUP", c.MetricsLogGroup))
		default:
			errs = append(errs, fmt.Errorf("METRICS_BACKEND must be one of %q, %q, %q, got %q",
				MetricsEMF, MetricsLogs, MetricsCloudWatch, c.MetricsBackend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown handler %q", handler))
	}
	return errors.Join(errs...)
}

func required(key, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", key)
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
