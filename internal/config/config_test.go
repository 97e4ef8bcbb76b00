package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"INSTANCE_METADATA_TABLE", "INSTANCE_METADATA_ITEM_RETENTION_DAYS", "STALE_EVENT_GUARD",
		"DISPATCH_CLAIM_TTL", "ARCHIVE_SINK", "METRICS_BACKEND", "DESCRIBE_RATE_LIMIT",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "InstanceMetadata", cfg.InstanceTable)
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.True(t, cfg.StaleGuard)
	assert.Equal(t, 5*time.Minute, cfg.ClaimTTL)
	assert.Equal(t, SinkFirehose, cfg.ArchiveSink)
	assert.Equal(t, MetricsEMF, cfg.MetricsBackend)
	assert.Equal(t, 10.0, cfg.DescribeRateLimit)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("INSTANCE_METADATA_ITEM_RETENTION_DAYS", "7")
	t.Setenv("STALE_EVENT_GUARD", "off")
	t.Setenv("DISPATCH_CLAIM_TTL", "90s")
	t.Setenv("ARCHIVE_SINK", "S3")
	t.Setenv("DESCRIBE_RATE_LIMIT", "not-a-number")

	cfg := Load()
	assert.Equal(t, 7, cfg.RetentionDays)
	assert.False(t, cfg.StaleGuard)
	assert.Equal(t, 90*time.Second, cfg.ClaimTTL)
	assert.Equal(t, SinkS3, cfg.ArchiveSink)
	assert.Equal(t, 10.0, cfg.DescribeRateLimit, "invalid values fall back to the default")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			InstanceTable:    "InstanceMetadata",
			RetentionDays:    30,
			LedgerTable:      "InstanceDispatchLedger",
			ClaimTTL:         time.Minute,
			StateMachineARN:  "arn:aws:states:us-east-1:123456789012:stateMachine:DataSink",
			ArchiveSink:      SinkFirehose,
			ArchiveStream:    "instance-metadata",
			MetricsBackend:   MetricsEMF,
			MetricsLogGroup:  "EC2SpotInterruptions",
			MetricsNamespace: "EC2SpotInterruptions",
		}
	}

	tests := []struct {
		name    string
		handler string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "events", handler: HandlerEvents},
		{name: "stream", handler: HandlerStream},
		{name: "archive", handler: HandlerArchive},
		{name: "stream needs state machine", handler: HandlerStream, mutate: func(c *Config) { c.StateMachineARN = "" }, wantErr: "DATA_SINK_STATE_MACHINE_ARN"},
		{name: "firehose sink needs stream", handler: HandlerArchive, mutate: func(c *Config) { c.ArchiveStream = "" }, wantErr: "INSTANCE_METADATA_STREAM"},
		{name: "s3 sink needs bucket", handler: HandlerArchive, mutate: func(c *Config) { c.ArchiveSink = SinkS3 }, wantErr: "ARCHIVE_BUCKET"},
		{name: "unknown sink", handler: HandlerArchive, mutate: func(c *Config) { c.ArchiveSink = "kafka" }, wantErr: "ARCHIVE_SINK"},
		{name: "unknown metrics backend", handler: HandlerArchive, mutate: func(c *Config) { c.MetricsBackend = "statsd" }, wantErr: "METRICS_BACKEND"},
		{name: "retention must be positive", handler: HandlerEvents, mutate: func(c *Config) { c.RetentionDays = 0 }, wantErr: "RETENTION_DAYS"},
		{name: "unknown handler", handler: "cron", wantErr: "unknown handler"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate(tt.handler)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
