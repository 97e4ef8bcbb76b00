// Package archive runs the terminal archival pipeline for a record:
// metrics emission followed by a durable sink write.
package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/younsl/lifecycled/internal/lifecycle"
	"github.com/younsl/lifecycled/internal/models"
	"go.uber.org/zap"
)

// Defaults used when the pipeline is built without overrides
const (
	DefaultNamespace = "EC2SpotInterruptions"
	MetricName       = "Interruptions"
)

// MetricsSink emits one counter data point
type MetricsSink interface {
	EmitCounter(ctx context.Context, namespace string, dims map[string]string, name string, value float64, props map[string]string) error
}

// StreamSink appends one payload to an archival stream
type StreamSink interface {
	Append(ctx context.Context, streamID string, payload []byte) error
}

// Report is the per-stage outcome of one pipeline run
type Report struct {
	InstanceID     string
	MetricsEmitted int
	MetricErrors   []error
	Archived       bool
}

// Pipeline archives records
type Pipeline struct {
	metrics   MetricsSink
	sink      StreamSink
	breaker   CircuitBreaker
	namespace string
	streamID  string
	logger    *zap.Logger
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithNamespace sets the metrics namespace
func WithNamespace(ns string) PipelineOption {
	return func(p *Pipeline) {
		if ns != "" {
			p.namespace = ns
		}
	}
}

// WithBreaker wraps metrics emission in cb
func WithBreaker(cb CircuitBreaker) PipelineOption {
	return func(p *Pipeline) { p.breaker = cb }
}

// NewPipeline creates a Pipeline that writes to streamID
func NewPipeline(metrics MetricsSink, sink StreamSink, streamID string, logger *zap.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		metrics:   metrics,
		sink:      sink,
		breaker:   NoopBreaker(),
		namespace: DefaultNamespace,
		streamID:  streamID,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run emits the interruption metrics for rec and appends it to the
// archival stream. Metric failures are logged and reported; a sink
// failure is returned.
func (p *Pipeline) Run(ctx context.Context, rec models.InstanceRecord) (Report, error) {
	report := Report{InstanceID: rec.InstanceID}
	eventKind := string(rec.LastEventType)

	props := Properties(rec)
	for _, dims := range Dimensions(rec) {
		err := p.breaker.Execute(func() error {
			return p.metrics.EmitCounter(ctx, p.namespace, dims, MetricName, 1, props)
		})
		if err != nil {
			merr := lifecycle.NewError(lifecycle.ErrMetricsEmission, rec.InstanceID, eventKind, rec.LastEventTime, err)
			p.logger.Warn("metric_emission_failed",
				zap.String("instance_id", rec.InstanceID),
				zap.Any("dimensions", dims),
				zap.Error(err),
			)
			report.MetricErrors = append(report.MetricErrors, merr)
			continue
		}
		report.MetricsEmitted++
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return report, lifecycle.NewError(lifecycle.ErrSinkWrite, rec.InstanceID, eventKind, rec.LastEventTime,
			fmt.Errorf("error encoding record: %w", err))
	}
	payload = append(payload, '\n')
	if err := p.sink.Append(ctx, p.streamID, payload); err != nil {
		return report, lifecycle.NewError(lifecycle.ErrSinkWrite, rec.InstanceID, eventKind, rec.LastEventTime, err)
	}
	report.Archived = true

	p.logger.Info("record_archived",
		zap.String("instance_id", rec.InstanceID),
		zap.String("last_event_type", eventKind),
		zap.String("last_event_time", rec.LastEventTime),
		zap.Int("metrics_emitted", report.MetricsEmitted),
	)
	return report, nil
}

// Dimensions returns the dimension sets the interruption counter is
// emitted under
func Dimensions(rec models.InstanceRecord) []map[string]string {
	return []map[string]string{
		{"InstanceType": rec.InstanceType},
		{"AvailabilityZone": rec.AvailabilityZone},
	}
}

// Properties returns the searchable properties attached to each data
// point. Tags are flattened as key/value pairs.
func Properties(rec models.InstanceRecord) map[string]string {
	props := map[string]string{
		"Region":           rec.Region,
		"AvailabilityZone": rec.AvailabilityZone,
		"InstanceType":     rec.InstanceType,
	}
	for _, tag := range rec.Tags {
		if _, reserved := props[tag.Key]; reserved {
			continue
		}
		props[tag.Key] = tag.Value
	}
	return props
}
