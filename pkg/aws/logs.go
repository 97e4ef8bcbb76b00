package aws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// LogsAPI is the subset of the CloudWatch Logs client used by LogsMetrics
type LogsAPI interface {
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// LogsMetrics delivers EMF documents with PutLogEvents. It is used outside
// Lambda, where stdout is not collected by CloudWatch Logs.
type LogsMetrics struct {
	client    LogsAPI
	logGroup  string
	logStream string
	now       func() time.Time

	mu          sync.Mutex
	streamReady bool
}

// NewLogsMetrics creates a LogsMetrics writing to logGroup/logStream
func NewLogsMetrics(client LogsAPI, logGroup, logStream string) *LogsMetrics {
	return &LogsMetrics{client: client, logGroup: logGroup, logStream: logStream, now: time.Now}
}

// NewLogsMetricsFromConfig creates a LogsMetrics with a new client
func NewLogsMetricsFromConfig(cfg aws.Config, logGroup, logStream string) *LogsMetrics {
	return NewLogsMetrics(cloudwatchlogs.NewFromConfig(cfg), logGroup, logStream)
}

// EmitCounter puts one EMF log event
func (m *LogsMetrics) EmitCounter(ctx context.Context, namespace string, dims map[string]string, name string, value float64, props map[string]string) error {
	if err := m.ensureStream(ctx); err != nil {
		return err
	}

	at := m.now()
	doc, err := EncodeEMF(at, namespace, dims, name, value, props)
	if err != nil {
		return err
	}

	_, err = m.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(m.logGroup),
		LogStreamName: aws.String(m.logStream),
		LogEvents: []types.InputLogEvent{{
			Message:   aws.String(string(doc)),
			Timestamp: aws.Int64(at.UnixMilli()),
		}},
	}, cloudwatchlogs.WithAPIOptions(smithyhttp.AddHeaderValue("x-amzn-logs-format", "json/emf")))
	if err != nil {
		return fmt.Errorf("error putting log events to %s: %w", m.logGroup, err)
	}
	return nil
}

func (m *LogsMetrics) ensureStream(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.streamReady {
		return nil
	}

	_, err := m.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(m.logGroup),
		LogStreamName: aws.String(m.logStream),
	})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("error creating log stream %s/%s: %w", m.logGroup, m.logStream, err)
	}
	m.streamReady = true
	return nil
}
