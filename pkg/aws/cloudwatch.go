package aws

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// CloudWatchAPI is the subset of the CloudWatch client used by CloudWatchMetrics
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics emits counters with PutMetricData. Properties have no
// place in a metric datum and are dropped.
type CloudWatchMetrics struct {
	client CloudWatchAPI
	now    func() time.Time
}

// NewCloudWatchMetrics creates a CloudWatchMetrics
func NewCloudWatchMetrics(client CloudWatchAPI) *CloudWatchMetrics {
	return &CloudWatchMetrics{client: client, now: time.Now}
}

// NewCloudWatchMetricsFromConfig creates a CloudWatchMetrics with a new client
func NewCloudWatchMetricsFromConfig(cfg aws.Config) *CloudWatchMetrics {
	return NewCloudWatchMetrics(cloudwatch.NewFromConfig(cfg))
}

// EmitCounter puts one datum with unit Count
func (m *CloudWatchMetrics) EmitCounter(ctx context.Context, namespace string, dims map[string]string, name string, value float64, _ map[string]string) error {
	dimensions := make([]types.Dimension, 0, len(dims))
	for k, v := range dims {
		dimensions = append(dimensions, types.Dimension{Name: aws.String(k), Value: aws.String(v)})
	}
	sort.Slice(dimensions, func(i, j int) bool {
		return aws.ToString(dimensions[i].Name) < aws.ToString(dimensions[j].Name)
	})

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(namespace),
		MetricData: []types.MetricDatum{{
			MetricName: aws.String(name),
			Dimensions: dimensions,
			Value:      aws.Float64(value),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(m.now()),
		}},
	})
	if err != nil {
		return fmt.Errorf("error putting metric data to %s: %w", namespace, err)
	}
	return nil
}
