package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/younsl/lifecycled/internal/models"
	"github.com/younsl/lifecycled/pkg/utils"
	"golang.org/x/time/rate"
)

const (
	// describeChunkSize bounds the instance ids sent in one DescribeInstances call
	describeChunkSize = 200

	errCodeInstanceNotFound = "InvalidInstanceID.NotFound"
	errCodeMalformedID      = "InvalidInstanceID.Malformed"
)

// EC2API is the subset of the EC2 client used by EC2Client
type EC2API interface {
	ec2.DescribeInstancesAPIClient
}

// EC2Client describes instances for enrichment
type EC2Client struct {
	client  EC2API
	limiter *rate.Limiter
}

// NewEC2Client creates an EC2Client limited to rps DescribeInstances
// calls per second. A non-positive rps disables the limit.
func NewEC2Client(client EC2API, rps float64) *EC2Client {
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	return &EC2Client{client: client, limiter: rate.NewLimiter(limit, burst)}
}

// NewEC2ClientFromConfig creates an EC2Client with a new EC2 client
func NewEC2ClientFromConfig(cfg aws.Config, rps float64) *EC2Client {
	return NewEC2Client(ec2.NewFromConfig(cfg), rps)
}

// DescribeByIDs describes ids in chunks. When a chunk names an instance
// that no longer exists the chunk is retried one id at a time and the
// missing ids are left out of the result.
func (c *EC2Client) DescribeByIDs(ctx context.Context, ids []string) (map[string]models.InstanceDescription, error) {
	result := make(map[string]models.InstanceDescription, len(ids))

	for start := 0; start < len(ids); start += describeChunkSize {
		end := start + describeChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		err := c.describe(ctx, chunk, result)
		if err == nil {
			continue
		}
		if !isMissingInstance(err) {
			return nil, err
		}
		for _, id := range chunk {
			if err := c.describe(ctx, []string{id}, result); err != nil && !isMissingInstance(err) {
				return nil, err
			}
		}
	}
	return result, nil
}

func (c *EC2Client) describe(ctx context.Context, ids []string, into map[string]models.InstanceDescription) error {
	paginator := ec2.NewDescribeInstancesPaginator(c.client, &ec2.DescribeInstancesInput{
		InstanceIds: ids,
	})

	pageCount := 0
	for paginator.HasMorePages() {
		pageCount++
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("error waiting for describe rate limit: %w", err)
		}
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("error describing instances page %d: %w", pageCount, err)
		}
		for _, reservation := range output.Reservations {
			for _, instance := range reservation.Instances {
				desc := describeInstance(instance)
				into[desc.InstanceID] = desc
			}
		}
	}
	return nil
}

func describeInstance(instance types.Instance) models.InstanceDescription {
	lc := models.LifecycleOnDemand
	if instance.InstanceLifecycle != "" {
		lc = string(instance.InstanceLifecycle)
	}
	var az string
	if instance.Placement != nil {
		az = aws.ToString(instance.Placement.AvailabilityZone)
	}
	return models.InstanceDescription{
		InstanceID:        aws.ToString(instance.InstanceId),
		InstanceType:      string(instance.InstanceType),
		InstanceLifecycle: lc,
		AvailabilityZone:  az,
		Tags:              utils.ToTags(instance.Tags),
	}
}

func isMissingInstance(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case errCodeInstanceNotFound, errCodeMalformedID:
		return true
	}
	return false
}
