package aws

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/younsl/lifecycled/internal/models"
)

func instance(id string, lifecycle types.InstanceLifecycleType) types.Instance {
	return types.Instance{
		InstanceId:        aws.String(id),
		InstanceType:      types.InstanceTypeM5Large,
		InstanceLifecycle: lifecycle,
		Placement:         &types.Placement{AvailabilityZone: aws.String("us-east-1a")},
		Tags: []types.Tag{
			{Key: aws.String("team"), Value: aws.String("data")},
			{Key: aws.String("Name"), Value: aws.String(id)},
		},
	}
}

// describeExisting answers like EC2: a call naming any missing id fails
func describeExisting(existing map[string]types.Instance) func(*ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error) {
	return func(in *ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error) {
		var found []types.Instance
		for _, id := range in.InstanceIds {
			inst, ok := existing[id]
			if !ok {
				return nil, &smithy.GenericAPIError{
					Code:    "InvalidInstanceID.NotFound",
					Message: fmt.Sprintf("The instance ID '%s' does not exist", id),
				}
			}
			found = append(found, inst)
		}
		return &ec2.DescribeInstancesOutput{
			Reservations: []types.Reservation{{Instances: found}},
		}, nil
	}
}

func TestDescribeByIDs(t *testing.T) {
	fake := &fakeEC2{Respond: describeExisting(map[string]types.Instance{
		"i-1": instance("i-1", types.InstanceLifecycleTypeSpot),
		"i-2": instance("i-2", ""),
	})}
	client := NewEC2Client(fake, 0)

	got, err := client.DescribeByIDs(context.Background(), []string{"i-1", "i-2"})
	require.NoError(t, err)
	require.Len(t, fake.Calls, 1)

	assert.Equal(t, models.InstanceDescription{
		InstanceID:        "i-1",
		InstanceType:      "m5.large",
		InstanceLifecycle: models.LifecycleSpot,
		AvailabilityZone:  "us-east-1a",
		Tags:              []models.Tag{{Key: "Name", Value: "i-1"}, {Key: "team", Value: "data"}},
	}, got["i-1"])
	assert.Equal(t, models.LifecycleOnDemand, got["i-2"].InstanceLifecycle)
}

func TestDescribeByIDsSkipsVanishedInstances(t *testing.T) {
	fake := &fakeEC2{Respond: describeExisting(map[string]types.Instance{
		"i-1": instance("i-1", types.InstanceLifecycleTypeSpot),
	})}
	client := NewEC2Client(fake, 100)

	got, err := client.DescribeByIDs(context.Background(), []string{"i-1", "i-gone"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "i-1")
	assert.Len(t, fake.Calls, 3, "one batch call then one call per id")
}

func TestDescribeByIDsChunks(t *testing.T) {
	existing := make(map[string]types.Instance)
	var ids []string
	for i := 0; i < describeChunkSize+1; i++ {
		id := fmt.Sprintf("i-%04d", i)
		ids = append(ids, id)
		existing[id] = instance(id, "")
	}
	fake := &fakeEC2{Respond: describeExisting(existing)}

	got, err := NewEC2Client(fake, 0).DescribeByIDs(context.Background(), ids)
	require.NoError(t, err)
	assert.Len(t, got, len(ids))
	require.Len(t, fake.Calls, 2)
	assert.Len(t, fake.Calls[0].InstanceIds, describeChunkSize)
	assert.Len(t, fake.Calls[1].InstanceIds, 1)
}

func TestDescribeByIDsPropagatesOtherErrors(t *testing.T) {
	fake := &fakeEC2{Respond: func(*ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error) {
		return nil, &smithy.GenericAPIError{Code: "RequestLimitExceeded"}
	}}
	_, err := NewEC2Client(fake, 0).DescribeByIDs(context.Background(), []string{"i-1"})
	require.Error(t, err)

	var apiErr smithy.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "RequestLimitExceeded", apiErr.ErrorCode())
}
