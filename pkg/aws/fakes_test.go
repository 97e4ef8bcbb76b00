package aws

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/firehose"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
)

var errUnavailable = errors.New("service unavailable")

type fakeDynamoDB struct {
	mu      sync.Mutex
	Err     error
	Updates []*dynamodb.UpdateItemInput
	Puts    []*dynamodb.PutItemInput
	Deletes []*dynamodb.DeleteItemInput
	Gets    []*dynamodb.GetItemInput

	UpdateOut *dynamodb.UpdateItemOutput
	GetOut    *dynamodb.GetItemOutput
}

func (f *fakeDynamoDB) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Gets = append(f.Gets, in)
	if f.Err != nil {
		return nil, f.Err
	}
	if f.GetOut == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return f.GetOut, nil
}

func (f *fakeDynamoDB) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Puts = append(f.Puts, in)
	if f.Err != nil {
		return nil, f.Err
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamoDB) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Updates = append(f.Updates, in)
	if f.Err != nil {
		return nil, f.Err
	}
	if f.UpdateOut == nil {
		return &dynamodb.UpdateItemOutput{}, nil
	}
	return f.UpdateOut, nil
}

func (f *fakeDynamoDB) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deletes = append(f.Deletes, in)
	if f.Err != nil {
		return nil, f.Err
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

type fakeEC2 struct {
	// Respond returns the output for one call
	Respond func(in *ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error)
	Calls   []*ec2.DescribeInstancesInput
}

func (f *fakeEC2) DescribeInstances(_ context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	f.Calls = append(f.Calls, in)
	return f.Respond(in)
}

type fakeSFN struct {
	Err   error
	Calls []*sfn.StartExecutionInput
}

func (f *fakeSFN) StartExecution(_ context.Context, in *sfn.StartExecutionInput, _ ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error) {
	f.Calls = append(f.Calls, in)
	if f.Err != nil {
		return nil, f.Err
	}
	arn := "arn:aws:states:us-east-1:123456789012:execution:DataSink:" + *in.Name
	return &sfn.StartExecutionOutput{ExecutionArn: &arn}, nil
}

type fakeFirehose struct {
	Err   error
	Calls []*firehose.PutRecordInput
}

func (f *fakeFirehose) PutRecord(_ context.Context, in *firehose.PutRecordInput, _ ...func(*firehose.Options)) (*firehose.PutRecordOutput, error) {
	f.Calls = append(f.Calls, in)
	if f.Err != nil {
		return nil, f.Err
	}
	return &firehose.PutRecordOutput{}, nil
}

type fakeS3 struct {
	Err   error
	Calls []*s3.PutObjectInput
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.Calls = append(f.Calls, in)
	if f.Err != nil {
		return nil, f.Err
	}
	return &s3.PutObjectOutput{}, nil
}

type fakeLogs struct {
	CreateErr error
	PutErr    error
	Creates   []*cloudwatchlogs.CreateLogStreamInput
	Puts      []*cloudwatchlogs.PutLogEventsInput
}

func (f *fakeLogs) CreateLogStream(_ context.Context, in *cloudwatchlogs.CreateLogStreamInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	f.Creates = append(f.Creates, in)
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	return &cloudwatchlogs.CreateLogStreamOutput{}, nil
}

func (f *fakeLogs) PutLogEvents(_ context.Context, in *cloudwatchlogs.PutLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	f.Puts = append(f.Puts, in)
	if f.PutErr != nil {
		return nil, f.PutErr
	}
	return &cloudwatchlogs.PutLogEventsOutput{}, nil
}

type fakeCloudWatch struct {
	Err   error
	Calls []*cloudwatch.PutMetricDataInput
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.Calls = append(f.Calls, in)
	if f.Err != nil {
		return nil, f.Err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

type fakeIMDS struct {
	Region string
	Err    error
}

func (f *fakeIMDS) GetRegion(context.Context, *imds.GetRegionInput, ...func(*imds.Options)) (*imds.GetRegionOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return &imds.GetRegionOutput{Region: f.Region}, nil
}
