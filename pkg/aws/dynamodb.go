package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/younsl/lifecycled/internal/models"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the adapters
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Attribute names of the instance metadata table
const (
	attrInstanceID        = "InstanceId"
	attrLastEventTime     = "LastEventTime"
	attrFirstObservedTime = "FirstObservedTime"
	attrObservationID     = "ObservationId"
)

// RecordStore stores instance records in a DynamoDB table keyed by InstanceId
type RecordStore struct {
	client DynamoDBAPI
	table  string
}

// NewRecordStore creates a RecordStore over table
func NewRecordStore(client DynamoDBAPI, table string) *RecordStore {
	return &RecordStore{client: client, table: table}
}

// NewRecordStoreFromConfig creates a RecordStore with a new DynamoDB client
func NewRecordStoreFromConfig(cfg aws.Config, table string) *RecordStore {
	return NewRecordStore(dynamodb.NewFromConfig(cfg), table)
}

// UpsertFields applies patch with one UpdateItem call and returns the
// post-write image. A failed cond maps to models.ErrConditionFailed.
func (s *RecordStore) UpsertFields(ctx context.Context, instanceID string, patch models.RecordPatch, cond *models.UpsertCondition) (models.UpsertResult, error) {
	update, ok := updateFor(patch)
	if !ok {
		return models.UpsertResult{}, fmt.Errorf("empty patch for instance %s", instanceID)
	}

	builder := expression.NewBuilder().WithUpdate(update)
	if cond != nil {
		last := expression.Name(attrLastEventTime)
		builder = builder.WithCondition(expression.AttributeNotExists(last).
			Or(last.LessThanEqual(expression.Value(cond.NotNewerThan))))
	}
	expr, err := builder.Build()
	if err != nil {
		return models.UpsertResult{}, fmt.Errorf("error building update for instance %s: %w", instanceID, err)
	}

	key, err := attributevalue.MarshalMap(map[string]string{attrInstanceID: instanceID})
	if err != nil {
		return models.UpsertResult{}, fmt.Errorf("error encoding key for instance %s: %w", instanceID, err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return models.UpsertResult{}, models.ErrConditionFailed
		}
		return models.UpsertResult{}, fmt.Errorf("error updating instance %s in %s: %w", instanceID, s.table, err)
	}

	var rec models.InstanceRecord
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return models.UpsertResult{}, fmt.Errorf("error decoding instance %s: %w", instanceID, err)
	}

	// The observation token is only written by the call that created the item
	inserted := patch.ObservationID != nil && rec.ObservationID == *patch.ObservationID
	return models.UpsertResult{Record: rec, Inserted: inserted}, nil
}

// Lookup reads the record of instanceID with a consistent read
func (s *RecordStore) Lookup(ctx context.Context, instanceID string) (models.InstanceRecord, bool, error) {
	key, err := attributevalue.MarshalMap(map[string]string{attrInstanceID: instanceID})
	if err != nil {
		return models.InstanceRecord{}, false, fmt.Errorf("error encoding key for instance %s: %w", instanceID, err)
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return models.InstanceRecord{}, false, fmt.Errorf("error reading instance %s from %s: %w", instanceID, s.table, err)
	}
	if len(out.Item) == 0 {
		return models.InstanceRecord{}, false, nil
	}

	var rec models.InstanceRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return models.InstanceRecord{}, false, fmt.Errorf("error decoding instance %s: %w", instanceID, err)
	}
	return rec, true, nil
}

// updateFor translates a patch into SET clauses. Write-once fields use
// if_not_exists.
func updateFor(p models.RecordPatch) (expression.UpdateBuilder, bool) {
	var (
		update expression.UpdateBuilder
		n      int
	)
	set := func(name string, value any) {
		update = update.Set(expression.Name(name), expression.Value(value))
		n++
	}
	setOnce := func(name string, value any) {
		update = update.Set(expression.Name(name), expression.IfNotExists(expression.Name(name), expression.Value(value)))
		n++
	}

	if p.Region != nil {
		set("Region", *p.Region)
	}
	if p.AvailabilityZone != nil {
		set("AvailabilityZone", *p.AvailabilityZone)
	}
	if p.InstanceType != nil {
		set("InstanceType", *p.InstanceType)
	}
	if p.InstanceLifecycle != nil {
		set("InstanceLifecycle", *p.InstanceLifecycle)
	}
	if p.Tags != nil {
		tags := *p.Tags
		if tags == nil {
			tags = []models.Tag{}
		}
		set("Tags", tags)
	}
	if p.MetadataEnriched != nil {
		set("InstanceMetadataEnriched", *p.MetadataEnriched)
	}
	if p.LastEventTime != nil {
		set(attrLastEventTime, *p.LastEventTime)
	}
	if p.LastEventType != nil {
		set("LastEventType", string(*p.LastEventType))
	}
	if p.State != nil {
		set("State", string(*p.State))
	}
	if p.LaunchedTime != nil {
		set("LaunchedTime", *p.LaunchedTime)
	}
	if p.TerminatedTime != nil {
		set("TerminatedTime", *p.TerminatedTime)
	}
	if p.SpotInstanceRequestID != nil {
		set("SpotInstanceRequestId", *p.SpotInstanceRequestID)
	}
	if p.Interrupted != nil {
		set("Interrupted", *p.Interrupted)
	}
	if p.InterruptedInstanceAction != nil {
		set("InterruptedInstanceAction", *p.InterruptedInstanceAction)
	}
	if p.InterruptionTime != nil {
		set("InterruptionTime", *p.InterruptionTime)
	}
	if p.ExpirationTime != nil {
		set("ExpirationTime", *p.ExpirationTime)
	}
	if p.FirstObservedTime != nil {
		setOnce(attrFirstObservedTime, *p.FirstObservedTime)
	}
	if p.ObservationID != nil {
		setOnce(attrObservationID, *p.ObservationID)
	}
	return update, n > 0
}
