package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/younsl/lifecycled/internal/lifecycle"
	"github.com/younsl/lifecycled/internal/models"
)

const (
	attrDedupeKey    = "DedupeKey"
	attrStatus       = "Status"
	attrClaimedAt    = "ClaimedAt"
	attrHandle       = "Handle"
	attrDispatchedAt = "DispatchedAt"
)

// DispatchLedger persists dedupe keys in a DynamoDB table keyed by DedupeKey
type DispatchLedger struct {
	client DynamoDBAPI
	table  string
	now    func() time.Time
}

// NewDispatchLedger creates a DispatchLedger over table
func NewDispatchLedger(client DynamoDBAPI, table string) *DispatchLedger {
	return &DispatchLedger{client: client, table: table, now: time.Now}
}

// NewDispatchLedgerFromConfig creates a DispatchLedger with a new DynamoDB client
func NewDispatchLedgerFromConfig(cfg aws.Config, table string) *DispatchLedger {
	return NewDispatchLedger(dynamodb.NewFromConfig(cfg), table)
}

// Claim writes a pending entry for key. The write is rejected when the key
// is dispatched or claimed by a run newer than ttl; the rejected item is
// returned by DynamoDB and tells the two apart.
func (l *DispatchLedger) Claim(ctx context.Context, key lifecycle.DedupeKey, now time.Time, ttl time.Duration) (lifecycle.ClaimResult, error) {
	item, err := attributevalue.MarshalMap(models.DispatchEntry{
		DedupeKey:  key.String(),
		InstanceID: key.InstanceID,
		EventType:  key.EventType,
		EventTime:  key.EventTime,
		Status:     models.DispatchPending,
		ClaimedAt:  now.Unix(),
	})
	if err != nil {
		return 0, fmt.Errorf("error encoding ledger entry %s: %w", key, err)
	}

	status := expression.Name(attrStatus)
	cond := expression.AttributeNotExists(expression.Name(attrDedupeKey)).Or(
		status.Equal(expression.Value(string(models.DispatchPending))).
			And(expression.Name(attrClaimedAt).LessThanEqual(expression.Value(now.Add(-ttl).Unix()))),
	)
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return 0, fmt.Errorf("error building claim condition: %w", err)
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(l.table),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),

		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return claimHeldBy(ccf.Item), nil
		}
		return 0, fmt.Errorf("error claiming %s in %s: %w", key, l.table, err)
	}
	return lifecycle.ClaimAcquired, nil
}

// claimHeldBy classifies the entry that rejected a claim. Without a
// readable entry the key is treated as pending so the caller retries.
func claimHeldBy(item map[string]types.AttributeValue) lifecycle.ClaimResult {
	var entry models.DispatchEntry
	if len(item) == 0 || attributevalue.UnmarshalMap(item, &entry) != nil {
		return lifecycle.ClaimPending
	}
	if entry.Status == models.DispatchDispatched {
		return lifecycle.ClaimDispatched
	}
	return lifecycle.ClaimPending
}

// Complete marks key dispatched with the execution handle
func (l *DispatchLedger) Complete(ctx context.Context, key lifecycle.DedupeKey, handle string) error {
	update := expression.Set(expression.Name(attrStatus), expression.Value(string(models.DispatchDispatched))).
		Set(expression.Name(attrHandle), expression.Value(handle)).
		Set(expression.Name(attrDispatchedAt), expression.Value(l.now().Unix()))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("error building ledger update: %w", err)
	}

	k, err := ledgerKey(key)
	if err != nil {
		return err
	}
	_, err = l.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(l.table),
		Key:                       k,
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("error completing %s in %s: %w", key, l.table, err)
	}
	return nil
}

// Release deletes the entry of key if it is still pending
func (l *DispatchLedger) Release(ctx context.Context, key lifecycle.DedupeKey) error {
	cond := expression.Name(attrStatus).Equal(expression.Value(string(models.DispatchPending)))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("error building release condition: %w", err)
	}

	k, err := ledgerKey(key)
	if err != nil {
		return err
	}
	_, err = l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(l.table),
		Key:                       k,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil
		}
		return fmt.Errorf("error releasing %s in %s: %w", key, l.table, err)
	}
	return nil
}

func ledgerKey(key lifecycle.DedupeKey) (map[string]types.AttributeValue, error) {
	k, err := attributevalue.MarshalMap(map[string]string{attrDedupeKey: key.String()})
	if err != nil {
		return nil, fmt.Errorf("error encoding ledger key %s: %w", key, err)
	}
	return k, nil
}
