package models

import "errors"

// ChangeKind is the operation reported by the record store change feed
type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeModify ChangeKind = "MODIFY"
	ChangeRemove ChangeKind = "REMOVE"
)

// ChangeNotification is one entry of the store change feed.
// OldImage is nil for inserts, NewImage is nil for removals.
type ChangeNotification struct {
	Kind           ChangeKind
	SequenceNumber string
	InstanceID     string
	OldImage       *InstanceRecord
	NewImage       *InstanceRecord
}

// UpsertCondition guards an upsert on the stored LastEventTime.
// The write is applied when the stored value is absent or not newer
// than NotNewerThan.
type UpsertCondition struct {
	NotNewerThan string
}

// UpsertResult is the post-write image of a field-scoped upsert
type UpsertResult struct {
	Record   InstanceRecord
	Inserted bool
}

// Store level errors shared by record store implementations
var (
	// ErrConditionFailed means an UpsertCondition rejected the write
	ErrConditionFailed = errors.New("condition check failed")
)
