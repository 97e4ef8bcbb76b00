package lifecycle

import (
	"context"
	"time"

	"github.com/younsl/lifecycled/internal/models"
)

// RecordStore is a key-value store with server-side field-scoped upserts.
// Writes to one key are atomic; cond, when set, guards the whole write.
type RecordStore interface {
	UpsertFields(ctx context.Context, instanceID string, patch models.RecordPatch, cond *models.UpsertCondition) (models.UpsertResult, error)
	Lookup(ctx context.Context, instanceID string) (models.InstanceRecord, bool, error)
}

// DescriptionLookup describes instances by id. Ids that no longer exist
// are left out of the result.
type DescriptionLookup interface {
	DescribeByIDs(ctx context.Context, ids []string) (map[string]models.InstanceDescription, error)
}

// ClaimResult is the outcome of a ledger claim
type ClaimResult int

const (
	// ClaimAcquired means the caller holds the key and must start the run
	ClaimAcquired ClaimResult = iota
	// ClaimDispatched means a run for the key already started
	ClaimDispatched
	// ClaimPending means another claim younger than the ttl holds the key.
	// Its run may never start, so the caller must retry later.
	ClaimPending
)

func (r ClaimResult) String() string {
	switch r {
	case ClaimAcquired:
		return "acquired"
	case ClaimDispatched:
		return "dispatched"
	case ClaimPending:
		return "pending"
	}
	return "unknown"
}

// DispatchLedger persists dedupe keys of started archival runs
type DispatchLedger interface {
	// Claim reserves key. A pending claim older than ttl is taken over.
	Claim(ctx context.Context, key DedupeKey, now time.Time, ttl time.Duration) (ClaimResult, error)
	// Complete marks key dispatched with the execution handle
	Complete(ctx context.Context, key DedupeKey, handle string) error
	// Release drops a pending claim so the key can be claimed again
	Release(ctx context.Context, key DedupeKey) error
}

// ArchivalStarter starts the archival pipeline. Starting twice with the
// same key must not archive twice.
type ArchivalStarter interface {
	StartArchival(ctx context.Context, key DedupeKey, rec models.InstanceRecord) (string, error)
}
