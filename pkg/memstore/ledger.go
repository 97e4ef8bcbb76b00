package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-memdb"
	"github.com/younsl/lifecycled/internal/lifecycle"
	"github.com/younsl/lifecycled/internal/models"
)

// Ledger is an in-memory dispatch ledger
type Ledger struct {
	db  *memdb.MemDB
	now func() time.Time
}

// NewLedger creates an empty Ledger
func NewLedger() (*Ledger, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("error creating memdb: %w", err)
	}
	return &Ledger{db: db, now: time.Now}, nil
}

// Claim reserves key unless it was dispatched or is held by a pending
// claim younger than ttl
func (l *Ledger) Claim(ctx context.Context, key lifecycle.DedupeKey, now time.Time, ttl time.Duration) (lifecycle.ClaimResult, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	txn := l.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableLedger, indexID, key.String())
	if err != nil {
		return 0, fmt.Errorf("error reading ledger entry %s: %w", key, err)
	}
	if raw != nil {
		entry := raw.(*models.DispatchEntry)
		if entry.Status == models.DispatchDispatched {
			return lifecycle.ClaimDispatched, nil
		}
		if entry.ClaimedAt > now.Add(-ttl).Unix() {
			return lifecycle.ClaimPending, nil
		}
	}

	entry := &models.DispatchEntry{
		DedupeKey:  key.String(),
		InstanceID: key.InstanceID,
		EventType:  key.EventType,
		EventTime:  key.EventTime,
		Status:     models.DispatchPending,
		ClaimedAt:  now.Unix(),
	}
	if err := txn.Insert(tableLedger, entry); err != nil {
		return 0, fmt.Errorf("error writing ledger entry %s: %w", key, err)
	}
	txn.Commit()
	return lifecycle.ClaimAcquired, nil
}

// Complete marks key dispatched
func (l *Ledger) Complete(ctx context.Context, key lifecycle.DedupeKey, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := l.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableLedger, indexID, key.String())
	if err != nil {
		return fmt.Errorf("error reading ledger entry %s: %w", key, err)
	}
	now := l.now().Unix()
	entry := &models.DispatchEntry{
		DedupeKey:  key.String(),
		InstanceID: key.InstanceID,
		EventType:  key.EventType,
		EventTime:  key.EventTime,
		ClaimedAt:  now,
	}
	if raw != nil {
		prev := *raw.(*models.DispatchEntry)
		entry = &prev
	}
	entry.Status = models.DispatchDispatched
	entry.Handle = handle
	entry.DispatchedAt = now

	if err := txn.Insert(tableLedger, entry); err != nil {
		return fmt.Errorf("error writing ledger entry %s: %w", key, err)
	}
	txn.Commit()
	return nil
}

// Release drops a pending claim. Dispatched entries are kept.
func (l *Ledger) Release(ctx context.Context, key lifecycle.DedupeKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := l.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableLedger, indexID, key.String())
	if err != nil {
		return fmt.Errorf("error reading ledger entry %s: %w", key, err)
	}
	if raw == nil || raw.(*models.DispatchEntry).Status != models.DispatchPending {
		return nil
	}
	if err := txn.Delete(tableLedger, raw); err != nil {
		return fmt.Errorf("error deleting ledger entry %s: %w", key, err)
	}
	txn.Commit()
	return nil
}

// Entries returns every ledger entry ordered by claim time
func (l *Ledger) Entries() ([]models.DispatchEntry, error) {
	txn := l.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableLedger, indexID)
	if err != nil {
		return nil, fmt.Errorf("error listing ledger entries: %w", err)
	}
	var entries []models.DispatchEntry
	for obj := it.Next(); obj != nil; obj = it.Next() {
		entries = append(entries, *obj.(*models.DispatchEntry))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ClaimedAt != entries[j].ClaimedAt {
			return entries[i].ClaimedAt < entries[j].ClaimedAt
		}
		return entries[i].DedupeKey < entries[j].DedupeKey
	})
	return entries, nil
}
