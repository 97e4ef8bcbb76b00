// Package memstore is an in-memory record store and dispatch ledger built
// on go-memdb. Write transactions are serialized, which gives the same
// per-key atomicity as the DynamoDB adapters. The record store keeps a
// change feed shaped like a DynamoDB stream.
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/hashicorp/go-memdb"
	"github.com/younsl/lifecycled/internal/models"
)

const (
	tableRecords = "records"
	tableLedger  = "ledger"
	indexID      = "id"
)

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableRecords: {
				Name: tableRecords,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "InstanceID"},
					},
				},
			},
			tableLedger: {
				Name: tableLedger,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "DedupeKey"},
					},
				},
			},
		},
	}
}

// Store is an in-memory record store
type Store struct {
	db *memdb.MemDB

	mu   sync.Mutex
	seq  uint64
	feed []models.ChangeNotification
}

// NewStore creates an empty Store
func NewStore() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("error creating memdb: %w", err)
	}
	return &Store{db: db}, nil
}

// UpsertFields merges patch into the record of instanceID in one write
// transaction. Writes that leave the record unchanged emit no change.
func (s *Store) UpsertFields(ctx context.Context, instanceID string, patch models.RecordPatch, cond *models.UpsertCondition) (models.UpsertResult, error) {
	if err := ctx.Err(); err != nil {
		return models.UpsertResult{}, err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableRecords, indexID, instanceID)
	if err != nil {
		return models.UpsertResult{}, fmt.Errorf("error reading record %s: %w", instanceID, err)
	}

	var old *models.InstanceRecord
	rec := models.InstanceRecord{InstanceID: instanceID}
	if raw != nil {
		prev := raw.(*models.InstanceRecord).Clone()
		old = &prev
		rec = prev.Clone()
	}

	if cond != nil && rec.LastEventTime != "" && rec.LastEventTime > cond.NotNewerThan {
		return models.UpsertResult{}, models.ErrConditionFailed
	}

	patch.Apply(&rec)
	if old != nil && reflect.DeepEqual(*old, rec) {
		return models.UpsertResult{Record: rec}, nil
	}

	stored := rec.Clone()
	if err := txn.Insert(tableRecords, &stored); err != nil {
		return models.UpsertResult{}, fmt.Errorf("error writing record %s: %w", instanceID, err)
	}

	// The feed is appended while the write lock is held so its order
	// matches commit order
	change := models.ChangeNotification{
		Kind:       models.ChangeModify,
		InstanceID: instanceID,
		OldImage:   old,
		NewImage:   ptrTo(rec.Clone()),
	}
	if old == nil {
		change.Kind = models.ChangeInsert
	}
	s.publish(change)
	txn.Commit()

	return models.UpsertResult{Record: rec, Inserted: old == nil}, nil
}

// Lookup returns the record of instanceID
func (s *Store) Lookup(ctx context.Context, instanceID string) (models.InstanceRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.InstanceRecord{}, false, err
	}
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableRecords, indexID, instanceID)
	if err != nil {
		return models.InstanceRecord{}, false, fmt.Errorf("error reading record %s: %w", instanceID, err)
	}
	if raw == nil {
		return models.InstanceRecord{}, false, nil
	}
	return raw.(*models.InstanceRecord).Clone(), true, nil
}

// Records returns every record ordered by instance id
func (s *Store) Records() ([]models.InstanceRecord, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableRecords, indexID)
	if err != nil {
		return nil, fmt.Errorf("error listing records: %w", err)
	}
	var records []models.InstanceRecord
	for obj := it.Next(); obj != nil; obj = it.Next() {
		records = append(records, obj.(*models.InstanceRecord).Clone())
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].InstanceID < records[j].InstanceID
	})
	return records, nil
}

// Drain removes and returns the pending change notifications in commit order
func (s *Store) Drain() []models.ChangeNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	feed := s.feed
	s.feed = nil
	return feed
}

// Pending returns the number of undrained change notifications
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.feed)
}

func (s *Store) publish(c models.ChangeNotification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	c.SequenceNumber = fmt.Sprintf("%021d", s.seq)
	s.feed = append(s.feed, c)
}

func ptrTo[T any](v T) *T {
	return &v
}
