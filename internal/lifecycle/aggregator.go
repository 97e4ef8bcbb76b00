package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/younsl/lifecycled/internal/models"
	"go.uber.org/zap"
)

// Outcome describes one applied update
type Outcome struct {
	Record   models.InstanceRecord
	Inserted bool
	// Stale is set when a newer event already owned the contended fields
	// and only the fields exclusive to this update were written
	Stale   bool
	Skipped bool
}

// Aggregator merges normalized updates into the per-instance record with
// field-scoped upserts. It holds no lock and never reads before writing.
type Aggregator struct {
	store      RecordStore
	staleGuard bool
	logger     *zap.Logger
	now        func() time.Time
	newToken   func() string
}

// AggregatorOption configures an Aggregator
type AggregatorOption func(*Aggregator)

// WithStaleGuard toggles the stale-event guard
func WithStaleGuard(enabled bool) AggregatorOption {
	return func(a *Aggregator) { a.staleGuard = enabled }
}

// WithClock overrides the clock used for FirstObservedTime
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an Aggregator over store
func NewAggregator(store RecordStore, logger *zap.Logger, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		store:      store,
		staleGuard: true,
		logger:     logger,
		now:        time.Now,
		newToken:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply writes the fields owned by u. Skip updates are not written.
func (a *Aggregator) Apply(ctx context.Context, u Update) (Outcome, error) {
	if _, ok := u.(Skip); ok {
		return Outcome{Skipped: true}, nil
	}

	patch := u.Patch()
	patch.FirstObservedTime = ptr(FormatEventTime(a.now()))
	patch.ObservationID = ptr(a.newToken())

	var cond *models.UpsertCondition
	if a.staleGuard && u.EventTime() != "" {
		cond = &models.UpsertCondition{NotNewerThan: u.EventTime()}
	}

	res, err := a.store.UpsertFields(ctx, u.InstanceID(), patch, cond)
	if err == nil {
		return Outcome{Record: res.Record, Inserted: res.Inserted}, nil
	}
	if cond == nil || !errors.Is(err, models.ErrConditionFailed) {
		return Outcome{}, NewError(ErrStoreWrite, u.InstanceID(), string(u.Kind()), u.EventTime(), err)
	}

	// A newer event already wrote the record: keep its contended fields
	a.logger.Info("stale_event_merged",
		zap.String("instance_id", u.InstanceID()),
		zap.String("kind", string(u.Kind())),
		zap.String("event_time", u.EventTime()),
	)
	res, err = a.store.UpsertFields(ctx, u.InstanceID(), patch.WithoutContended(), nil)
	if err != nil {
		return Outcome{}, NewError(ErrStoreWrite, u.InstanceID(), string(u.Kind()), u.EventTime(), err)
	}
	return Outcome{Record: res.Record, Inserted: res.Inserted, Stale: true}, nil
}

// Archivable reports whether a post-write image warrants archival
func Archivable(rec models.InstanceRecord) bool {
	if !rec.MetadataEnriched {
		return false
	}
	switch rec.LastEventType {
	case models.EventTypeStateChange, models.EventTypeSpotInterruption:
		return true
	}
	return false
}
