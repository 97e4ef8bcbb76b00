package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/younsl/lifecycled/internal/models"
	"go.uber.org/zap"
)

// DefaultClaimTTL bounds how long a pending claim blocks redelivery
const DefaultClaimTTL = 5 * time.Minute

// Dispatch is the result of one dispatch attempt
type Dispatch struct {
	Key       DedupeKey
	Handle    string
	Duplicate bool
}

// Dispatcher starts the archival pipeline at most once per dedupe key
type Dispatcher struct {
	ledger   DispatchLedger
	starter  ArchivalStarter
	claimTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewDispatcher creates a Dispatcher. A zero claimTTL uses DefaultClaimTTL.
func NewDispatcher(ledger DispatchLedger, starter ArchivalStarter, claimTTL time.Duration, logger *zap.Logger) *Dispatcher {
	if claimTTL <= 0 {
		claimTTL = DefaultClaimTTL
	}
	return &Dispatcher{
		ledger:   ledger,
		starter:  starter,
		claimTTL: claimTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// Dispatch starts archival of rec unless its dedupe key was already
// dispatched. A failed start releases the claim and returns ErrDispatch
// so the triggering notification is redelivered. A key held by another
// pending claim also returns ErrDispatch: that claim's run may have died
// before starting, and the redelivery takes the key over once the claim
// is older than the claim ttl.
func (d *Dispatcher) Dispatch(ctx context.Context, rec models.InstanceRecord) (Dispatch, error) {
	key := KeyOf(rec)
	if !Archivable(rec) {
		return Dispatch{Key: key}, NewError(ErrDispatch, key.InstanceID, string(key.EventType), key.EventTime,
			fmt.Errorf("record is not archivable"))
	}

	claim, err := d.ledger.Claim(ctx, key, d.now(), d.claimTTL)
	if err != nil {
		return Dispatch{Key: key}, NewError(ErrDispatch, key.InstanceID, string(key.EventType), key.EventTime,
			fmt.Errorf("error claiming dedupe key: %w", err))
	}
	switch claim {
	case ClaimDispatched:
		d.logger.Info("dispatch_duplicate_skipped", zap.String("dedupe_key", key.String()))
		return Dispatch{Key: key, Duplicate: true}, nil
	case ClaimPending:
		d.logger.Warn("dispatch_claim_held",
			zap.String("dedupe_key", key.String()),
			zap.Duration("claim_ttl", d.claimTTL),
		)
		return Dispatch{Key: key}, NewError(ErrDispatch, key.InstanceID, string(key.EventType), key.EventTime,
			fmt.Errorf("dedupe key is held by a pending claim"))
	}

	handle, err := d.starter.StartArchival(ctx, key, rec)
	if err != nil {
		if relErr := d.ledger.Release(ctx, key); relErr != nil {
			d.logger.Warn("dispatch_claim_release_failed",
				zap.String("dedupe_key", key.String()),
				zap.Error(relErr),
			)
		}
		return Dispatch{Key: key}, NewError(ErrDispatch, key.InstanceID, string(key.EventType), key.EventTime,
			fmt.Errorf("error starting archival: %w", err))
	}

	// The run has started; a lost completion only leaves a claim that
	// expires, and the starter is idempotent on the key
	if err := d.ledger.Complete(ctx, key, handle); err != nil {
		d.logger.Warn("dispatch_complete_failed",
			zap.String("dedupe_key", key.String()),
			zap.Error(err),
		)
	}

	d.logger.Info("archival_dispatched",
		zap.String("dedupe_key", key.String()),
		zap.String("handle", handle),
	)
	return Dispatch{Key: key, Handle: handle}, nil
}
