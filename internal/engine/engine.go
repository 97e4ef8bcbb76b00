// Package engine runs the whole lifecycle pipeline in one process against
// the in-memory store. The store change feed stands in for the DynamoDB
// stream and failed changes are redelivered a bounded number of times.
package engine

import (
	"context"
	"errors"

	"github.com/aws/aws-lambda-go/events"
	"github.com/younsl/lifecycled/internal/lifecycle"
	"github.com/younsl/lifecycled/internal/models"
	"go.uber.org/zap"
)

// DefaultMaxRedeliveries bounds how often a failed change is redelivered
const DefaultMaxRedeliveries = 3

// Feed is a drainable store change feed
type Feed interface {
	Drain() []models.ChangeNotification
}

// Summary accumulates the outcome of ingested events
type Summary struct {
	Events     int
	Applied    int
	Skipped    int
	Stale      int
	Rejected   []error
	Enriched   int
	Dispatched []lifecycle.Dispatch
	// Failures are changes that still failed after every redelivery
	Failures []lifecycle.Failure
}

// Engine wires the normalizer, aggregator and stream processor together
type Engine struct {
	normalizer      *lifecycle.Normalizer
	aggregator      *lifecycle.Aggregator
	processor       *lifecycle.StreamProcessor
	feed            Feed
	logger          *zap.Logger
	maxRedeliveries int
}

// Option configures an Engine
type Option func(*Engine)

// WithMaxRedeliveries overrides DefaultMaxRedeliveries. Zero or less
// reports a failed change without redelivering it.
func WithMaxRedeliveries(n int) Option {
	return func(e *Engine) { e.maxRedeliveries = max(n, 0) }
}

// New creates an Engine. feed must be the change feed of the store the
// aggregator writes to.
func New(normalizer *lifecycle.Normalizer, aggregator *lifecycle.Aggregator, processor *lifecycle.StreamProcessor, feed Feed, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		normalizer:      normalizer,
		aggregator:      aggregator,
		processor:       processor,
		feed:            feed,
		logger:          logger,
		maxRedeliveries: DefaultMaxRedeliveries,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ingest applies one source event and settles the change feed. Rejected
// events are recorded in the summary and are not an error; store write
// failures are returned.
func (e *Engine) Ingest(ctx context.Context, ev events.CloudWatchEvent, sum *Summary) error {
	sum.Events++

	u, err := e.normalizer.Normalize(ev)
	if err != nil {
		e.logger.Warn("event_rejected", zap.String("detail_type", ev.DetailType), zap.Error(err))
		sum.Rejected = append(sum.Rejected, err)
		return nil
	}

	out, err := e.aggregator.Apply(ctx, u)
	if err != nil {
		return err
	}
	switch {
	case out.Skipped:
		sum.Skipped++
	case out.Stale:
		sum.Stale++
		sum.Applied++
	default:
		sum.Applied++
	}

	return e.Settle(ctx, sum)
}

// Replay ingests events in order
func (e *Engine) Replay(ctx context.Context, evs []events.CloudWatchEvent) (Summary, error) {
	var sum Summary
	var errs []error
	for _, ev := range evs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := e.Ingest(ctx, ev, &sum); err != nil {
			e.logger.Error("event_apply_failed", zap.String("detail_type", ev.DetailType), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return sum, errors.Join(errs...)
}

// Settle processes the change feed until it is empty. Enrichment writes
// produce further changes, which are processed in the same call.
func (e *Engine) Settle(ctx context.Context, sum *Summary) error {
	attempts := make(map[string]int)
	var retry []models.ChangeNotification

	for {
		batch := append(retry, e.feed.Drain()...)
		retry = nil
		if len(batch) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		res := e.processor.ProcessBatch(ctx, batch)
		sum.Enriched += res.Enriched
		sum.Dispatched = append(sum.Dispatched, res.Dispatched...)

		for _, f := range res.Failures {
			attempts[f.Change.SequenceNumber]++
			if attempts[f.Change.SequenceNumber] > e.maxRedeliveries {
				e.logger.Error("change_redelivery_exhausted",
					zap.String("sequence_number", f.Change.SequenceNumber),
					zap.String("instance_id", f.Change.InstanceID),
					zap.Error(f.Err),
				)
				sum.Failures = append(sum.Failures, f)
				continue
			}
			retry = append(retry, f.Change)
		}
	}
}
