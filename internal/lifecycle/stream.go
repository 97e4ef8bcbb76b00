package lifecycle

import (
	"context"
	"errors"

	"github.com/younsl/lifecycled/internal/models"
	"go.uber.org/zap"
)

// Failure is a change notification that must be redelivered
type Failure struct {
	Change models.ChangeNotification
	Err    error
}

// BatchResult summarizes one processed change batch
type BatchResult struct {
	Skipped    int
	Enriched   int
	Dispatched []Dispatch
	Failures   []Failure
}

// Err joins the errors of every failure
func (r BatchResult) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

// StreamProcessor consumes the record store change feed. It enriches
// instances that are not yet enriched and dispatches archival for
// archivable post-write images.
type StreamProcessor struct {
	enricher   *Enricher
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewStreamProcessor creates a StreamProcessor
func NewStreamProcessor(enricher *Enricher, dispatcher *Dispatcher, logger *zap.Logger) *StreamProcessor {
	return &StreamProcessor{
		enricher:   enricher,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Applicable reports whether a change carries a post-write image to act on
func Applicable(c models.ChangeNotification) bool {
	if c.NewImage == nil {
		return false
	}
	return c.Kind == models.ChangeInsert || c.Kind == models.ChangeModify
}

// ProcessBatch handles one batch of change notifications
func (p *StreamProcessor) ProcessBatch(ctx context.Context, changes []models.ChangeNotification) BatchResult {
	var result BatchResult

	var active []models.ChangeNotification
	for _, c := range changes {
		if !Applicable(c) {
			result.Skipped++
			continue
		}
		active = append(active, c)
	}

	// Instances first observed, or whose earlier lookup failed, are
	// described together in one lookup
	var ids []string
	seen := make(map[string]bool)
	for _, c := range active {
		if c.NewImage.MetadataEnriched || seen[c.InstanceID] {
			continue
		}
		seen[c.InstanceID] = true
		ids = append(ids, c.InstanceID)
	}

	enriched, err := p.enricher.Enrich(ctx, ids)
	if err != nil {
		p.logger.Warn("enrichment_lookup_failed", zap.Strings("instance_ids", ids), zap.Error(err))
	}
	result.Enriched = len(enriched.Enriched)

	for _, c := range active {
		if werr, ok := enriched.WriteErrors[c.InstanceID]; ok {
			result.Failures = append(result.Failures, Failure{Change: c, Err: werr})
			continue
		}
		if !Archivable(*c.NewImage) {
			continue
		}
		d, err := p.dispatcher.Dispatch(ctx, *c.NewImage)
		if err != nil {
			p.logger.Error("dispatch_failed", zap.String("sequence_number", c.SequenceNumber), zap.Error(err))
			result.Failures = append(result.Failures, Failure{Change: c, Err: err})
			continue
		}
		if !d.Duplicate {
			result.Dispatched = append(result.Dispatched, d)
		}
	}

	return result
}
