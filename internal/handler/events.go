// Package handler holds the Lambda entry points: source events, the
// instance table stream and the archival task.
package handler

import (
	"context"
	"errors"

	"github.com/aws/aws-lambda-go/events"
	"github.com/younsl/lifecycled/internal/lifecycle"
	"go.uber.org/zap"
)

// EventsHandler merges EventBridge lifecycle events into the record store
type EventsHandler struct {
	normalizer *lifecycle.Normalizer
	aggregator *lifecycle.Aggregator
	logger     *zap.Logger
}

// NewEventsHandler creates an EventsHandler
func NewEventsHandler(normalizer *lifecycle.Normalizer, aggregator *lifecycle.Aggregator, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{normalizer: normalizer, aggregator: aggregator, logger: logger}
}

// Handle applies one event. Events that cannot be normalized are dropped
// since a retry cannot fix them. Store failures are returned so the
// invocation is retried.
func (h *EventsHandler) Handle(ctx context.Context, ev events.CloudWatchEvent) error {
	u, err := h.normalizer.Normalize(ev)
	if err != nil {
		h.logger.Warn("event_rejected",
			zap.String("event_id", ev.ID),
			zap.String("detail_type", ev.DetailType),
			zap.Error(err),
		)
		return nil
	}

	out, err := h.aggregator.Apply(ctx, u)
	if err != nil {
		var lerr *lifecycle.Error
		if errors.As(err, &lerr) {
			h.logger.Error("record_upsert_failed",
				zap.String("instance_id", lerr.InstanceID),
				zap.String("kind", lerr.EventKind),
				zap.String("event_time", lerr.EventTime),
				zap.Error(lerr.Err),
			)
		}
		return err
	}

	if out.Skipped {
		h.logger.Debug("event_skipped", zap.String("event_id", ev.ID), zap.String("instance_id", u.InstanceID()))
		return nil
	}
	h.logger.Info("record_updated",
		zap.String("instance_id", u.InstanceID()),
		zap.String("kind", string(u.Kind())),
		zap.String("event_time", u.EventTime()),
		zap.Bool("inserted", out.Inserted),
		zap.Bool("stale", out.Stale),
	)
	return nil
}
