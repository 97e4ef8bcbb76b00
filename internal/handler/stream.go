package handler

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/younsl/lifecycled/internal/lifecycle"
	"github.com/younsl/lifecycled/internal/models"
	awsclient "github.com/younsl/lifecycled/pkg/aws"
	"go.uber.org/zap"
)

// StreamHandler consumes the instance table stream
type StreamHandler struct {
	processor *lifecycle.StreamProcessor
	logger    *zap.Logger
}

// NewStreamHandler creates a StreamHandler
func NewStreamHandler(processor *lifecycle.StreamProcessor, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{processor: processor, logger: logger}
}

// Handle processes one stream batch and reports failed records by
// sequence number so only those are redelivered
func (h *StreamHandler) Handle(ctx context.Context, ev events.DynamoDBEvent) (events.DynamoDBEventResponse, error) {
	changes := make([]models.ChangeNotification, 0, len(ev.Records))
	for _, r := range ev.Records {
		change, err := awsclient.ChangeFromStreamRecord(r)
		if err != nil {
			h.logger.Warn("stream_record_rejected",
				zap.String("event_id", r.EventID),
				zap.String("sequence_number", r.Change.SequenceNumber),
				zap.Error(err),
			)
			continue
		}
		changes = append(changes, change)
	}

	res := h.processor.ProcessBatch(ctx, changes)

	var resp events.DynamoDBEventResponse
	reported := make(map[string]bool)
	for _, f := range res.Failures {
		seq := f.Change.SequenceNumber
		if reported[seq] {
			continue
		}
		reported[seq] = true
		resp.BatchItemFailures = append(resp.BatchItemFailures, events.DynamoDBBatchItemFailure{ItemIdentifier: seq})
	}

	h.logger.Info("stream_batch_processed",
		zap.Int("records", len(ev.Records)),
		zap.Int("skipped", res.Skipped),
		zap.Int("enriched", res.Enriched),
		zap.Int("dispatched", len(res.Dispatched)),
		zap.Int("failed", len(resp.BatchItemFailures)),
	)
	return resp, nil
}
