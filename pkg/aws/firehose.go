package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/firehose"
	"github.com/aws/aws-sdk-go-v2/service/firehose/types"
)

// FirehoseAPI is the subset of the Firehose client used by FirehoseSink
type FirehoseAPI interface {
	PutRecord(ctx context.Context, params *firehose.PutRecordInput, optFns ...func(*firehose.Options)) (*firehose.PutRecordOutput, error)
}

// FirehoseSink appends payloads to a Firehose delivery stream
type FirehoseSink struct {
	client FirehoseAPI
}

// NewFirehoseSink creates a FirehoseSink
func NewFirehoseSink(client FirehoseAPI) *FirehoseSink {
	return &FirehoseSink{client: client}
}

// NewFirehoseSinkFromConfig creates a FirehoseSink with a new client
func NewFirehoseSinkFromConfig(cfg aws.Config) *FirehoseSink {
	return NewFirehoseSink(firehose.NewFromConfig(cfg))
}

// Append puts payload as one record on streamID
func (s *FirehoseSink) Append(ctx context.Context, streamID string, payload []byte) error {
	_, err := s.client.PutRecord(ctx, &firehose.PutRecordInput{
		DeliveryStreamName: aws.String(streamID),
		Record:             &types.Record{Data: payload},
	})
	if err != nil {
		return fmt.Errorf("error putting record to %s: %w", streamID, err)
	}
	return nil
}
