package aws

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used by S3Sink
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink writes each payload as its own object. Keys are content
// addressed, so a payload repeated within a day overwrites its object.
type S3Sink struct {
	client S3API
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Sink creates an S3Sink writing under prefix in bucket
func NewS3Sink(client S3API, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// NewS3SinkFromConfig creates an S3Sink with a new client
func NewS3SinkFromConfig(cfg aws.Config, bucket, prefix string) *S3Sink {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return NewS3Sink(client, bucket, prefix)
}

// Append puts payload under <prefix>/<streamID>/<yyyy/mm/dd>/<sha256>.json
func (s *S3Sink) Append(ctx context.Context, streamID string, payload []byte) error {
	key := s.objectKey(streamID, payload)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("error putting object s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *S3Sink) objectKey(streamID string, payload []byte) string {
	sum := sha256.Sum256(payload)
	return path.Join(s.prefix, streamID, s.now().UTC().Format("2006/01/02"), hex.EncodeToString(sum[:])+".json")
}
