package aws

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sfn/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/younsl/lifecycled/internal/lifecycle"
	"github.com/younsl/lifecycled/internal/models"
)

func TestStepFunctionsStarter(t *testing.T) {
	rec := models.InstanceRecord{
		InstanceID:       "i-1",
		MetadataEnriched: true,
		LastEventType:    models.EventTypeStateChange,
		LastEventTime:    "2024-03-01T11:00:00Z",
	}
	key := lifecycle.KeyOf(rec)

	fake := &fakeSFN{}
	starter := NewStepFunctionsStarter(fake, "arn:aws:states:us-east-1:123456789012:stateMachine:DataSink")

	handle, err := starter.StartArchival(context.Background(), key, rec)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(handle, key.ExecutionName()))

	require.Len(t, fake.Calls, 1)
	assert.Equal(t, key.ExecutionName(), *fake.Calls[0].Name)
	var task models.ArchivalTask
	require.NoError(t, json.Unmarshal([]byte(*fake.Calls[0].Input), &task))
	assert.Equal(t, rec, task.Instance)

	fake.Err = &types.ExecutionAlreadyExists{}
	handle, err = starter.StartArchival(context.Background(), key, rec)
	require.NoError(t, err, "an existing execution counts as started")
	assert.Equal(t, key.ExecutionName(), handle)

	fake.Err = errUnavailable
	_, err = starter.StartArchival(context.Background(), key, rec)
	assert.ErrorIs(t, err, errUnavailable)
}

func TestFirehoseSink(t *testing.T) {
	fake := &fakeFirehose{}
	sink := NewFirehoseSink(fake)

	require.NoError(t, sink.Append(context.Background(), "instance-metadata", []byte("{}\n")))
	require.Len(t, fake.Calls, 1)
	assert.Equal(t, "instance-metadata", *fake.Calls[0].DeliveryStreamName)
	assert.Equal(t, []byte("{}\n"), fake.Calls[0].Record.Data)

	fake.Err = errUnavailable
	assert.ErrorIs(t, sink.Append(context.Background(), "instance-metadata", []byte("{}\n")), errUnavailable)
}

func TestS3Sink(t *testing.T) {
	fake := &fakeS3{}
	sink := NewS3Sink(fake, "archive", "instances")
	sink.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }

	payload := []byte(`{"InstanceId":"i-1"}` + "\n")
	require.NoError(t, sink.Append(context.Background(), "terminations", payload))
	require.NoError(t, sink.Append(context.Background(), "terminations", payload))

	require.Len(t, fake.Calls, 2)
	key := *fake.Calls[0].Key
	assert.True(t, strings.HasPrefix(key, "instances/terminations/2024/03/01/"))
	assert.True(t, strings.HasSuffix(key, ".json"))
	assert.Equal(t, key, *fake.Calls[1].Key, "same payload, same object")

	body, err := io.ReadAll(fake.Calls[0].Body)
	require.NoError(t, err)
	assert.Equal(t, payload, body)
}
