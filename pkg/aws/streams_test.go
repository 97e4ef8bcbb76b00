package aws

import (
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/younsl/lifecycled/internal/models"
)

func streamImage() map[string]events.DynamoDBAttributeValue {
	return map[string]events.DynamoDBAttributeValue{
		"InstanceId":               events.NewStringAttribute("i-1"),
		"InstanceType":             events.NewStringAttribute("m5.large"),
		"InstanceMetadataEnriched": events.NewBooleanAttribute(true),
		"LastEventType":            events.NewStringAttribute("state-change"),
		"LastEventTime":            events.NewStringAttribute("2024-03-01T11:00:00Z"),
		"State":                    events.NewStringAttribute("terminated"),
		"ExpirationTime":           events.NewNumberAttribute("1711881600"),
		"Tags": events.NewListAttribute([]events.DynamoDBAttributeValue{
			events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
				"Key":   events.NewStringAttribute("team"),
				"Value": events.NewStringAttribute("data"),
			}),
		}),
		"Unused": events.NewNullAttribute(),
	}
}

func TestChangeFromStreamRecord(t *testing.T) {
	r := events.DynamoDBEventRecord{
		EventID:   "1",
		EventName: "MODIFY",
		Change: events.DynamoDBStreamRecord{
			Keys:           map[string]events.DynamoDBAttributeValue{"InstanceId": events.NewStringAttribute("i-1")},
			NewImage:       streamImage(),
			OldImage:       map[string]events.DynamoDBAttributeValue{"InstanceId": events.NewStringAttribute("i-1")},
			SequenceNumber: "100",
		},
	}

	change, err := ChangeFromStreamRecord(r)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeModify, change.Kind)
	assert.Equal(t, "100", change.SequenceNumber)
	assert.Equal(t, "i-1", change.InstanceID)
	require.NotNil(t, change.OldImage)
	assert.False(t, change.OldImage.MetadataEnriched)

	require.NotNil(t, change.NewImage)
	assert.Equal(t, models.InstanceRecord{
		InstanceID:       "i-1",
		InstanceType:     "m5.large",
		MetadataEnriched: true,
		LastEventType:    models.EventTypeStateChange,
		LastEventTime:    "2024-03-01T11:00:00Z",
		State:            models.StateTerminated,
		ExpirationTime:   1711881600,
		Tags:             []models.Tag{{Key: "team", Value: "data"}},
	}, *change.NewImage)
}

func TestChangeFromStreamRecordRemoval(t *testing.T) {
	r := events.DynamoDBEventRecord{
		EventName: "REMOVE",
		Change: events.DynamoDBStreamRecord{
			Keys:     map[string]events.DynamoDBAttributeValue{"InstanceId": events.NewStringAttribute("i-1")},
			OldImage: streamImage(),
		},
	}
	change, err := ChangeFromStreamRecord(r)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeRemove, change.Kind)
	assert.Nil(t, change.NewImage)
	assert.NotNil(t, change.OldImage)
}

func TestChangeFromStreamRecordRejectsUnknownEvent(t *testing.T) {
	_, err := ChangeFromStreamRecord(events.DynamoDBEventRecord{EventName: "TRUNCATE"})
	assert.Error(t, err)
}
