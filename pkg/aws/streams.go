package aws

import (
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/younsl/lifecycled/internal/models"
)

// ChangeFromStreamRecord converts a DynamoDB stream record of the
// instance metadata table into a change notification
func ChangeFromStreamRecord(r events.DynamoDBEventRecord) (models.ChangeNotification, error) {
	change := models.ChangeNotification{
		Kind:           models.ChangeKind(r.EventName),
		SequenceNumber: r.Change.SequenceNumber,
	}
	switch change.Kind {
	case models.ChangeInsert, models.ChangeModify, models.ChangeRemove:
	default:
		return change, fmt.Errorf("unknown stream event name %q", r.EventName)
	}

	if key, ok := r.Change.Keys[attrInstanceID]; ok && key.DataType() == events.DataTypeString {
		change.InstanceID = key.String()
	}

	var err error
	if change.OldImage, err = decodeImage(r.Change.OldImage); err != nil {
		return change, fmt.Errorf("error decoding old image of %s: %w", r.EventID, err)
	}
	if change.NewImage, err = decodeImage(r.Change.NewImage); err != nil {
		return change, fmt.Errorf("error decoding new image of %s: %w", r.EventID, err)
	}
	if change.InstanceID == "" && change.NewImage != nil {
		change.InstanceID = change.NewImage.InstanceID
	}
	return change, nil
}

func decodeImage(image map[string]events.DynamoDBAttributeValue) (*models.InstanceRecord, error) {
	if len(image) == 0 {
		return nil, nil
	}
	item, err := toAttributeValueMap(image)
	if err != nil {
		return nil, err
	}
	var rec models.InstanceRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func toAttributeValueMap(m map[string]events.DynamoDBAttributeValue) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(m))
	for k, v := range m {
		av, err := toAttributeValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

func toAttributeValue(v events.DynamoDBAttributeValue) (types.AttributeValue, error) {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}, nil
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}, nil
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}, nil
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}, nil
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}, nil
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}, nil
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}, nil
	case events.DataTypeList:
		list := v.List()
		out := make([]types.AttributeValue, 0, len(list))
		for _, item := range list {
			av, err := toAttributeValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, av)
		}
		return &types.AttributeValueMemberL{Value: out}, nil
	case events.DataTypeMap:
		m, err := toAttributeValueMap(v.Map())
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	}
	return nil, fmt.Errorf("unsupported data type %d", v.DataType())
}
