package utils

import (
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/younsl/lifecycled/internal/models"
)

// GetTagValue returns the value of a tag with the given key
func GetTagValue(tags []models.Tag, key string) string {
	for _, tag := range tags {
		if tag.Key == key {
			return tag.Value
		}
	}
	return ""
}

// GetName returns the value of the Name tag
func GetName(tags []models.Tag) string {
	return GetTagValue(tags, "Name")
}

// ToTags converts EC2 tags into record tags ordered by key.
// Tags without a key are dropped.
func ToTags(tags []types.Tag) []models.Tag {
	result := make([]models.Tag, 0, len(tags))
	for _, tag := range tags {
		if tag.Key == nil {
			continue
		}
		result = append(result, models.Tag{
			Key:   aws.ToString(tag.Key),
			Value: aws.ToString(tag.Value),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

// GetTagsMap converts a slice of tags to a map
func GetTagsMap(tags []models.Tag) map[string]string {
	result := make(map[string]string, len(tags))
	for _, tag := range tags {
		result[tag.Key] = tag.Value
	}
	return result
}
