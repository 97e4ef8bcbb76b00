package utils

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/younsl/lifecycled/internal/models"
)

func TestToTags(t *testing.T) {
	got := ToTags([]types.Tag{
		{Key: aws.String("team"), Value: aws.String("data")},
		{Value: aws.String("orphan")},
		{Key: aws.String("Name"), Value: aws.String("worker")},
	})
	assert.Equal(t, []models.Tag{{Key: "Name", Value: "worker"}, {Key: "team", Value: "data"}}, got)
	assert.Equal(t, "worker", GetName(got))
	assert.Equal(t, "", GetTagValue(got, "missing"))
	assert.Equal(t, map[string]string{"Name": "worker", "team": "data"}, GetTagsMap(got))
}

func TestRelativeAge(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want string
	}{
		{"2024-03-01T09:00:00Z", "3 hours ago"},
		{"2024-03-01T12:00:00Z", "now"},
		{"", "unknown"},
		{"yesterday", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeAge(tt.in, now))
		})
	}
}

func TestFormatExpiration(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "never", FormatExpiration(0, now))
	assert.Equal(t, "2024-03-03T12:00:00Z (2 days from now)", FormatExpiration(now.Add(48*time.Hour).Unix(), now))
}
