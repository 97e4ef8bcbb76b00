package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/younsl/lifecycled/internal/models"
)

// StaticLookup describes instances from a fixed set of descriptions
type StaticLookup map[string]models.InstanceDescription

// LoadStaticLookup reads a JSON array of instance descriptions
func LoadStaticLookup(r io.Reader) (StaticLookup, error) {
	var descs []models.InstanceDescription
	if err := json.NewDecoder(r).Decode(&descs); err != nil {
		return nil, fmt.Errorf("error decoding instance descriptions: %w", err)
	}
	lookup := make(StaticLookup, len(descs))
	for _, d := range descs {
		if d.InstanceID == "" {
			return nil, fmt.Errorf("instance description without InstanceId")
		}
		lookup[d.InstanceID] = d
	}
	return lookup, nil
}

// DescribeByIDs returns the known descriptions of ids
func (l StaticLookup) DescribeByIDs(_ context.Context, ids []string) (map[string]models.InstanceDescription, error) {
	out := make(map[string]models.InstanceDescription, len(ids))
	for _, id := range ids {
		if d, ok := l[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}
