package lifecycle_test

import (
	"context"
	"errors"
	"sync"

	"github.com/younsl/lifecycled/internal/lifecycle"
	"github.com/younsl/lifecycled/internal/models"
)

var errBoom = errors.New("boom")

type fakeLookup struct {
	mu           sync.Mutex
	descriptions map[string]models.InstanceDescription
	ShouldFail   bool
	Calls        [][]string
}

func (f *fakeLookup) DescribeByIDs(_ context.Context, ids []string) (map[string]models.InstanceDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, append([]string(nil), ids...))
	if f.ShouldFail {
		return nil, errBoom
	}
	out := make(map[string]models.InstanceDescription)
	for _, id := range ids {
		if d, ok := f.descriptions[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

type fakeStarter struct {
	mu         sync.Mutex
	ShouldFail bool
	Started    []lifecycle.DedupeKey
}

func (f *fakeStarter) StartArchival(_ context.Context, key lifecycle.DedupeKey, _ models.InstanceRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ShouldFail {
		return "", errBoom
	}
	f.Started = append(f.Started, key)
	return key.ExecutionName(), nil
}

// failingStore rejects every write for the listed ids
type failingStore struct {
	lifecycle.RecordStore
	failIDs map[string]bool
}

func (f *failingStore) UpsertFields(ctx context.Context, id string, patch models.RecordPatch, cond *models.UpsertCondition) (models.UpsertResult, error) {
	if f.failIDs[id] {
		return models.UpsertResult{}, errBoom
	}
	return f.RecordStore.UpsertFields(ctx, id, patch, cond)
}

func description(id string) models.InstanceDescription {
	return models.InstanceDescription{
		InstanceID:        id,
		InstanceType:      "m5.large",
		InstanceLifecycle: models.LifecycleSpot,
		AvailabilityZone:  "us-east-1a",
		Tags:              []models.Tag{{Key: "team", Value: "data"}},
	}
}
