package lifecycle

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// Enricher fills descriptive attributes of first-observed instances
type Enricher struct {
	lookup     DescriptionLookup
	normalizer *Normalizer
	aggregator *Aggregator
	logger     *zap.Logger
}

// NewEnricher creates an Enricher
func NewEnricher(lookup DescriptionLookup, normalizer *Normalizer, aggregator *Aggregator, logger *zap.Logger) *Enricher {
	return &Enricher{
		lookup:     lookup,
		normalizer: normalizer,
		aggregator: aggregator,
		logger:     logger,
	}
}

// EnrichResult reports the outcome of one enrichment batch
type EnrichResult struct {
	Enriched []string
	// Missing ids were not returned by the lookup
	Missing     []string
	WriteErrors map[string]error
}

// Enrich describes ids in one batched lookup and writes the results.
// A lookup failure returns ErrLookup and leaves every id unenriched.
// Store failures are reported per instance id.
func (e *Enricher) Enrich(ctx context.Context, ids []string) (EnrichResult, error) {
	res := EnrichResult{WriteErrors: make(map[string]error)}
	if len(ids) == 0 {
		return res, nil
	}

	descriptions, err := e.lookup.DescribeByIDs(ctx, ids)
	if err != nil {
		return res, NewError(ErrLookup, "", string(KindEnrichment), "", err)
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	for _, id := range sorted {
		desc, ok := descriptions[id]
		if !ok {
			e.logger.Warn("instance_not_described", zap.String("instance_id", id))
			res.Missing = append(res.Missing, id)
			continue
		}
		if _, err := e.aggregator.Apply(ctx, e.normalizer.Enrich(desc)); err != nil {
			res.WriteErrors[id] = err
			continue
		}
		res.Enriched = append(res.Enriched, id)
		e.logger.Info("instance_enriched",
			zap.String("instance_id", id),
			zap.String("instance_type", desc.InstanceType),
			zap.String("availability_zone", desc.AvailabilityZone),
		)
	}
	return res, nil
}
