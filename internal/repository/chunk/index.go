package chunk

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/playsearch/internal/db"
	"github.com/kailas-cloud/playsearch/internal/domain"
	"github.com/kailas-cloud/playsearch/internal/domain/search/filter"
)

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// IndexDefinition describes the chunk index the ingestion job writes into.
// Every scoping attribute is a TAG so the tenant fence is an exact match.
func IndexDefinition(name, prefix string, vc domain.VectorConfig, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	var distance db.DistanceMetric
	switch vc.DistanceMetric {
	case "cosine", "":
		distance = db.DistanceCosine
	case "l2":
		distance = db.DistanceL2
	case "ip":
		distance = db.DistanceIP
	default:
		return nil, fmt.Errorf("unsupported distance metric %q", vc.DistanceMetric)
	}

	b := db.NewIndex(name).
		Prefix(prefix).
		Tags(filter.FieldCompanyID, filter.FieldContentType, filter.FieldPlayID, filter.FieldUserID, fieldAssetType)

	switch vc.Algorithm {
	case "hnsw", "":
		b = b.HNSW("vector", vc.Dimensions, distance, hnsw.M, hnsw.EFConstruct)
	case "flat":
		b = b.Flat("vector", vc.Dimensions, distance)
	default:
		return nil, fmt.Errorf("unsupported vector algorithm %q", vc.Algorithm)
	}

	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build chunk index: %w", err)
	}
	return def, nil
}

// EnsureIndex creates the chunk index unless it already exists.
// Returns true when the index was created by this call.
func EnsureIndex(ctx context.Context, im db.IndexManager, def *db.IndexDefinition) (bool, error) {
	exists, err := im.IndexExists(ctx, def.Name)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", def.Name, err)
	}
	if exists {
		return false, nil
	}
	if err := im.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return true, nil
}
