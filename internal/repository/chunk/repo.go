package chunk

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/playsearch/internal/db"
	domchunk "github.com/kailas-cloud/playsearch/internal/domain/search/chunk"
	"github.com/kailas-cloud/playsearch/internal/domain/search/filter"
)

// Default index naming for the Redis backend. Weaviate uses a class name instead.
const (
	DefaultIndexName = "playsearch:chunks"
	DefaultKeyPrefix = "playsearch:chunk:"
	DefaultClassName = "Chunk"
)

// Repo runs fenced similarity searches over the chunk index.
type Repo struct {
	store     db.Searcher
	indexName string
}

// New creates a chunk repository over any vector backend.
func New(s db.Searcher, indexName string) *Repo {
	return &Repo{store: s, indexName: indexName}
}

// Search returns at most k chunks ordered by descending similarity.
// The filter is passed to the backend unchanged.
func (r *Repo) Search(
	ctx context.Context, vector []float32, f filter.Node, k int,
) ([]domchunk.SourceChunk, error) {
	if f == nil {
		return nil, errors.New("chunk search requires a filter")
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName,
		Filter:       f,
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks %s: %w", r.indexName, err)
	}

	return toChunks(sr), nil
}
