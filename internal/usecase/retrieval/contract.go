package retrieval

import (
	"context"

	"github.com/kailas-cloud/playsearch/internal/domain"
	"github.com/kailas-cloud/playsearch/internal/domain/search/chunk"
	"github.com/kailas-cloud/playsearch/internal/domain/search/filter"
)

// ChunkSearcher runs a filtered similarity search over indexed chunks.
type ChunkSearcher interface {
	Search(ctx context.Context, vector []float32, f filter.Node, k int) ([]chunk.SourceChunk, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
