package search

import (
	"context"
	"iter"

	"github.com/kailas-cloud/playsearch/internal/domain/intent"
	"github.com/kailas-cloud/playsearch/internal/domain/search/chunk"
	"github.com/kailas-cloud/playsearch/internal/domain/search/response"
	"github.com/kailas-cloud/playsearch/internal/domain/user"
	"github.com/kailas-cloud/playsearch/internal/usecase/generate"
)

// Classifier assigns an intent to a query.
type Classifier interface {
	Classify(ctx context.Context, query string) (intent.Result, error)
}

// Retriever fetches the chunks the user may see for a query.
type Retriever interface {
	Retrieve(ctx context.Context, u *user.Context, in intent.Intent, query string) ([]chunk.SourceChunk, error)
}

// Generator produces grounded and general answers.
type Generator interface {
	Grounded(ctx context.Context, query string, chunks []chunk.SourceChunk) (string, bool, error)
	GroundedStream(ctx context.Context, query string, chunks []chunk.SourceChunk) *generate.StreamResult
	General(ctx context.Context, query string) (string, error)
	GeneralStream(ctx context.Context, query string) iter.Seq2[string, error]
}

// Recommender ranks assigned plays as next steps.
type Recommender interface {
	Recommend(u *user.Context, exclude map[string]struct{}, query string, maxResults int) []response.Recommendation
}
