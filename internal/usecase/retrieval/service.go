package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/playsearch/internal/domain"
	"github.com/kailas-cloud/playsearch/internal/domain/intent"
	"github.com/kailas-cloud/playsearch/internal/domain/search/chunk"
	"github.com/kailas-cloud/playsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/playsearch/internal/domain/user"
	"github.com/kailas-cloud/playsearch/internal/metrics"
)

// Defaults for Config.
const (
	DefaultTopK      = 6
	DefaultThreshold = 0.35
)

// Config tunes the similarity search.
type Config struct {
	TopK      int
	Threshold float64
}

// Service fetches the chunks a user may see for a query.
type Service struct {
	chunks ChunkSearcher
	embed  Embedder
	cfg    Config
	logger *zap.Logger
}

// New creates a retriever. A zero TopK takes the default. Threshold is used
// as given: 0 keeps every scored hit, config validation bounds it to [0,1].
func New(chunks ChunkSearcher, embed Embedder, cfg Config, logger *zap.Logger) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &Service{chunks: chunks, embed: embed, cfg: cfg, logger: logger}
}

// Retrieve returns chunks above the similarity threshold, best first.
// A user with no assigned plays gets nothing without any provider call,
// unless the intent only concerns their own submissions.
func (s *Service) Retrieve(ctx context.Context, u *user.Context, in intent.Intent, query string) ([]chunk.SourceChunk, error) {
	if len(u.AssignedPlays) == 0 && in != intent.PerformanceHistory {
		s.logger.Debug("Retrieval skipped, no assigned plays",
			zap.String("user_id", u.UserID),
			zap.String("intent", string(in)),
		)
		return nil, nil
	}

	f := BuildFilter(u, in)
	if !filter.HasCompanyFence(f, u.CompanyID) {
		return nil, fmt.Errorf("%w: company %q", domain.ErrFilterUnscoped, u.CompanyID)
	}
	if filter.HasEmptyIn(f) {
		return nil, fmt.Errorf("%w: empty play allow-list: %s", domain.ErrFilterUnscoped, filter.String(f))
	}

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrRetrievalProvider, err)
	}
	domain.UsageFromContext(ctx).AddEmbeddingTokens(emb.TotalTokens)

	found, err := s.chunks.Search(ctx, emb.Embedding, f, s.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrievalProvider, err)
	}

	kept := make([]chunk.SourceChunk, 0, len(found))
	for _, c := range found {
		if c.Score == nil || *c.Score < s.cfg.Threshold {
			continue
		}
		kept = append(kept, c)
	}
	metrics.RetrievedChunks.Observe(float64(len(kept)))

	s.logger.Debug("Retrieval completed",
		zap.String("intent", string(in)),
		zap.String("filter", filter.String(f)),
		zap.Int("candidates", len(found)),
		zap.Int("kept", len(kept)),
	)
	return kept, nil
}
