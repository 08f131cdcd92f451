package generate

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/kailas-cloud/playsearch/internal/domain"
	"github.com/kailas-cloud/playsearch/internal/domain/search/chunk"
	"github.com/kailas-cloud/playsearch/internal/domain/search/response"
)

var (
	groundedOpts = domain.GenerateOptions{MaxTokens: 1024, Temperature: 0.1}
	generalOpts  = domain.GenerateOptions{MaxTokens: 512, Temperature: 0.3}
)

// Service produces answers, grounded in retrieved chunks or from general knowledge.
type Service struct {
	llm domain.TextGenerator
}

// New creates an answer generator over the configured provider.
func New(llm domain.TextGenerator) *Service {
	return &Service{llm: llm}
}

// Grounded answers strictly from chunks. sufficient is false iff the
// trimmed model output is exactly InsufficientContext.
func (s *Service) Grounded(ctx context.Context, query string, chunks []chunk.SourceChunk) (string, bool, error) {
	out, err := s.llm.Complete(ctx, groundedMessages(query, chunks), groundedOpts)
	if err != nil {
		return "", false, fmt.Errorf("%w: grounded answer: %w", domain.ErrGenerationProvider, err)
	}
	answer := strings.TrimSpace(out)
	return answer, answer != InsufficientContext, nil
}

// GroundedStream prepares a grounded answer for incremental delivery.
// Nothing is requested until StreamResult.Text is ranged over.
func (s *Service) GroundedStream(ctx context.Context, query string, chunks []chunk.SourceChunk) *StreamResult {
	return &StreamResult{
		source: s.llm.Stream(ctx, groundedMessages(query, chunks), groundedOpts),
	}
}

// General answers from general professional knowledge with a disclaimer.
func (s *Service) General(ctx context.Context, query string) (string, error) {
	out, err := s.llm.Complete(ctx, generalMessages(query), generalOpts)
	if err != nil {
		return "", fmt.Errorf("%w: general answer: %w", domain.ErrGenerationProvider, err)
	}
	return strings.TrimSpace(out), nil
}

// GeneralStream relays the general answer as the provider produces it.
func (s *Service) GeneralStream(ctx context.Context, query string) iter.Seq2[string, error] {
	src := s.llm.Stream(ctx, generalMessages(query), generalOpts)
	return func(yield func(string, error) bool) {
		for piece, err := range src {
			if err != nil {
				yield("", fmt.Errorf("%w: general stream: %w", domain.ErrGenerationProvider, err))
				return
			}
			if piece == "" {
				continue
			}
			if !yield(piece, nil) {
				return
			}
		}
	}
}

// StreamResult is a grounded answer stream. The whole provider output is
// buffered before the first increment is yielded, since the insufficiency
// reply can only be recognized on the complete text.
type StreamResult struct {
	source       iter.Seq2[string, error]
	insufficient bool
}

// Text yields the answer increments. When the model declared the context
// insufficient it yields the not-found answer once instead.
func (r *StreamResult) Text() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var pieces []string
		var sb strings.Builder
		for piece, err := range r.source {
			if err != nil {
				yield("", fmt.Errorf("%w: grounded stream: %w", domain.ErrGenerationProvider, err))
				return
			}
			if piece == "" {
				continue
			}
			pieces = append(pieces, piece)
			sb.WriteString(piece)
		}

		if strings.TrimSpace(sb.String()) == InsufficientContext {
			r.insufficient = true
			yield(response.NotFoundAnswer, nil)
			return
		}
		for _, p := range pieces {
			if !yield(p, nil) {
				return
			}
		}
	}
}

// Insufficient reports whether the model declined to answer. Valid once Text is drained.
func (r *StreamResult) Insufficient() bool {
	return r.insufficient
}

func groundedMessages(query string, chunks []chunk.SourceChunk) []domain.Message {
	return []domain.Message{
		{Role: domain.RoleSystem, Content: groundedSystemPrompt},
		{Role: domain.RoleUser, Content: groundedUserPrompt(query, chunks)},
	}
}

func generalMessages(query string) []domain.Message {
	return []domain.Message{
		{Role: domain.RoleSystem, Content: generalSystemPrompt},
		{Role: domain.RoleUser, Content: query},
	}
}
