package search

import (
	"context"
	"errors"
	"iter"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/playsearch/internal/domain"
	"github.com/kailas-cloud/playsearch/internal/domain/intent"
	"github.com/kailas-cloud/playsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/playsearch/internal/domain/search/response"
	"github.com/kailas-cloud/playsearch/internal/domain/search/stream"
	"github.com/kailas-cloud/playsearch/internal/domain/user"
	"github.com/kailas-cloud/playsearch/internal/logger"
)

// RunStream executes the search as an event sequence: one meta frame with
// the complete metadata, answer chunks, then done or a single error frame.
// Nothing is emitted after the consumer stops pulling.
func (s *Service) RunStream(
	ctx context.Context, u *user.Context, query string, m mode.Mode,
) iter.Seq[stream.Event] {
	return func(yield func(stream.Event) bool) {
		ctx, span := tracer.Start(ctx, "search.RunStream",
			trace.WithAttributes(
				attribute.String("user.company_id", u.CompanyID),
				attribute.String("search.mode", string(m)),
			),
		)
		defer span.End()
		start := time.Now()

		e := &emitter{yield: yield}
		in, tier, stage, err := s.runStream(ctx, u, query, m, e)
		switch {
		case err != nil:
			s.fail(ctx, span, stage, err)
			e.emit(stream.Error(ErrorMessage(err)))
		case e.stopped:
			span.SetAttributes(attribute.Bool("search.client_gone", true))
			logger.FromContext(ctx).Debug("Search stream abandoned by client",
				zap.String("intent", string(in)),
				zap.String("tier", string(tier)),
			)
		default:
			s.observe(ctx, span, in, tier, transportSSE, start)
		}
	}
}

func (s *Service) runStream(
	ctx context.Context, u *user.Context, query string, m mode.Mode, e *emitter,
) (intent.Intent, response.Tier, string, error) {
	res, err := s.classify(ctx, query, m)
	if err != nil {
		return "", "", stageClassify, err
	}
	in := res.Intent

	switch in {
	case intent.OutOfScope:
		_ = e.emit(stream.Meta(res, response.Tier1, nil, nil)) &&
			e.emit(stream.Chunk(response.OutOfScopeAnswer)) &&
			e.emit(stream.Done(false))
		return in, response.Tier1, "", nil

	case intent.GeneralProfessional:
		if !e.emit(stream.Meta(res, response.Tier2, nil, s.recommend(u, nil, query))) {
			return in, response.Tier2, "", nil
		}
		for piece, err := range s.generator.GeneralStream(ctx, query) {
			if err != nil {
				return in, response.Tier2, stageGenerate, err
			}
			if !e.emit(stream.Chunk(piece)) {
				return in, response.Tier2, "", nil
			}
		}
		e.emit(stream.Done(false))
		return in, response.Tier2, "", nil
	}

	chunks, err := s.retrieve(ctx, u, in, query)
	if err != nil {
		return in, "", stageRetrieve, err
	}
	if len(chunks) == 0 {
		_ = e.emit(stream.Meta(res, response.Tier3, nil, s.recommend(u, nil, query))) &&
			e.emit(stream.Chunk(response.NotFoundAnswer)) &&
			e.emit(stream.Done(false))
		return in, response.Tier3, "", nil
	}

	// Метаданные уходят до генерации: клиент рисует источники, пока идёт ответ.
	recs := s.recommend(u, PlayIDsFromChunks(chunks), query)
	if !e.emit(stream.Meta(res, response.Grounded, chunks, recs)) {
		return in, response.Grounded, "", nil
	}

	answer := s.generator.GroundedStream(ctx, query, chunks)
	for piece, err := range answer.Text() {
		if err != nil {
			return in, response.Grounded, stageGenerate, err
		}
		if !e.emit(stream.Chunk(piece)) {
			return in, response.Grounded, "", nil
		}
	}

	insufficient := answer.Insufficient()
	e.emit(stream.Done(insufficient))
	if insufficient {
		return in, response.Tier3, "", nil
	}
	return in, response.Grounded, "", nil
}

// emitter remembers that the consumer stopped so no frame follows.
type emitter struct {
	yield   func(stream.Event) bool
	stopped bool
}

func (e *emitter) emit(ev stream.Event) bool {
	if e.stopped {
		return false
	}
	if !e.yield(ev) {
		e.stopped = true
	}
	return !e.stopped
}

// ErrorMessage maps a pipeline failure to the text shown to clients.
// Provider details stay in the logs.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmbeddingQuotaExceeded):
		return "Search capacity is exhausted for now. Please try again later."
	case errors.Is(err, domain.ErrRetrievalProvider), errors.Is(err, domain.ErrEmbeddingProviderError):
		return "Search is temporarily unavailable. Please try again."
	case errors.Is(err, domain.ErrGenerationProvider):
		return "Answer generation is temporarily unavailable. Please try again."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The search was cancelled."
	default:
		return "The search could not be completed."
	}
}
