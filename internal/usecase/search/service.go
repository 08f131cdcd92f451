package search

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/playsearch/internal/domain/intent"
	"github.com/kailas-cloud/playsearch/internal/domain/search/chunk"
	"github.com/kailas-cloud/playsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/playsearch/internal/domain/search/response"
	"github.com/kailas-cloud/playsearch/internal/domain/user"
	"github.com/kailas-cloud/playsearch/internal/logger"
	"github.com/kailas-cloud/playsearch/internal/metrics"
)

var tracer = otel.Tracer("playsearch.search")

// Transport labels for search metrics.
const (
	transportJSON = "json"
	transportSSE  = "sse"
)

// Failure stages for search metrics.
const (
	stageClassify = "classify"
	stageRetrieve = "retrieve"
	stageGenerate = "generate"
)

// searchRecommendations is how many plays a search suggests.
const searchRecommendations = 3

// Service routes a query through classification, retrieval, generation and
// recommendation, resolving it to exactly one response tier.
type Service struct {
	classifier Classifier
	retriever  Retriever
	generator  Generator
	recs       Recommender
}

// New creates the search orchestrator.
func New(classifier Classifier, retriever Retriever, generator Generator, recs Recommender) *Service {
	return &Service{
		classifier: classifier,
		retriever:  retriever,
		generator:  generator,
		recs:       recs,
	}
}

// Run executes the search and returns the aggregate response.
func (s *Service) Run(
	ctx context.Context, u *user.Context, query string, m mode.Mode,
) (response.SearchResponse, error) {
	ctx, span := tracer.Start(ctx, "search.Run",
		trace.WithAttributes(
			attribute.String("user.company_id", u.CompanyID),
			attribute.String("search.mode", string(m)),
		),
	)
	defer span.End()
	start := time.Now()

	res, stage, err := s.run(ctx, u, query, m)
	if err != nil {
		s.fail(ctx, span, stage, err)
		return response.SearchResponse{}, err
	}

	s.observe(ctx, span, res.Intent.Intent, res.ResponseTier, transportJSON, start)
	return res, nil
}

func (s *Service) run(
	ctx context.Context, u *user.Context, query string, m mode.Mode,
) (response.SearchResponse, string, error) {
	res, err := s.classify(ctx, query, m)
	if err != nil {
		return response.SearchResponse{}, stageClassify, err
	}

	out := response.SearchResponse{
		Intent:          res,
		Sources:         []chunk.SourceChunk{},
		Recommendations: []response.Recommendation{},
	}

	switch res.Intent {
	case intent.OutOfScope:
		out.ResponseTier = response.Tier1
		out.Answer = response.OutOfScopeAnswer
		return out, "", nil

	case intent.GeneralProfessional:
		answer, err := s.generator.General(ctx, query)
		if err != nil {
			return response.SearchResponse{}, stageGenerate, err
		}
		out.ResponseTier = response.Tier2
		out.Answer = answer
		out.Recommendations = s.recommend(u, nil, query)
		return out, "", nil
	}

	chunks, err := s.retrieve(ctx, u, res.Intent, query)
	if err != nil {
		return response.SearchResponse{}, stageRetrieve, err
	}
	if len(chunks) == 0 {
		out.ResponseTier = response.Tier3
		out.Answer = response.NotFoundAnswer
		out.Recommendations = s.recommend(u, nil, query)
		return out, "", nil
	}

	answer, sufficient, err := s.generator.Grounded(ctx, query, chunks)
	if err != nil {
		return response.SearchResponse{}, stageGenerate, err
	}
	if !sufficient {
		out.ResponseTier = response.Tier3
		out.Answer = response.NotFoundAnswer
		out.Recommendations = s.recommend(u, nil, query)
		return out, "", nil
	}

	out.ResponseTier = response.Grounded
	out.Answer = answer
	out.Sources = chunks
	out.Recommendations = s.recommend(u, PlayIDsFromChunks(chunks), query)
	return out, "", nil
}

// classify runs the classifier and applies the caller's mode override.
func (s *Service) classify(ctx context.Context, query string, m mode.Mode) (intent.Result, error) {
	ctx, span := tracer.Start(ctx, "search.classify")
	defer span.End()

	res, err := s.classifier.Classify(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classification failed")
		return intent.Result{}, fmt.Errorf("classify query: %w", err)
	}
	res.Intent = mode.Apply(res.Intent, m)

	span.SetAttributes(
		attribute.String("search.intent", string(res.Intent)),
		attribute.Float64("search.confidence", res.Confidence),
	)
	return res, nil
}

func (s *Service) retrieve(
	ctx context.Context, u *user.Context, in intent.Intent, query string,
) ([]chunk.SourceChunk, error) {
	ctx, span := tracer.Start(ctx, "search.retrieve")
	defer span.End()

	chunks, err := s.retriever.Retrieve(ctx, u, in, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		return nil, fmt.Errorf("retrieve chunks: %w", err)
	}
	span.SetAttributes(attribute.Int("search.chunks", len(chunks)))
	return chunks, nil
}

func (s *Service) recommend(u *user.Context, exclude map[string]struct{}, query string) []response.Recommendation {
	return s.recs.Recommend(u, exclude, query, searchRecommendations)
}

// Recommendations ranks the user's assigned plays without a query.
func (s *Service) Recommendations(u *user.Context, limit int) []response.Recommendation {
	return s.recs.Recommend(u, nil, "", limit)
}

func (s *Service) observe(
	ctx context.Context, span trace.Span, in intent.Intent, tier response.Tier, transport string, start time.Time,
) {
	metrics.SearchRequestsTotal.WithLabelValues(string(in), string(tier), transport).Inc()
	metrics.SearchDuration.WithLabelValues(string(tier), transport).Observe(time.Since(start).Seconds())

	span.SetAttributes(
		attribute.String("search.intent", string(in)),
		attribute.String("search.tier", string(tier)),
	)
	span.SetStatus(codes.Ok, "")

	logger.Annotate(ctx, zap.String("intent", string(in)), zap.String("tier", string(tier)))
}

func (s *Service) fail(ctx context.Context, span trace.Span, stage string, err error) {
	metrics.SearchErrorsTotal.WithLabelValues(stage).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, stage+" failed")

	logger.FromContext(ctx).Error("Search failed",
		zap.String("stage", stage),
		zap.Error(err),
	)
}

// PlayIDsFromChunks returns the distinct non-null play ids of chunks as a set.
func PlayIDsFromChunks(chunks []chunk.SourceChunk) map[string]struct{} {
	ids := chunk.PlayIDs(chunks)
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
