package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/playsearch/internal/domain"
	"github.com/kailas-cloud/playsearch/internal/domain/intent"
	"github.com/kailas-cloud/playsearch/internal/metrics"
)

// defaultConfidence applies when the model omits the confidence field.
const defaultConfidence = 0.9

var generateOpts = domain.GenerateOptions{MaxTokens: 256, Temperature: 0}

// Service maps a query to one of the five intents with a single LLM call.
type Service struct {
	llm    Completer
	logger *zap.Logger
}

// New creates a classifier.
func New(llm Completer, logger *zap.Logger) *Service {
	return &Service{llm: llm, logger: logger}
}

// Classify asks the model for an intent. Unparseable output falls back to
// intent.Fallback(); a failed provider call is returned as an error.
func (s *Service) Classify(ctx context.Context, query string) (intent.Result, error) {
	msgs := []domain.Message{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: fewShot + "\nQuery: " + query},
	}

	raw, err := s.llm.Complete(ctx, msgs, generateOpts)
	if err != nil {
		return intent.Result{}, fmt.Errorf("%w: classify: %w", domain.ErrGenerationProvider, err)
	}

	res, err := Parse(raw)
	if err != nil {
		metrics.ClassificationFallbackTotal.Inc()
		s.logger.Warn("Intent classification fell back to default",
			zap.String("raw", truncate(raw, 200)),
			zap.Error(err),
		)
		return intent.Fallback(), nil
	}
	return res, nil
}

type rawResult struct {
	Intent     string   `json:"intent"`
	Confidence *float64 `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// Parse decodes model output, tolerating a surrounding markdown code fence.
func Parse(raw string) (intent.Result, error) {
	text := stripFence(strings.TrimSpace(raw))

	var r rawResult
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return intent.Result{}, fmt.Errorf("decode classifier output: %w", err)
	}

	in := intent.Intent(r.Intent)
	if !in.IsValid() {
		return intent.Result{}, fmt.Errorf("unknown intent %q", r.Intent)
	}

	confidence := defaultConfidence
	if r.Confidence != nil {
		confidence = *r.Confidence
	}
	if confidence < 0 || confidence > 1 {
		return intent.Result{}, errors.New("confidence out of range")
	}

	return intent.Result{Intent: in, Confidence: confidence, Reasoning: r.Reasoning}, nil
}

// stripFence keeps the first fenced block and drops an optional "json" tag.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	parts := strings.Split(s, "```")
	body := parts[1]
	body = strings.TrimPrefix(body, "json")
	return strings.TrimSpace(body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
