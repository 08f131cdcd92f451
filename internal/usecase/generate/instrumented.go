package generate

import (
	"context"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/playsearch/internal/domain"
	"github.com/kailas-cloud/playsearch/internal/metrics"
)

const (
	callComplete = "complete"
	callStream   = "stream"
)

// InstrumentedGenerator records metrics, logs and per-request usage around
// any text generation provider.
type InstrumentedGenerator struct {
	inner    domain.TextGenerator
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedGenerator wraps a provider.
func NewInstrumentedGenerator(inner domain.TextGenerator, provider, model string, logger *zap.Logger) *InstrumentedGenerator {
	return &InstrumentedGenerator{inner: inner, provider: provider, model: model, logger: logger}
}

// Complete delegates and records the outcome.
func (g *InstrumentedGenerator) Complete(
	ctx context.Context, msgs []domain.Message, opts domain.GenerateOptions,
) (string, error) {
	domain.UsageFromContext(ctx).AddLLMCall()
	start := time.Now()

	out, err := g.inner.Complete(ctx, msgs, opts)
	g.record(callComplete, start, len(out), err)
	return out, err
}

// Stream delegates and records the outcome once the sequence ends.
// A consumer that stops early is recorded as "aborted".
func (g *InstrumentedGenerator) Stream(
	ctx context.Context, msgs []domain.Message, opts domain.GenerateOptions,
) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		domain.UsageFromContext(ctx).AddLLMCall()
		start := time.Now()
		size := 0

		for piece, err := range g.inner.Stream(ctx, msgs, opts) {
			if err != nil {
				g.record(callStream, start, size, err)
				yield("", err)
				return
			}
			size += len(piece)
			if !yield(piece, nil) {
				g.observe(callStream, "aborted", start)
				return
			}
		}
		g.record(callStream, start, size, nil)
	}
}

func (g *InstrumentedGenerator) record(call string, start time.Time, size int, err error) {
	if err != nil {
		g.observe(call, "error", start)
		g.logger.Error("Text generation failed",
			zap.String("provider", g.provider),
			zap.String("model", g.model),
			zap.String("call", call),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	g.observe(call, "ok", start)
	g.logger.Debug("Text generation completed",
		zap.String("provider", g.provider),
		zap.String("model", g.model),
		zap.String("call", call),
		zap.Duration("duration", time.Since(start)),
		zap.Int("bytes", size),
	)
}

func (g *InstrumentedGenerator) observe(call, status string, start time.Time) {
	metrics.LLMRequestsTotal.WithLabelValues(g.provider, g.model, call, status).Inc()
	metrics.LLMRequestDuration.WithLabelValues(g.provider, g.model, call).Observe(time.Since(start).Seconds())
}
