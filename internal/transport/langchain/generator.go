// Package langchain adapts langchaingo chat models to domain.TextGenerator.
package langchain

import (
	"context"
	"fmt"
	"iter"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/kailas-cloud/playsearch/internal/domain"
)

// Config selects the model of a langchaingo backed provider.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Generator implements domain.TextGenerator on any llms.Model.
type Generator struct {
	model llms.Model
}

// New wraps an existing model.
func New(model llms.Model) *Generator {
	return &Generator{model: model}
}

// NewAnthropic creates a generator backed by the Anthropic messages API.
func NewAnthropic(cfg Config) (*Generator, error) {
	opts := []anthropic.Option{anthropic.WithToken(cfg.APIKey), anthropic.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	m, err := anthropic.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("anthropic client: %w", err)
	}
	return New(m), nil
}

// NewOllama creates a generator backed by a local Ollama server.
func NewOllama(cfg Config) (*Generator, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	m, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	return New(m), nil
}

func content(msgs []domain.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		role := llms.ChatMessageTypeHuman
		if m.Role == domain.RoleSystem {
			role = llms.ChatMessageTypeSystem
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out
}

func callOptions(opts domain.GenerateOptions) []llms.CallOption {
	return []llms.CallOption{
		llms.WithMaxTokens(opts.MaxTokens),
		llms.WithTemperature(opts.Temperature),
	}
}

// Complete returns the first choice's text.
func (g *Generator) Complete(ctx context.Context, msgs []domain.Message, opts domain.GenerateOptions) (string, error) {
	resp, err := g.model.GenerateContent(ctx, content(msgs), callOptions(opts)...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationProvider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", domain.ErrGenerationProvider)
	}
	return resp.Choices[0].Content, nil
}

// Stream turns the model's streaming callback into a pull sequence.
// Breaking out of the loop cancels the provider call.
func (g *Generator) Stream(ctx context.Context, msgs []domain.Message, opts domain.GenerateOptions) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		pieces := make(chan string)
		done := make(chan error, 1)

		go func() {
			defer close(pieces)
			onChunk := func(ctx context.Context, chunk []byte) error {
				select {
				case pieces <- string(chunk):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			_, err := g.model.GenerateContent(ctx, content(msgs),
				append(callOptions(opts), llms.WithStreamingFunc(onChunk))...)
			done <- err
		}()

		for p := range pieces {
			if p == "" {
				continue
			}
			if !yield(p, nil) {
				return
			}
		}
		if err := <-done; err != nil {
			yield("", fmt.Errorf("%w: %w", domain.ErrGenerationProvider, err))
		}
	}
}
