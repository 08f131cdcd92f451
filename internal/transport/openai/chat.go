package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/playsearch/internal/domain"
)

// Chat implements domain.TextGenerator over the chat completions API.
type Chat struct {
	client *openai.Client
	model  string
	user   string
}

// NewChat creates a chat completion provider.
func NewChat(cfg *Config) *Chat {
	return &Chat{
		client: newClient(cfg),
		model:  cfg.Model,
		user:   cfg.User,
	}
}

func (c *Chat) request(msgs []domain.Message, opts domain.GenerateOptions, stream bool) openai.ChatCompletionRequest {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		role := openai.ChatMessageRoleUser
		if m.Role == domain.RoleSystem {
			role = openai.ChatMessageRoleSystem
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	// Нулевая температура выпадает из JSON (omitempty), и API подставляет 1.
	temp := float32(opts.Temperature)
	if temp == 0 {
		temp = math.SmallestNonzeroFloat32
	}

	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    out,
		MaxTokens:   opts.MaxTokens,
		Temperature: temp,
		User:        c.user,
		Stream:      stream,
	}
}

// Complete returns the first choice's full text.
func (c *Chat) Complete(ctx context.Context, msgs []domain.Message, opts domain.GenerateOptions) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.request(msgs, opts, false))
	if err != nil {
		return "", parseAPIError("chat", err, domain.ErrGenerationProvider)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty chat response: %w", domain.ErrGenerationProvider)
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream relays content deltas until the server closes the stream.
// Breaking out of the loop closes the underlying connection.
func (c *Chat) Stream(ctx context.Context, msgs []domain.Message, opts domain.GenerateOptions) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream, err := c.client.CreateChatCompletionStream(ctx, c.request(msgs, opts, true))
		if err != nil {
			yield("", parseAPIError("chat stream", err, domain.ErrGenerationProvider))
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", parseAPIError("chat stream", err, domain.ErrGenerationProvider))
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			if !yield(resp.Choices[0].Delta.Content, nil) {
				return
			}
		}
	}
}
