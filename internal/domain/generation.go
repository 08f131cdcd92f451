package domain

import (
	"context"
	"iter"
)

// Role is the author of a chat message.
type Role string

// Message roles.
const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one turn of a prompt.
type Message struct {
	Role    Role
	Content string
}

// GenerateOptions tunes a single generation call.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// TextGenerator is the capability every configured LLM provider implements.
//
// Stream yields text increments in order. The sequence is finite and not
// restartable; the caller cancels it by breaking out of the range loop.
// A provider failure is yielded once as a non-nil error and ends the sequence.
type TextGenerator interface {
	Complete(ctx context.Context, msgs []Message, opts GenerateOptions) (string, error)
	Stream(ctx context.Context, msgs []Message, opts GenerateOptions) iter.Seq2[string, error]
}
