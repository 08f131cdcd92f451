package domain

import (
	"context"
	"sync"
)

type usageKey struct{}

// Usage collects provider consumption for a single HTTP request.
// The handler puts a pointer into the context before calling the orchestrator;
// the decorators write to it; the handler reads it for response headers.
type Usage struct {
	mu              sync.Mutex
	embeddingTokens int
	embeddingUsed   bool
	llmCalls        int
}

// NewContextWithUsage returns a context with an attached usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbeddingTokens records consumed embedding tokens. A cache hit records zero.
func (u *Usage) AddEmbeddingTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.embeddingTokens += n
	u.embeddingUsed = true
	u.mu.Unlock()
}

// AddLLMCall records one text generation request.
func (u *Usage) AddLLMCall() {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.llmCalls++
	u.mu.Unlock()
}

// EmbeddingTokens returns the tokens consumed and whether embedding ran at all.
func (u *Usage) EmbeddingTokens() (int, bool) {
	if u == nil {
		return 0, false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.embeddingTokens, u.embeddingUsed
}

// LLMCalls returns the number of generation requests.
func (u *Usage) LLMCalls() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.llmCalls
}
