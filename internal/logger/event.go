package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type eventKey struct{}

// Event accumulates fields for the canonical per-request log line.
// Handlers and use cases annotate it; the HTTP middleware writes it once.
type Event struct {
	mu     sync.Mutex
	fields []zap.Field
}

// ContextWithEvent attaches an empty wide event to the context.
func ContextWithEvent(ctx context.Context) (context.Context, *Event) {
	e := &Event{}
	return context.WithValue(ctx, eventKey{}, e), e
}

// Annotate adds fields to the request's wide event. No-op outside a request.
func Annotate(ctx context.Context, fields ...zap.Field) {
	e, ok := ctx.Value(eventKey{}).(*Event)
	if !ok {
		return
	}
	e.mu.Lock()
	e.fields = append(e.fields, fields...)
	e.mu.Unlock()
}

// Fields returns a copy of the accumulated fields.
func (e *Event) Fields() []zap.Field {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]zap.Field, len(e.fields))
	copy(out, e.fields)
	return out
}
