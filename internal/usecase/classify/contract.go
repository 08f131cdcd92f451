package classify

import (
	"context"

	"github.com/kailas-cloud/playsearch/internal/domain"
)

// Completer runs a blocking text generation call.
type Completer interface {
	Complete(ctx context.Context, msgs []domain.Message, opts domain.GenerateOptions) (string, error)
}
