package chi

import (
	"context"
	"iter"

	"github.com/kailas-cloud/playsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/playsearch/internal/domain/search/response"
	"github.com/kailas-cloud/playsearch/internal/domain/search/stream"
	"github.com/kailas-cloud/playsearch/internal/domain/user"
	healthuc "github.com/kailas-cloud/playsearch/internal/usecase/health"
	identityuc "github.com/kailas-cloud/playsearch/internal/usecase/identity"
)

// Searcher runs searches for an authenticated user.
type Searcher interface {
	Run(ctx context.Context, u *user.Context, query string, m mode.Mode) (response.SearchResponse, error)
	RunStream(ctx context.Context, u *user.Context, query string, m mode.Mode) iter.Seq[stream.Event]
	Recommendations(u *user.Context, limit int) []response.Recommendation
}

// Authenticator issues and verifies access tokens.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (identityuc.Token, error)
	Authenticate(ctx context.Context, raw string) (*user.Context, error)
}

// HealthChecker reports the state of the backends.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
