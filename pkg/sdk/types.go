package playsearch

import (
	"github.com/kailas-cloud/playsearch/internal/domain/catalog"
	"github.com/kailas-cloud/playsearch/internal/domain/intent"
	"github.com/kailas-cloud/playsearch/internal/domain/search/chunk"
	"github.com/kailas-cloud/playsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/playsearch/internal/domain/search/response"
	"github.com/kailas-cloud/playsearch/internal/domain/search/stream"
	"github.com/kailas-cloud/playsearch/internal/domain/user"
	healthuc "github.com/kailas-cloud/playsearch/internal/usecase/health"
	identityuc "github.com/kailas-cloud/playsearch/internal/usecase/identity"
)

// Wire types shared with the server.
type (
	SearchResponse = response.SearchResponse
	Recommendation = response.Recommendation
	SourceChunk    = chunk.SourceChunk
	Intent         = intent.Result
	Tier           = response.Tier
	Event          = stream.Event
	EventType      = stream.Type
	User           = user.Context
	Token          = identityuc.Token
	CatalogStats   = catalog.Stats
	HealthStatus   = healthuc.Status
	HealthCheck    = healthuc.CheckResult
)

// Mode selects how the query is routed.
type Mode = mode.Mode

// Search modes.
const (
	ModeAuto        = mode.Auto
	ModeKnowledge   = mode.Knowledge
	ModePerformance = mode.Performance
)

// Stream frame types.
const (
	EventMeta  = stream.TypeMeta
	EventChunk = stream.TypeChunk
	EventDone  = stream.TypeDone
	EventError = stream.TypeError
)

// Health is the body of GET /health.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Checks  map[string]HealthCheck `json:"checks"`
	Catalog *CatalogStats          `json:"catalog,omitempty"`
}

type searchRequest struct {
	Query string `json:"query"`
	Mode  Mode   `json:"mode,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type recommendationsResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
}
