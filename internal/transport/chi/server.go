package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/playsearch/internal/domain"
	"github.com/kailas-cloud/playsearch/internal/domain/catalog"
	"github.com/kailas-cloud/playsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/playsearch/internal/domain/search/response"
	"github.com/kailas-cloud/playsearch/internal/domain/user"
	logpkg "github.com/kailas-cloud/playsearch/internal/logger"
	"github.com/kailas-cloud/playsearch/internal/metrics"
	healthuc "github.com/kailas-cloud/playsearch/internal/usecase/health"
	"github.com/kailas-cloud/playsearch/internal/usecase/recommend"
)

const (
	maxQueryLen        = 500
	maxRecommendations = 20
	maxBodyBytes       = 64 << 10
)

// SearchRequest is the body of POST /search and POST /search/stream.
type SearchRequest struct {
	Query string    `json:"query" validate:"required,max=500"`
	Mode  mode.Mode `json:"mode,omitempty" validate:"omitempty,oneof=auto knowledge performance"`
}

// LoginRequest is the body of POST /auth/token.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

// RecommendationsResponse is the body of GET /recommendations.
type RecommendationsResponse struct {
	Recommendations []response.Recommendation `json:"recommendations"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  healthuc.Status                 `json:"status"`
	Checks  map[string]healthuc.CheckResult `json:"checks"`
	Catalog *catalog.Stats                  `json:"catalog,omitempty"`
}

// Limits holds the per-minute request limits. Values <= 0 disable a limit.
type Limits struct {
	SearchPerMinute int
	LoginPerMinute  int
}

// Server serves the search API.
type Server struct {
	search      Searcher
	auth        Authenticator
	health      HealthChecker
	validate    *validator.Validate
	searchLimit *keyedLimiter
	loginLimit  *keyedLimiter
	logger      *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, auth Authenticator, health HealthChecker, limits Limits, logger *zap.Logger) *Server {
	return &Server{
		search:      search,
		auth:        auth,
		health:      health,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		searchLimit: newKeyedLimiter(limits.SearchPerMinute),
		loginLimit:  newKeyedLimiter(limits.LoginPerMinute),
		logger:      logger,
	}
}

// Routes builds the router with the middleware chain.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/auth/token", s.Login)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/auth/me", s.Me)
		r.Get("/recommendations", s.Recommendations)
		r.Post("/search", s.Search)
		r.Post("/search/stream", s.SearchStream)
	})
	return r
}

// Login handles POST /auth/token.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	if !s.loginLimit.Allow(clientIP(r)) {
		handleDomainError(w, r, domain.ErrRateLimited)
		return
	}

	var req LoginRequest
	if !s.decode(w, r, &req) {
		return
	}

	tok, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// Me handles GET /auth/me.
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := user.FromContext(r.Context())
	writeJSON(w, http.StatusOK, u)
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	u, req, ok := s.searchRequest(w, r)
	if !ok {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.search.Run(ctx, u, req.Query, req.Mode)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, resp)
}

// SearchStream handles POST /search/stream. Every event is written as one
// `data: {json}\n\n` frame and flushed immediately.
func (s *Server) SearchStream(w http.ResponseWriter, r *http.Request) {
	u, req, ok := s.searchRequest(w, r)
	if !ok {
		return
	}

	rc := http.NewResponseController(w)
	// the server write timeout is meant for JSON routes
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ctx, _ := domain.NewContextWithUsage(r.Context())
	frames := 0
	for ev := range s.search.RunStream(ctx, u, req.Query, req.Mode) {
		data, err := json.Marshal(ev)
		if err != nil {
			logpkg.FromContext(ctx).Error("Failed to encode stream frame", zap.Error(err))
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			logpkg.FromContext(ctx).Debug("Client went away", zap.Error(err))
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
		frames++
	}
	logpkg.Annotate(ctx, zap.Int("frames", frames))
}

// Recommendations handles GET /recommendations?limit=N.
func (s *Server) Recommendations(w http.ResponseWriter, r *http.Request) {
	var limit *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter limit")
		return
	}
	n := recommend.DefaultMaxResults
	if limit != nil {
		if *limit < 1 || *limit > maxRecommendations {
			writeError(w, http.StatusBadRequest, CodeValidationFailed,
				"limit must be between 1 and "+strconv.Itoa(maxRecommendations))
			return
		}
		n = *limit
	}

	u, _ := user.FromContext(r.Context())
	recs := s.search.Recommendations(u, n)
	if recs == nil {
		recs = []response.Recommendation{}
	}
	writeJSON(w, http.StatusOK, RecommendationsResponse{Recommendations: recs})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{
		Status:  report.Status,
		Checks:  report.Checks,
		Catalog: report.Catalog,
	})
}

func (s *Server) searchRequest(w http.ResponseWriter, r *http.Request) (*user.Context, SearchRequest, bool) {
	u, _ := user.FromContext(r.Context())
	if !s.searchLimit.Allow(u.UserID) {
		handleDomainError(w, r, domain.ErrRateLimited)
		return nil, SearchRequest{}, false
	}

	var req SearchRequest
	if !s.decode(w, r, &req) {
		return nil, SearchRequest{}, false
	}
	logpkg.Annotate(r.Context(),
		zap.Int("query_len", len(req.Query)),
		zap.String("mode", string(req.Mode)),
	)
	return u, req, true
}

// decode reads a JSON body, trims string fields the validator checks and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return false
	}

	switch v := dst.(type) {
	case *SearchRequest:
		v.Query = strings.TrimSpace(v.Query)
	case *LoginRequest:
		v.Username = strings.TrimSpace(v.Username)
	}

	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		if fe.Field() == "Query" {
			return "query must be at most " + strconv.Itoa(maxQueryLen) + " characters"
		}
		return field + " is too long"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	default:
		return field + " is invalid"
	}
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.Usage) {
	if tokens, used := usage.EmbeddingTokens(); used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(tokens))
	}
	if calls := usage.LLMCalls(); calls > 0 {
		w.Header().Set("X-LLM-Calls", strconv.Itoa(calls))
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
