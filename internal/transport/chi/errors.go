package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/playsearch/internal/domain"
	"github.com/kailas-cloud/playsearch/internal/logger"
	searchuc "github.com/kailas-cloud/playsearch/internal/usecase/search"
)

// ErrorCode is the machine-readable part of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest              ErrorCode = "bad_request"
	CodeValidationFailed        ErrorCode = "validation_failed"
	CodeUnauthorized            ErrorCode = "unauthorized"
	CodeInvalidCredentials      ErrorCode = "invalid_credentials"
	CodeNotFound                ErrorCode = "not_found"
	CodeRateLimited             ErrorCode = "rate_limited"
	CodeEmbeddingQuotaExceeded  ErrorCode = "embedding_quota_exceeded"
	CodeRetrievalProviderError  ErrorCode = "retrieval_provider_error"
	CodeGenerationProviderError ErrorCode = "generation_provider_error"
	CodeInternalError           ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorRoute maps a domain sentinel to an HTTP status. Order matters:
// the quota sentinel is wrapped inside a retrieval error, so it goes first.
type errorRoute struct {
	sentinel error
	status   int
	code     ErrorCode
	message  func(error) string
}

func fixed(msg string) func(error) string {
	return func(error) string { return msg }
}

var errorRoutes = []errorRoute{
	{domain.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized, fixed("Could not validate credentials")},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials,
		fixed("Incorrect username or password")},
	{domain.ErrInvalidQuery, http.StatusBadRequest, CodeValidationFailed, fixed("invalid query")},
	{domain.ErrNotFound, http.StatusNotFound, CodeNotFound, fixed("not found")},
	{domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited, fixed("Rate limit exceeded")},
	{domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, CodeEmbeddingQuotaExceeded,
		searchuc.ErrorMessage},
	{domain.ErrRetrievalProvider, http.StatusBadGateway, CodeRetrievalProviderError, searchuc.ErrorMessage},
	{domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeRetrievalProviderError, searchuc.ErrorMessage},
	{domain.ErrGenerationProvider, http.StatusBadGateway, CodeGenerationProviderError, searchuc.ErrorMessage},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// handleDomainError writes the response for an error returned by a use case.
// Unknown errors (including an unscoped retrieval filter) become a bare 500.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, route := range errorRoutes {
		if !errors.Is(err, route.sentinel) {
			continue
		}
		if route.status >= http.StatusInternalServerError {
			log.Error("Upstream failure", zap.Error(err))
		} else {
			log.Debug("Request rejected", zap.Error(err))
		}
		writeError(w, route.status, route.code, route.message(err))
		return
	}
	log.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
