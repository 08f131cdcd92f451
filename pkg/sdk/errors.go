package playsearch

import (
	"fmt"

	"github.com/kailas-cloud/playsearch/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrUnauthorized           = domain.ErrUnauthorized
	ErrInvalidCredentials     = domain.ErrInvalidCredentials
	ErrRateLimited            = domain.ErrRateLimited
	ErrRetrievalProvider      = domain.ErrRetrievalProvider
	ErrGenerationProvider     = domain.ErrGenerationProvider
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("playsearch: http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("playsearch: http %d %s: %s", e.Status, e.Code, e.Message)
}

// Is maps the server error code onto the re-exported sentinels.
func (e *APIError) Is(target error) bool {
	return sentinelFor(e.Code) == target
}

func sentinelFor(code string) error {
	switch code {
	case "unauthorized":
		return ErrUnauthorized
	case "invalid_credentials":
		return ErrInvalidCredentials
	case "bad_request", "validation_failed":
		return ErrInvalidQuery
	case "not_found":
		return ErrNotFound
	case "rate_limited":
		return ErrRateLimited
	case "embedding_quota_exceeded":
		return ErrEmbeddingQuotaExceeded
	case "retrieval_provider_error":
		return ErrRetrievalProvider
	case "generation_provider_error":
		return ErrGenerationProvider
	default:
		return nil
	}
}

// StreamError is an error frame received on the search stream.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return "playsearch: stream error: " + e.Message
}
