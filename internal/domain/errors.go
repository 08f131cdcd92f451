package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery signals a malformed search request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUnauthorized signals a missing, expired or untrusted credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials signals a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")

	// ErrRetrievalProvider signals an embedding or vector index failure during retrieval.
	ErrRetrievalProvider = errors.New("retrieval provider error")
	// ErrGenerationProvider signals a text generation failure.
	ErrGenerationProvider = errors.New("generation provider error")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrFilterUnscoped signals a retrieval filter without the tenant fence.
	ErrFilterUnscoped = errors.New("retrieval filter is not tenant scoped")
)
