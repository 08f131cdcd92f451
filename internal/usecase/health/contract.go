package health

import (
	"context"

	"github.com/kailas-cloud/playsearch/internal/domain/catalog"
)

// Pinger checks a storage backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CatalogSource hands out the current catalog snapshot.
type CatalogSource interface {
	Current() *catalog.Catalog
}
