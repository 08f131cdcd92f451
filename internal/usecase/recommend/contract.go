package recommend

import "github.com/kailas-cloud/playsearch/internal/domain/catalog"

// CatalogSource hands out the current catalog snapshot. It may return nil
// before the first load.
type CatalogSource interface {
	Current() *catalog.Catalog
}
