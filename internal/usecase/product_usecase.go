// Package usecase defines the interfaces for the application's use cases.
package usecase

import (
	"context"

	"ordinem/internal/domain/entity"
)

// Sources for a resolved product lookup.
const (
	SourceCache = "cache"
	SourceAPI   = "api"
)

// ProductResult is the outcome of a barcode lookup. Product is nil when the
// remote database completed the lookup but has no record.
type ProductResult struct {
	Product *entity.Product `json:"product"`
	Source  string          `json:"source"`
}

// ProductUsecase resolves barcodes to product metadata through the local
// expiring cache and the remote product database.
type ProductUsecase interface {
	// FetchProduct resolves a barcode, preferring the cache. A transport or
	// HTTP failure of the remote lookup is returned as an error; a clean
	// not-found is a nil Product with Source "api".
	FetchProduct(ctx context.Context, barcode string) (*ProductResult, error)

	// ClearCache removes every cached product entry and returns the count
	// removed. Backs the manual "clear cache" user action.
	ClearCache(ctx context.Context) (int64, error)
}
