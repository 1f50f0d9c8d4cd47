// Package service defines interfaces for external collaborator services.
package service

import (
	"context"

	"ordinem/internal/domain/entity"

	"github.com/pkg/errors"
)

// ErrProductNotFound is returned when the remote database completed the
// lookup but has no record for the barcode. It is distinct from a transport
// failure: callers must be able to tell "no such product" from "could not
// check".
var ErrProductNotFound = errors.New("product not found in catalog")

// ProductCatalog resolves a barcode against the remote product database.
type ProductCatalog interface {
	// Lookup fetches product metadata by barcode. Returns
	// ErrProductNotFound for a clean miss; any other error is a transport
	// or HTTP-level failure.
	Lookup(ctx context.Context, barcode string) (*entity.Product, error)
}
