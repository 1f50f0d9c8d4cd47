// Package repository defines the interfaces for the persistence and
// realtime-backend layers.
package repository

import (
	"context"

	"ordinem/internal/domain/entity"

	"github.com/pkg/errors"
)

// ErrCacheEntryNotFound is returned when no entry exists for a barcode.
var ErrCacheEntryNotFound = errors.New("cache entry not found")

// ProductCacheRepository is the durable namespaced key-value store backing
// the product lookup cache. It stores payloads with their write timestamp;
// TTL policy lives in the usecase layer, not here.
type ProductCacheRepository interface {
	// Find retrieves the entry for a barcode, or ErrCacheEntryNotFound.
	Find(ctx context.Context, barcode string) (*entity.CacheEntry, error)

	// Save upserts the payload for a barcode with the current write
	// timestamp. Concurrent saves for the same key are last-write-wins.
	Save(ctx context.Context, barcode string, product *entity.Product) error

	// Delete removes the entry for a barcode; missing entries are a no-op.
	Delete(ctx context.Context, barcode string) error

	// Purge removes every entry in the cache namespace and returns the
	// number removed.
	Purge(ctx context.Context) (int64, error)
}
