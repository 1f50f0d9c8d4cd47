// Package entity contains the core business objects of the project.
package entity

import (
	"time"
)

// CacheEntry is a product payload stored in the local lookup cache together
// with its write timestamp.
type CacheEntry struct {
	Barcode   string    `json:"barcode"`
	Product   Product   `json:"product"`
	WrittenAt time.Time `json:"written_at"`
}

// Expired reports whether the entry's age exceeds ttl at the given instant.
// Expiry is binary; there is no soft or partial expiry.
func (e *CacheEntry) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.WrittenAt) > ttl
}
