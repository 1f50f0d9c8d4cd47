// Package entity contains the core business objects of the project.
package entity

import (
	"time"
)

// Device represents a physical storage device (smart cabinet) that reports
// detected products into the realtime backend. A device is created implicitly
// on first pairing and is never explicitly deleted; unlinking only removes the
// ownership edge, so other users who paired the same cabinet keep its data.
type Device struct {
	ID           string    `json:"id"`            // Opaque identifier printed on the device / encoded in its pairing QR.
	LastUpdate   time.Time `json:"last_update"`   // Timestamp of the last reported activity.
	ProductCount int       `json:"product_count"` // Number of products currently reported by the device.
}

// DetectedProduct is a single product currently reported by a device.
type DetectedProduct struct {
	Barcode    string    `json:"barcode"`
	Name       string    `json:"name,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
