// Package entity contains the core business objects of the project.
package entity

import (
	"time"
)

// NotificationType classifies a device notification by expiry urgency.
type NotificationType string

const (
	// NotificationExpired marks a product whose expiry date has passed.
	NotificationExpired NotificationType = "expired"
	// NotificationExpiringSoon marks a product expiring within three days.
	NotificationExpiringSoon NotificationType = "expiring_soon"
	// NotificationExpiringWeek marks a product expiring within a week.
	NotificationExpiringWeek NotificationType = "expiring_week"
	// NotificationOther covers everything else a device may report.
	NotificationOther NotificationType = "other"
)

// ParseNotificationType maps a stored type string to a NotificationType.
// Unknown values decode as NotificationOther so a newer device firmware
// cannot break older readers.
func ParseNotificationType(s string) NotificationType {
	switch NotificationType(s) {
	case NotificationExpired, NotificationExpiringSoon, NotificationExpiringWeek:
		return NotificationType(s)
	default:
		return NotificationOther
	}
}

// Notification is a single entry in a device's notification collection.
//
// ID is unique only within the owning device's collection; two devices may
// both hold a notification "n1". Every consumer must therefore key on the
// (DeviceID, ID) pair, never on ID alone.
type Notification struct {
	ID             string           `json:"id"`
	DeviceID       string           `json:"device_id"`
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	ProductBarcode string           `json:"product_barcode,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	Read           bool             `json:"read"`
}

// NotificationKey is the composite identity of a notification across devices.
type NotificationKey struct {
	DeviceID string
	ID       string
}

// Key returns the cross-device identity of the notification.
func (n *Notification) Key() NotificationKey {
	return NotificationKey{DeviceID: n.DeviceID, ID: n.ID}
}
