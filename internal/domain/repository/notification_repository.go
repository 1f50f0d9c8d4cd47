// Package repository defines the interfaces for the persistence and
// realtime-backend layers.
package repository

import (
	"context"

	"ordinem/internal/domain/entity"
)

// NotificationRepository defines operations on a single device's
// notification collection in the realtime backend. Notification ids are
// scoped to their device; every mutation therefore addresses the
// (deviceID, notificationID) pair.
type NotificationRepository interface {
	// ListByDevice reads the device's complete notification collection.
	ListByDevice(ctx context.Context, deviceID string) ([]*entity.Notification, error)

	// Create appends a notification to the device's collection and returns
	// the generated id.
	Create(ctx context.Context, deviceID string, notification *entity.Notification) (string, error)

	// MarkRead patches read=1 on the addressed record. The patch touches no
	// other field, so a failed attempt leaves nothing half-written.
	MarkRead(ctx context.Context, deviceID, notificationID string) error

	// Delete removes the addressed record.
	Delete(ctx context.Context, deviceID, notificationID string) error

	// Watch registers a listener on the device's notification collection.
	// onChange fires on any change under the collection until the
	// subscription is closed or ctx is cancelled; it may also fire once
	// with the initial state.
	Watch(ctx context.Context, deviceID string, onChange func()) (Subscription, error)
}
