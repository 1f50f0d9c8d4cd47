// Package repository defines the interfaces for the persistence and
// realtime-backend layers.
package repository

import (
	"context"

	"github.com/google/uuid"
)

// DeviceLinkRepository maintains the ownership edges between users and
// devices. A user's visible device set is exactly the set of linked ids.
type DeviceLinkRepository interface {
	// SetLink writes the ownership edge (userID, deviceID). Overwriting an
	// existing edge is a no-op.
	SetLink(ctx context.Context, userID uuid.UUID, deviceID string) error

	// RemoveLink deletes the ownership edge only; the device's own record is
	// untouched. Removing a missing edge is not an error.
	RemoveLink(ctx context.Context, userID uuid.UUID, deviceID string) error

	// ListDeviceIDs returns the ids of all devices currently linked to the
	// user, in stable order.
	ListDeviceIDs(ctx context.Context, userID uuid.UUID) ([]string, error)

	// WatchDeviceIDs registers a listener on the user's link set. onChange
	// fires with the current set on registration and again after every
	// change until the subscription is closed or ctx is cancelled.
	WatchDeviceIDs(ctx context.Context, userID uuid.UUID, onChange func(deviceIDs []string)) (Subscription, error)
}
