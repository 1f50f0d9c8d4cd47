package usecase

import (
	"context"

	"ordinem/internal/domain/entity"

	"github.com/google/uuid"
)

// FeedSubscription is a live handle on a user's aggregated notification
// feed. Mutations resolve their target against the currently materialized
// feed, keyed by the (deviceID, notificationID) pair; a target absent from
// the feed is a no-op, not an error. Close is idempotent and guarantees no
// further onUpdate calls after it returns.
type FeedSubscription interface {
	// Current returns the most recently materialized feed.
	Current() []*entity.Notification

	// MarkAsRead patches read=1 on the owning device's record.
	MarkAsRead(ctx context.Context, deviceID, notificationID string) error

	// DeleteNotification removes the owning device's record.
	DeleteNotification(ctx context.Context, deviceID, notificationID string) error

	// MarkAllAsRead marks every currently-unread notification in the feed,
	// issuing all writes concurrently. Any individual failure fails the
	// whole operation and reports which writes failed.
	MarkAllAsRead(ctx context.Context) error

	// DeleteAll removes every notification in the feed with the same
	// all-or-report-failure contract as MarkAllAsRead.
	DeleteAll(ctx context.Context) error

	// Close tears down the device-set listener and every per-device
	// listener.
	Close() error
}

// FeedUsecase presents a single deduplicated, time-ordered notification feed
// spanning all of a user's linked devices, live or one-shot, and routes
// mutations to the correct per-device record.
type FeedUsecase interface {
	// Subscribe begins watching the user's device-link set, fans out one
	// listener per linked device and delivers the full re-aggregated feed
	// to onUpdate on every change. With no linked devices, onUpdate fires
	// once with an empty feed and no device listeners are created.
	Subscribe(ctx context.Context, userID uuid.UUID, onUpdate func(feed []*entity.Notification)) (FeedSubscription, error)

	// Feed performs a single aggregation pass over the user's linked
	// devices.
	Feed(ctx context.Context, userID uuid.UUID) ([]*entity.Notification, error)

	// MarkAsRead materializes the user's feed once, then patches read=1 on
	// the addressed record if present (absent: no-op).
	MarkAsRead(ctx context.Context, userID uuid.UUID, deviceID, notificationID string) error

	// DeleteNotification materializes the feed once, then deletes the
	// addressed record if present (absent: no-op).
	DeleteNotification(ctx context.Context, userID uuid.UUID, deviceID, notificationID string) error

	// MarkAllAsRead materializes the feed once and marks every unread entry
	// concurrently; any failure fails the whole operation.
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error

	// DeleteAll materializes the feed once and deletes every entry
	// concurrently; any failure fails the whole operation.
	DeleteAll(ctx context.Context, userID uuid.UUID) error
}
