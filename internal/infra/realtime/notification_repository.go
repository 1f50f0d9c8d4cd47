package realtime

import (
	"bytes"
	"context"
	"sort"
	"time"

	"ordinem/internal/domain/entity"
	"ordinem/internal/domain/repository"

	"github.com/pkg/errors"
)

// readFlag tolerates the two encodings found in the wild: older device
// firmware writes booleans, the backend writes 0/1. Marshals as 0/1.
type readFlag bool

func (f readFlag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}

	return []byte("0"), nil
}

func (f *readFlag) UnmarshalJSON(data []byte) error {
	switch {
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("1")):
		*f = true
	default:
		*f = false
	}

	return nil
}

// notificationRecord is the wire shape of one entry under
// devices/{deviceID}/notifications/{id}.
type notificationRecord struct {
	Type           string   `json:"type"`
	Title          string   `json:"title"`
	Message        string   `json:"message"`
	ProductBarcode string   `json:"productBarcode,omitempty"`
	CreatedAt      int64    `json:"createdAt"`
	Read           readFlag `json:"read"`
}

// notificationRepository stores per-device notifications in the realtime
// database.
type notificationRepository struct {
	client *Client
}

// NewNotificationRepository is the constructor for notificationRepository.
func NewNotificationRepository(client *Client) repository.NotificationRepository {
	return &notificationRepository{
		client: client,
	}
}

func notificationsPath(deviceID string) string {
	return devicePath(deviceID) + "/notifications"
}

// ListByDevice reads every notification stored under one device. Order is
// not guaranteed here; the aggregator sorts the merged feed.
func (repo *notificationRepository) ListByDevice(ctx context.Context, deviceID string) ([]*entity.Notification, error) {
	var records map[string]notificationRecord
	if err := repo.client.Ref(notificationsPath(deviceID)).Get(ctx, &records); err != nil {
		return nil, errors.Wrap(err, "failed to read notifications")
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	notifications := make([]*entity.Notification, 0, len(records))
	for _, id := range ids {
		notifications = append(notifications, toNotificationDomain(deviceID, id, records[id]))
	}

	return notifications, nil
}

// Create appends a notification under the device and returns the generated
// push ID.
func (repo *notificationRepository) Create(ctx context.Context, deviceID string, notification *entity.Notification) (string, error) {
	record := fromNotificationDomain(notification)

	ref, err := repo.client.Ref(notificationsPath(deviceID)).Push(ctx, record)
	if err != nil {
		return "", errors.Wrap(err, "failed to create notification")
	}

	return ref.Key, nil
}

// MarkRead flips the read flag on a single notification. Only the one field
// is patched so a concurrent writer cannot be clobbered.
func (repo *notificationRepository) MarkRead(ctx context.Context, deviceID, id string) error {
	ref := repo.client.Ref(notificationsPath(deviceID)).Child(id)
	if err := ref.Update(ctx, map[string]any{"read": 1}); err != nil {
		return errors.Wrap(err, "failed to mark notification read")
	}

	return nil
}

// Delete removes a single notification. Removing an absent one succeeds.
func (repo *notificationRepository) Delete(ctx context.Context, deviceID, id string) error {
	ref := repo.client.Ref(notificationsPath(deviceID)).Child(id)
	if err := ref.Delete(ctx); err != nil {
		return errors.Wrap(err, "failed to delete notification")
	}

	return nil
}

// Watch streams change events for one device's notification list.
func (repo *notificationRepository) Watch(ctx context.Context, deviceID string, onChange func()) (repository.Subscription, error) {
	return repo.client.Watch(ctx, notificationsPath(deviceID), onChange)
}

func toNotificationDomain(deviceID, id string, record notificationRecord) *entity.Notification {
	return &entity.Notification{
		ID:             id,
		DeviceID:       deviceID,
		Type:           entity.ParseNotificationType(record.Type),
		Title:          record.Title,
		Message:        record.Message,
		ProductBarcode: record.ProductBarcode,
		CreatedAt:      time.UnixMilli(record.CreatedAt),
		Read:           bool(record.Read),
	}
}

func fromNotificationDomain(notification *entity.Notification) notificationRecord {
	return notificationRecord{
		Type:           string(notification.Type),
		Title:          notification.Title,
		Message:        notification.Message,
		ProductBarcode: notification.ProductBarcode,
		CreatedAt:      notification.CreatedAt.UnixMilli(),
		Read:           readFlag(notification.Read),
	}
}
