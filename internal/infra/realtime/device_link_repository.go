package realtime

import (
	"context"
	"sort"

	"ordinem/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// deviceLinkRepository stores user-to-device ownership edges under
// users/{uid}/devices/{deviceID} = true.
type deviceLinkRepository struct {
	client *Client
}

// NewDeviceLinkRepository is the constructor for deviceLinkRepository.
func NewDeviceLinkRepository(client *Client) repository.DeviceLinkRepository {
	return &deviceLinkRepository{
		client: client,
	}
}

func userDevicesPath(userID uuid.UUID) string {
	return "users/" + userID.String() + "/devices"
}

// SetLink writes the ownership edge. Overwriting an existing edge is a no-op.
func (repo *deviceLinkRepository) SetLink(ctx context.Context, userID uuid.UUID, deviceID string) error {
	ref := repo.client.Ref(userDevicesPath(userID)).Child(deviceID)
	if err := ref.Set(ctx, true); err != nil {
		return errors.Wrap(err, "failed to set device link")
	}

	return nil
}

// RemoveLink deletes the ownership edge. Deleting an absent edge succeeds.
func (repo *deviceLinkRepository) RemoveLink(ctx context.Context, userID uuid.UUID, deviceID string) error {
	ref := repo.client.Ref(userDevicesPath(userID)).Child(deviceID)
	if err := ref.Delete(ctx); err != nil {
		return errors.Wrap(err, "failed to remove device link")
	}

	return nil
}

// ListDeviceIDs returns the user's linked device IDs in stable lexicographic
// order. A user with no links gets an empty slice, not an error.
func (repo *deviceLinkRepository) ListDeviceIDs(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var links map[string]bool
	if err := repo.client.Ref(userDevicesPath(userID)).Get(ctx, &links); err != nil {
		return nil, errors.Wrap(err, "failed to read device links")
	}

	deviceIDs := make([]string, 0, len(links))
	for deviceID, linked := range links {
		if linked {
			deviceIDs = append(deviceIDs, deviceID)
		}
	}
	sort.Strings(deviceIDs)

	return deviceIDs, nil
}

// WatchDeviceIDs streams the user's device set. onChange receives the current
// set immediately on registration and again after every link change.
func (repo *deviceLinkRepository) WatchDeviceIDs(ctx context.Context, userID uuid.UUID, onChange func(deviceIDs []string)) (repository.Subscription, error) {
	return repo.client.Watch(ctx, userDevicesPath(userID), func() {
		deviceIDs, err := repo.ListDeviceIDs(ctx, userID)
		if err != nil {
			// The stream said the set changed but the follow-up read failed;
			// skip this tick, the next event re-reads.
			return
		}
		onChange(deviceIDs)
	})
}
