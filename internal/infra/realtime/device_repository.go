package realtime

import (
	"context"
	"time"

	"ordinem/internal/domain/entity"
	"ordinem/internal/domain/repository"

	"github.com/pkg/errors"
)

// deviceRecord is the wire shape of devices/{deviceID}. Timestamps are epoch
// milliseconds, matching what the scanner firmware writes.
type deviceRecord struct {
	LastUpdate int64                      `json:"lastUpdate"`
	Products   map[string]detectionRecord `json:"products"`
}

type detectionRecord struct {
	Barcode    string `json:"barcode"`
	Name       string `json:"name,omitempty"`
	DetectedAt int64  `json:"detectedAt"`
	ExpiresAt  int64  `json:"expiresAt,omitempty"`
}

// deviceRepository reads and writes the device-owned records under
// devices/{deviceID}.
type deviceRepository struct {
	client *Client
	now    func() time.Time
}

// NewDeviceRepository is the constructor for deviceRepository.
func NewDeviceRepository(client *Client) repository.DeviceRepository {
	return &deviceRepository{
		client: client,
		now:    time.Now,
	}
}

func devicePath(deviceID string) string {
	return "devices/" + deviceID
}

// EnsureDevice initializes the device record if it does not exist yet. An
// already-initialized record keeps its data; only lastUpdate is refreshed.
func (repo *deviceRepository) EnsureDevice(ctx context.Context, deviceID string) error {
	ref := repo.client.Ref(devicePath(deviceID))

	update := map[string]any{
		"lastUpdate": repo.now().UnixMilli(),
	}
	if err := ref.Update(ctx, update); err != nil {
		return errors.Wrap(err, "failed to initialize device record")
	}

	return nil
}

// FindDevice reads the device record and reduces it to the summary the
// registry exposes.
func (repo *deviceRepository) FindDevice(ctx context.Context, deviceID string) (*entity.Device, error) {
	var record *deviceRecord
	if err := repo.client.Ref(devicePath(deviceID)).Get(ctx, &record); err != nil {
		return nil, errors.Wrap(err, "failed to read device record")
	}
	if record == nil {
		return nil, repository.ErrDeviceRecordNotFound
	}

	return &entity.Device{
		ID:           deviceID,
		LastUpdate:   time.UnixMilli(record.LastUpdate),
		ProductCount: len(record.Products),
	}, nil
}

// RecordDetection appends a detected product to the device's product map and
// bumps the activity timestamp in one patch.
func (repo *deviceRepository) RecordDetection(ctx context.Context, deviceID string, detection *entity.DetectedProduct) error {
	record := detectionRecord{
		Barcode:    detection.Barcode,
		Name:       detection.Name,
		DetectedAt: detection.DetectedAt.UnixMilli(),
	}
	if !detection.ExpiresAt.IsZero() {
		record.ExpiresAt = detection.ExpiresAt.UnixMilli()
	}

	update := map[string]any{
		"products/" + detection.Barcode: record,
		"lastUpdate":                    repo.now().UnixMilli(),
	}
	if err := repo.client.Ref(devicePath(deviceID)).Update(ctx, update); err != nil {
		return errors.Wrap(err, "failed to record detection")
	}

	return nil
}
