// Package repository defines the interfaces for the persistence and
// realtime-backend layers.
package repository

import (
	"context"

	"ordinem/internal/domain/entity"

	"github.com/pkg/errors"
)

// ErrDeviceRecordNotFound is returned when a device's own record does not
// exist in the realtime backend.
var ErrDeviceRecordNotFound = errors.New("device record not found")

// DeviceRepository defines operations on a device's own record (the data the
// cabinet reports), as opposed to the per-user ownership edges.
type DeviceRepository interface {
	// EnsureDevice idempotently initializes the device record with an empty
	// product set if it does not exist yet.
	EnsureDevice(ctx context.Context, deviceID string) error

	// FindDevice retrieves the device record with its last activity
	// timestamp and current product count.
	FindDevice(ctx context.Context, deviceID string) (*entity.Device, error)

	// RecordDetection stores a detected product under the device and bumps
	// the device's lastUpdate in a single patch.
	RecordDetection(ctx context.Context, deviceID string, product *entity.DetectedProduct) error
}
