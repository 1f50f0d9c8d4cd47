package usecase

import (
	"context"

	"ordinem/internal/domain/entity"

	"github.com/google/uuid"
)

// DeviceUsecase maintains the set of devices linked to a user and exposes
// enriched listings.
type DeviceUsecase interface {
	// LinkDevice writes the ownership edge for the user and idempotently
	// initializes the device's own record. Requires an authenticated user.
	LinkDevice(ctx context.Context, userID uuid.UUID, deviceID string) error

	// UnlinkDevice removes the ownership edge only. Idempotent: unlinking a
	// device that is not linked is a no-op.
	UnlinkDevice(ctx context.Context, userID uuid.UUID, deviceID string) error

	// ListLinkedDevices resolves the user's ownership edges and enriches
	// each with last activity and product count. Unreachable devices yield
	// a placeholder entry rather than being omitted.
	ListLinkedDevices(ctx context.Context, userID uuid.UUID) ([]*entity.Device, error)

	// PairFromQR parses a scanned pairing QR payload and links the encoded
	// device. Returns the device id on success.
	PairFromQR(ctx context.Context, userID uuid.UUID, qrData string) (string, error)

	// PairingQR renders the pairing QR code for a device as a PNG.
	PairingQR(deviceID string) ([]byte, error)
}
