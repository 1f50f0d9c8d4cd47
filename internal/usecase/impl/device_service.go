package impl

import (
	"context"
	"log/slog"
	"time"

	"ordinem/internal/domain/entity"
	domainerrors "ordinem/internal/domain/errors"
	"ordinem/internal/domain/repository"
	"ordinem/internal/domain/service"
	"ordinem/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

type deviceService struct {
	linkRepo   repository.DeviceLinkRepository
	deviceRepo repository.DeviceRepository
	qrcodeSvc  service.QRCodeService
	logger     *slog.Logger
	now        func() time.Time
}

// DeviceServiceParams holds dependencies for DeviceService, injected by Fx.
type DeviceServiceParams struct {
	fx.In

	LinkRepo   repository.DeviceLinkRepository
	DeviceRepo repository.DeviceRepository
	QRCodeSvc  service.QRCodeService
	Logger     *slog.Logger
}

// NewDeviceService creates a new device registry service instance
func NewDeviceService(params DeviceServiceParams) usecase.DeviceUsecase {
	return &deviceService{
		linkRepo:   params.LinkRepo,
		deviceRepo: params.DeviceRepo,
		qrcodeSvc:  params.QRCodeSvc,
		logger:     params.Logger,
		now:        time.Now,
	}
}

// LinkDevice writes the ownership edge and idempotently initializes the
// device's own record. The link itself is the source of truth for "this user
// owns this device": a failed device-record initialization is logged but
// does not fail the link.
func (s *deviceService) LinkDevice(ctx context.Context, userID uuid.UUID, deviceID string) error {
	if userID == uuid.Nil {
		return domainerrors.ErrNotAuthenticated
	}

	if err := s.linkRepo.SetLink(ctx, userID, deviceID); err != nil {
		return domainerrors.ErrWriteFailed.WrapMessage("failed to link device " + deviceID)
	}

	if err := s.deviceRepo.EnsureDevice(ctx, deviceID); err != nil {
		s.logger.Warn("device record initialization failed",
			slog.String("device_id", deviceID),
			slog.Any("error", err),
		)
	}

	return nil
}

// UnlinkDevice removes the ownership edge only; the device's own reported
// data persists for other users who may still hold it.
func (s *deviceService) UnlinkDevice(ctx context.Context, userID uuid.UUID, deviceID string) error {
	if userID == uuid.Nil {
		return domainerrors.ErrNotAuthenticated
	}

	if err := s.linkRepo.RemoveLink(ctx, userID, deviceID); err != nil {
		return domainerrors.ErrWriteFailed.WrapMessage("failed to unlink device " + deviceID)
	}

	return nil
}

// ListLinkedDevices resolves the user's ownership edges and enriches each
// with activity data. A user must always see every device they linked, so an
// unreachable device record yields a placeholder instead of an omission.
func (s *deviceService) ListLinkedDevices(ctx context.Context, userID uuid.UUID) ([]*entity.Device, error) {
	if userID == uuid.Nil {
		return nil, domainerrors.ErrNotAuthenticated
	}

	deviceIDs, err := s.linkRepo.ListDeviceIDs(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list device links")
	}

	devices := make([]*entity.Device, 0, len(deviceIDs))
	for _, deviceID := range deviceIDs {
		device, err := s.deviceRepo.FindDevice(ctx, deviceID)
		if err != nil {
			s.logger.Warn("device unreachable, substituting placeholder",
				slog.String("device_id", deviceID),
				slog.Any("error", err),
			)
			device = &entity.Device{
				ID:           deviceID,
				LastUpdate:   s.now(),
				ProductCount: 0,
			}
		}
		devices = append(devices, device)
	}

	return devices, nil
}

// PairFromQR decodes a scanned pairing QR payload and links the device.
func (s *deviceService) PairFromQR(ctx context.Context, userID uuid.UUID, qrData string) (string, error) {
	deviceID, err := s.qrcodeSvc.ParsePairingQR(qrData)
	if err != nil {
		return "", domainerrors.ErrInvalidQRCode.WithDetails(err.Error())
	}

	if err := s.LinkDevice(ctx, userID, deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

// PairingQR renders the pairing QR code for a device.
func (s *deviceService) PairingQR(deviceID string) ([]byte, error) {
	png, err := s.qrcodeSvc.GeneratePairingQR(deviceID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate pairing QR")
	}

	return png, nil
}
