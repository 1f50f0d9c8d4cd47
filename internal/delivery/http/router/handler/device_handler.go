package handler

import (
	"log/slog"
	"net/http"
	"time"

	deliverycontext "ordinem/internal/delivery/context"
	"ordinem/internal/delivery/http/middleware"
	"ordinem/internal/delivery/http/response"
	"ordinem/internal/domain/service"
	"ordinem/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// DeviceHandlerParams holds dependencies for DeviceHandler, injected by Fx.
type DeviceHandlerParams struct {
	fx.In

	DeviceUC  usecase.DeviceUsecase
	Publisher service.EventPublisher
	Logger    *slog.Logger
}

// DeviceHandler holds dependencies for device-related handlers
type DeviceHandler struct {
	deviceUC  usecase.DeviceUsecase
	publisher service.EventPublisher
	logger    *slog.Logger
}

// NewDeviceHandler is the constructor for DeviceHandler
func NewDeviceHandler(params DeviceHandlerParams) *DeviceHandler {
	return &DeviceHandler{
		deviceUC:  params.DeviceUC,
		publisher: params.Publisher,
		logger:    params.Logger,
	}
}

// PairDeviceRequest represents the request body for pairing by QR payload
type PairDeviceRequest struct {
	QRData string `json:"qr_data" validate:"required"`
}

// ReportDetectionRequest represents the request body a scanner device sends
// when it detects a product
type ReportDetectionRequest struct {
	Barcode   string `json:"barcode" validate:"required"`
	Name      string `json:"name"`
	ExpiresAt int64  `json:"expires_at"` // epoch milliseconds, optional
}

// PairDevice handles pairing via a scanned QR payload
func (h *DeviceHandler) PairDevice(c echo.Context) error {
	userID := middleware.UserID(c)

	var req PairDeviceRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid pairing input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	deviceID, err := h.deviceUC.PairFromQR(c.Request().Context(), userID, req.QRData)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, map[string]string{"device_id": deviceID})
}

// LinkDevice handles linking a device to the authenticated user
func (h *DeviceHandler) LinkDevice(c echo.Context) error {
	userID := middleware.UserID(c)
	deviceID := c.Param("id")

	if err := h.deviceUC.LinkDevice(c.Request().Context(), userID, deviceID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, map[string]string{"device_id": deviceID})
}

// UnlinkDevice handles removing the link between the user and a device
func (h *DeviceHandler) UnlinkDevice(c echo.Context) error {
	userID := middleware.UserID(c)
	deviceID := c.Param("id")

	if err := h.deviceUC.UnlinkDevice(c.Request().Context(), userID, deviceID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Device unlinked successfully"})
}

// ListDevices handles retrieving the user's linked devices
func (h *DeviceHandler) ListDevices(c echo.Context) error {
	userID := middleware.UserID(c)

	devices, err := h.deviceUC.ListLinkedDevices(c.Request().Context(), userID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, devices)
}

// PairingQR renders the pairing QR code for a device as a PNG image
func (h *DeviceHandler) PairingQR(c echo.Context) error {
	deviceID := c.Param("id")
	if deviceID == "" {
		return response.BadRequest(c, "INVALID_ID", "Device ID is required")
	}

	png, err := h.deviceUC.PairingQR(deviceID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return c.Blob(http.StatusOK, "image/png", png)
}

// ReportDetection accepts a product detection from a scanner device and hands
// it to the processing pipeline
func (h *DeviceHandler) ReportDetection(c echo.Context) error {
	deviceID := c.Param("id")
	if deviceID == "" {
		return response.BadRequest(c, "INVALID_ID", "Device ID is required")
	}

	var req ReportDetectionRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid detection input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	event := &service.DetectionEvent{
		DeviceID:    deviceID,
		Barcode:     req.Barcode,
		ProductName: req.Name,
		DetectedAt:  time.Now(),
		RequestID:   deliverycontext.GetRequestID(c),
	}
	if req.ExpiresAt > 0 {
		event.ExpiresAt = time.UnixMilli(req.ExpiresAt)
	}

	if err := h.publisher.PublishDetectionEvent(c.Request().Context(), event); err != nil {
		h.logger.Error("Failed to publish detection event",
			slog.String("device_id", deviceID),
			slog.String("barcode", req.Barcode),
			slog.Any("error", err),
		)

		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusAccepted, map[string]string{"status": "queued"})
}
