// Package handler contains the Pub/Sub push handlers for the worker.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ordinem/config"
	deliverycontext "ordinem/internal/delivery/context"
	"ordinem/internal/domain/constants"
	"ordinem/internal/domain/entity"
	"ordinem/internal/domain/repository"
	"ordinem/internal/domain/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"google.golang.org/api/idtoken"
)

// Expiry classification windows.
const (
	expiringSoonWindow = 3 * 24 * time.Hour
	expiringWeekWindow = 7 * 24 * time.Hour
)

// PubSubMessage represents the structure of a Pub/Sub push message
type PubSubMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// retryableError wraps an error to indicate it should trigger a Pub/Sub retry
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.err)
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// newRetryableError wraps an error as retryable
func newRetryableError(err error) error {
	return &retryableError{err: err}
}

// isRetryableError checks if an error is retryable
func isRetryableError(err error) bool {
	var re *retryableError

	return errors.As(err, &re)
}

// DetectionHandler handles Pub/Sub push messages for product detections
type DetectionHandler struct {
	verifyPushAuth   bool
	logger           *slog.Logger
	deviceRepo       repository.DeviceRepository
	notificationRepo repository.NotificationRepository
	pushSender       service.PushSender
}

// DetectionHandlerParams holds dependencies for the DetectionHandler
type DetectionHandlerParams struct {
	fx.In

	Config           *config.Config
	Logger           *slog.Logger
	DeviceRepo       repository.DeviceRepository
	NotificationRepo repository.NotificationRepository
	PushSender       service.PushSender
}

// NewDetectionHandler creates a new Pub/Sub push handler
func NewDetectionHandler(params DetectionHandlerParams) *DetectionHandler {
	// Determine if we need to verify push auth based on config
	verifyPushAuth := params.Config.PubSub != nil &&
		params.Config.PubSub.Provider == constants.PubSubProviderGoogle &&
		params.Config.Env.Env != constants.EnvDevelop

	return &DetectionHandler{
		verifyPushAuth:   verifyPushAuth,
		logger:           params.Logger,
		deviceRepo:       params.DeviceRepo,
		notificationRepo: params.NotificationRepo,
		pushSender:       params.PushSender,
	}
}

// HandlePush handles incoming Pub/Sub push messages
func (h *DetectionHandler) HandlePush(c echo.Context) error {
	ctx := c.Request().Context()

	// Verify Pub/Sub token in production for Google provider
	if h.verifyPushAuth {
		if err := verifyPubSubToken(c.Request()); err != nil {
			h.logger.Warn("[Worker] Invalid Pub/Sub token", slog.Any("error", err))

			return c.NoContent(http.StatusUnauthorized)
		}
	}

	// Parse Pub/Sub message
	var pushMsg PubSubMessage
	if err := c.Bind(&pushMsg); err != nil {
		h.logger.Error("[Worker] Failed to parse push message", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	// Decode base64 message data
	data, err := base64.StdEncoding.DecodeString(pushMsg.Message.Data)
	if err != nil {
		h.logger.Error("[Worker] Failed to decode message data", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	// Parse detection event
	var event service.DetectionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.logger.Error("[Worker] Failed to parse detection event", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	// Extract request_id for distributed tracing
	requestID := h.extractRequestID(ctx, &pushMsg, &event)

	// Create request-scoped logger with request_id
	reqLogger := h.logger.With(slog.String("request_id", requestID))

	ctx = deliverycontext.WithRequestID(ctx, requestID)
	ctx = deliverycontext.WithLogger(ctx, reqLogger)

	reqLogger.Info("[Worker] Processing detection event",
		slog.String("device_id", event.DeviceID),
		slog.String("barcode", event.Barcode),
	)

	if err := h.processDetection(ctx, &event); err != nil {
		reqLogger.Error("[Worker] Failed to process detection",
			slog.String("device_id", event.DeviceID),
			slog.String("barcode", event.Barcode),
			slog.Any("error", err),
			slog.Bool("retryable", isRetryableError(err)),
		)
		// Return 503 for retryable errors to trigger Pub/Sub retry
		// Return 200 for non-retryable errors to prevent infinite retries
		if isRetryableError(err) {
			return c.NoContent(http.StatusServiceUnavailable)
		}

		return c.NoContent(http.StatusOK)
	}

	reqLogger.Info("[Worker] Detection processed successfully",
		slog.String("device_id", event.DeviceID),
		slog.String("barcode", event.Barcode),
	)

	return c.NoContent(http.StatusOK)
}

// extractRequestID extracts request_id from message attributes, event, or generates a new one
func (h *DetectionHandler) extractRequestID(ctx context.Context, pushMsg *PubSubMessage, event *service.DetectionEvent) string {
	// 1. Try message attributes (from Pub/Sub)
	if requestID, ok := pushMsg.Message.Attributes["request_id"]; ok && requestID != "" {
		return requestID
	}

	// 2. Try event field (from JSON payload)
	if event.RequestID != "" {
		return event.RequestID
	}

	// 3. Try existing context (from RequestIDMiddleware via X-Request-Id header)
	if requestID := deliverycontext.GetRequestIDFromContext(ctx); requestID != "" {
		return requestID
	}

	// 4. Generate new UUID as fallback
	return uuid.New().String()
}

// processDetection records the detection on the device and raises an expiry
// notification when the product's shelf life calls for one.
func (h *DetectionHandler) processDetection(ctx context.Context, event *service.DetectionEvent) error {
	if event.DeviceID == "" || event.Barcode == "" {
		return errors.New("detection event missing device id or barcode")
	}

	detection := &entity.DetectedProduct{
		Barcode:    event.Barcode,
		Name:       event.ProductName,
		DetectedAt: event.DetectedAt,
		ExpiresAt:  event.ExpiresAt,
	}
	if detection.DetectedAt.IsZero() {
		detection.DetectedAt = time.Now()
	}

	if err := h.deviceRepo.RecordDetection(ctx, event.DeviceID, detection); err != nil {
		return newRetryableError(errors.WithStack(err))
	}

	notification := h.buildExpiryNotification(event)
	if notification == nil {
		return nil
	}

	id, err := h.notificationRepo.Create(ctx, event.DeviceID, notification)
	if err != nil {
		return newRetryableError(errors.WithStack(err))
	}
	notification.ID = id

	// Push delivery is best effort; the notification is already stored and
	// will reach the app through the realtime feed.
	if err := h.pushSender.SendToDeviceTopic(ctx, event.DeviceID, notification.Title, notification.Message, map[string]string{
		"notification_id": id,
		"device_id":       event.DeviceID,
		"barcode":         event.Barcode,
		"type":            string(notification.Type),
	}); err != nil {
		h.logger.Warn("[Worker] Failed to send push notification",
			slog.String("device_id", event.DeviceID),
			slog.String("notification_id", id),
			slog.Any("error", err),
		)
	}

	return nil
}

// buildExpiryNotification classifies the product's expiry date into a
// notification, or nil when no notification is warranted.
func (h *DetectionHandler) buildExpiryNotification(event *service.DetectionEvent) *entity.Notification {
	if event.ExpiresAt.IsZero() {
		return nil
	}

	name := event.ProductName
	if strings.TrimSpace(name) == "" {
		name = "Product " + event.Barcode
	}

	now := time.Now()
	remaining := event.ExpiresAt.Sub(now)

	var notificationType entity.NotificationType
	var title, message string
	switch {
	case remaining <= 0:
		notificationType = entity.NotificationExpired
		title = "Product expired"
		message = fmt.Sprintf("%s has expired", name)
	case remaining <= expiringSoonWindow:
		notificationType = entity.NotificationExpiringSoon
		title = "Product expiring soon"
		message = fmt.Sprintf("%s expires in %d day(s)", name, daysUntil(now, event.ExpiresAt))
	case remaining <= expiringWeekWindow:
		notificationType = entity.NotificationExpiringWeek
		title = "Product expiring this week"
		message = fmt.Sprintf("%s expires in %d day(s)", name, daysUntil(now, event.ExpiresAt))
	default:
		return nil
	}

	return &entity.Notification{
		DeviceID:       event.DeviceID,
		Type:           notificationType,
		Title:          title,
		Message:        message,
		ProductBarcode: event.Barcode,
		CreatedAt:      now,
		Read:           false,
	}
}

// daysUntil counts calendar days from now to the deadline, rounding up so a
// partial day still counts as one.
func daysUntil(now, deadline time.Time) int {
	days := int((deadline.Sub(now) + 24*time.Hour - 1) / (24 * time.Hour))
	if days < 0 {
		return 0
	}

	return days
}

// verifyPubSubToken verifies the JWT token from Google Pub/Sub push requests
// Reference: https://cloud.google.com/pubsub/docs/push#authenticating_standard_push_requests
func verifyPubSubToken(req *http.Request) error {
	// Get the Authorization header
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return errors.New("missing authorization header")
	}

	// Extract Bearer token
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return errors.New("invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, bearerPrefix)

	// Construct the expected audience (the push endpoint URL)
	scheme := "https"
	if req.TLS == nil {
		scheme = "http" // For local development
	}
	audience := fmt.Sprintf("%s://%s%s", scheme, req.Host, req.URL.Path)

	// Validate the token using Google's ID token validator
	ctx := req.Context()
	payload, err := idtoken.Validate(ctx, token, audience)
	if err != nil {
		return errors.Wrap(err, "failed to validate token")
	}

	// Verify the token is from Google Pub/Sub
	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	// Verify email is verified (if email claim exists)
	if emailVerified, ok := payload.Claims["email_verified"].(bool); ok && !emailVerified {
		return errors.New("email not verified")
	}

	return nil
}
