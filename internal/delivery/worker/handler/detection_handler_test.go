package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ordinem/internal/domain/entity"
	"ordinem/internal/domain/repository"
	"ordinem/internal/domain/service"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeviceRepo struct {
	recordErr  error
	detections []*entity.DetectedProduct
}

func (r *fakeDeviceRepo) EnsureDevice(context.Context, string) error { return nil }

func (r *fakeDeviceRepo) FindDevice(context.Context, string) (*entity.Device, error) {
	return nil, repository.ErrDeviceRecordNotFound
}

func (r *fakeDeviceRepo) RecordDetection(_ context.Context, _ string, detection *entity.DetectedProduct) error {
	if r.recordErr != nil {
		return r.recordErr
	}
	r.detections = append(r.detections, detection)

	return nil
}

type fakeNotifRepo struct {
	createErr error
	created   []*entity.Notification
}

func (r *fakeNotifRepo) ListByDevice(context.Context, string) ([]*entity.Notification, error) {
	return nil, nil
}

func (r *fakeNotifRepo) Create(_ context.Context, _ string, n *entity.Notification) (string, error) {
	if r.createErr != nil {
		return "", r.createErr
	}
	r.created = append(r.created, n)

	return "generated-id", nil
}

func (r *fakeNotifRepo) MarkRead(context.Context, string, string) error { return nil }
func (r *fakeNotifRepo) Delete(context.Context, string, string) error   { return nil }

func (r *fakeNotifRepo) Watch(context.Context, string, func()) (repository.Subscription, error) {
	return nil, errors.New("not supported")
}

type fakePushSender struct {
	sendErr error
	sends   int
	data    map[string]string
}

func (s *fakePushSender) SendToDeviceTopic(_ context.Context, _, _, _ string, data map[string]string) error {
	s.sends++
	s.data = data

	return s.sendErr
}

func newTestHandler(devices *fakeDeviceRepo, notifs *fakeNotifRepo, push *fakePushSender) *DetectionHandler {
	return &DetectionHandler{
		verifyPushAuth:   false,
		logger:           slog.New(slog.DiscardHandler),
		deviceRepo:       devices,
		notificationRepo: notifs,
		pushSender:       push,
	}
}

func pushEnvelope(t *testing.T, event *service.DetectionEvent, attributes map[string]string) string {
	t.Helper()

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var msg PubSubMessage
	msg.Message.Data = base64.StdEncoding.EncodeToString(payload)
	msg.Message.Attributes = attributes
	msg.Message.MessageID = "m-1"
	msg.Subscription = "projects/local/subscriptions/detection-sub"

	body, err := json.Marshal(msg)
	require.NoError(t, err)

	return string(body)
}

func doPush(t *testing.T, h *DetectionHandler, body string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/push", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	require.NoError(t, h.HandlePush(e.NewContext(req, rec)))

	return rec
}

func TestHandlePush_RecordsDetectionAndNotifies(t *testing.T) {
	devices := &fakeDeviceRepo{}
	notifs := &fakeNotifRepo{}
	push := &fakePushSender{}
	h := newTestHandler(devices, notifs, push)

	body := pushEnvelope(t, &service.DetectionEvent{
		DeviceID:    "dev-1",
		Barcode:     "123",
		ProductName: "Milk",
		ExpiresAt:   time.Now().Add(48 * time.Hour),
	}, map[string]string{"request_id": "req-1"})

	rec := doPush(t, h, body)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, devices.detections, 1)
	assert.Equal(t, "123", devices.detections[0].Barcode)
	assert.False(t, devices.detections[0].DetectedAt.IsZero(), "missing detection time must be filled in")

	require.Len(t, notifs.created, 1)
	assert.Equal(t, entity.NotificationExpiringSoon, notifs.created[0].Type)

	assert.Equal(t, 1, push.sends)
	assert.Equal(t, "generated-id", push.data["notification_id"])
}

func TestHandlePush_DetectionWriteFailureIsRetryable(t *testing.T) {
	devices := &fakeDeviceRepo{recordErr: errors.New("realtime db unavailable")}
	h := newTestHandler(devices, &fakeNotifRepo{}, &fakePushSender{})

	body := pushEnvelope(t, &service.DetectionEvent{DeviceID: "dev-1", Barcode: "123"}, nil)

	rec := doPush(t, h, body)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "a transient write failure must request a redelivery")
}

func TestHandlePush_NotificationWriteFailureIsRetryable(t *testing.T) {
	notifs := &fakeNotifRepo{createErr: errors.New("write rejected")}
	h := newTestHandler(&fakeDeviceRepo{}, notifs, &fakePushSender{})

	body := pushEnvelope(t, &service.DetectionEvent{
		DeviceID:  "dev-1",
		Barcode:   "123",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)

	rec := doPush(t, h, body)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlePush_PushDeliveryFailureIsBestEffort(t *testing.T) {
	push := &fakePushSender{sendErr: errors.New("fcm unreachable")}
	h := newTestHandler(&fakeDeviceRepo{}, &fakeNotifRepo{}, push)

	body := pushEnvelope(t, &service.DetectionEvent{
		DeviceID:  "dev-1",
		Barcode:   "123",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)

	rec := doPush(t, h, body)
	assert.Equal(t, http.StatusOK, rec.Code, "the notification is already stored, no retry wanted")
	assert.Equal(t, 1, push.sends)
}

func TestHandlePush_IncompleteEventIsDropped(t *testing.T) {
	devices := &fakeDeviceRepo{}
	h := newTestHandler(devices, &fakeNotifRepo{}, &fakePushSender{})

	body := pushEnvelope(t, &service.DetectionEvent{Barcode: "123"}, nil)

	rec := doPush(t, h, body)
	assert.Equal(t, http.StatusOK, rec.Code, "an unprocessable event must be acked, not redelivered forever")
	assert.Empty(t, devices.detections)
}

func TestHandlePush_UndecodableDataIsBadRequest(t *testing.T) {
	h := newTestHandler(&fakeDeviceRepo{}, &fakeNotifRepo{}, &fakePushSender{})

	rec := doPush(t, h, `{"message": {"data": "not base64!!!"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBuildExpiryNotification_Classification(t *testing.T) {
	h := newTestHandler(&fakeDeviceRepo{}, &fakeNotifRepo{}, &fakePushSender{})
	now := time.Now()

	tests := []struct {
		name      string
		expiresAt time.Time
		wantType  entity.NotificationType
		wantNone  bool
	}{
		{"no expiry date", time.Time{}, "", true},
		{"already expired", now.Add(-time.Hour), entity.NotificationExpired, false},
		{"expires tomorrow", now.Add(24 * time.Hour), entity.NotificationExpiringSoon, false},
		{"expires in five days", now.Add(5 * 24 * time.Hour), entity.NotificationExpiringWeek, false},
		{"expires far out", now.Add(30 * 24 * time.Hour), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := h.buildExpiryNotification(&service.DetectionEvent{
				DeviceID:    "dev-1",
				Barcode:     "123",
				ProductName: "Milk",
				ExpiresAt:   tt.expiresAt,
			})
			if tt.wantNone {
				assert.Nil(t, n)

				return
			}
			require.NotNil(t, n)
			assert.Equal(t, tt.wantType, n.Type)
			assert.Equal(t, "123", n.ProductBarcode)
			assert.False(t, n.Read)
		})
	}
}

func TestBuildExpiryNotification_NamelessProductFallsBackToBarcode(t *testing.T) {
	h := newTestHandler(&fakeDeviceRepo{}, &fakeNotifRepo{}, &fakePushSender{})

	n := h.buildExpiryNotification(&service.DetectionEvent{
		DeviceID:  "dev-1",
		Barcode:   "123",
		ExpiresAt: time.Now().Add(-time.Hour),
	})
	require.NotNil(t, n)
	assert.Contains(t, n.Message, "Product 123")
}

func TestDaysUntil_PartialDayRoundsUp(t *testing.T) {
	now := time.Now()

	assert.Equal(t, 1, daysUntil(now, now.Add(time.Hour)))
	assert.Equal(t, 2, daysUntil(now, now.Add(36*time.Hour)))
	assert.Equal(t, 2, daysUntil(now, now.Add(48*time.Hour)))
}
