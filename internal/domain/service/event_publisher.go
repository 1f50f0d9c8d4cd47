package service

import (
	"context"
	"time"
)

// DetectionEvent is emitted when a cabinet reports a scanned product. The
// worker consumes these events to update the device record and raise expiry
// notifications.
type DetectionEvent struct {
	DeviceID    string    `json:"device_id"`
	Barcode     string    `json:"barcode"`
	ProductName string    `json:"product_name,omitempty"`
	DetectedAt  time.Time `json:"detected_at"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// EventPublisher publishes detection events towards the worker pipeline.
type EventPublisher interface {
	PublishDetectionEvent(ctx context.Context, event *DetectionEvent) error
	Close() error
}
