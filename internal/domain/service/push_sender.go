package service

import (
	"context"
)

// PushSender delivers push notifications to the phones paired with a device.
// Paired apps subscribe to the device's FCM topic, so delivery is addressed
// by device id rather than by individual client tokens.
type PushSender interface {
	SendToDeviceTopic(ctx context.Context, deviceID, title, body string, data map[string]string) error
}
