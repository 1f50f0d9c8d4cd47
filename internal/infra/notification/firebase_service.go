package notification

import (
	"context"
	"fmt"

	"ordinem/internal/domain/service"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// deviceTopicPrefix namespaces the per-device FCM topics. Every phone that
// pairs with a device subscribes to "device-{deviceID}".
const deviceTopicPrefix = "device-"

type firebaseService struct {
	client *messaging.Client
}

// NewFirebaseService creates a new Firebase push sender instance
func NewFirebaseService(ctx context.Context, credentialsPath string) (service.PushSender, error) {
	opt := option.WithCredentialsFile(credentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return &firebaseService{
		client: client,
	}, nil
}

// SendToDeviceTopic sends a push notification to every phone subscribed to
// the device's topic
func (s *firebaseService) SendToDeviceTopic(ctx context.Context, deviceID, title, body string, data map[string]string) error {
	message := &messaging.Message{
		Topic: deviceTopicPrefix + deviceID,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	_, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	return nil
}
