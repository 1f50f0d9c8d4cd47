package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"ordinem/config"
	"ordinem/internal/delivery"
	"ordinem/internal/delivery/worker"
	"ordinem/internal/delivery/worker/handler"
	"ordinem/internal/domain/service"
	logs "ordinem/internal/infra/log"
	"ordinem/internal/infra/notification"
	"ordinem/internal/infra/realtime"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle
	fx.Shutdowner

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectHandler(),
		injectDelivery(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		realtime.NewClient,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			realtime.NewDeviceRepository,
			realtime.NewNotificationRepository,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			newFirebaseService,
		),
	)
}

// newFirebaseService creates a Firebase push sender with dependency injection
func newFirebaseService(ctx context.Context, cfg *config.Config) (service.PushSender, error) {
	if cfg.Firebase == nil {
		return nil, nil // Firebase push is optional
	}

	svc, err := notification.NewFirebaseService(ctx, cfg.Firebase.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firebase service: %w", err)
	}

	return svc, nil
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewDetectionHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				worker.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))

				// Trigger graceful shutdown to execute all OnStop hooks
				if shutdownErr := params.Shutdown(); shutdownErr != nil {
					slog.Error("Failed to shutdown gracefully", slog.Any("error", shutdownErr))
					os.Exit(1)
				}
			}
		}()
	}
}
