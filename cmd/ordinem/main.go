package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"ordinem/config"
	"ordinem/internal/delivery"
	"ordinem/internal/delivery/http"
	"ordinem/internal/delivery/http/middleware"
	"ordinem/internal/delivery/http/router/handler"
	"ordinem/internal/domain/service"
	"ordinem/internal/infra/auth"
	logs "ordinem/internal/infra/log"
	"ordinem/internal/infra/notification"
	"ordinem/internal/infra/persistence/postgres"
	"ordinem/internal/infra/productapi"
	"ordinem/internal/infra/pubsub"
	"ordinem/internal/infra/qrcode"
	"ordinem/internal/infra/realtime"
	"ordinem/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
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
		postgres.New,
		realtime.NewClient,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewProductCacheRepository,
			realtime.NewDeviceLinkRepository,
			realtime.NewDeviceRepository,
			realtime.NewNotificationRepository,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewJWTService,
			productapi.NewClient,
			newFirebaseService,
			newQRCodeService,
		),
		pubsub.Module,
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

// newQRCodeService creates a QR code service with dependency injection
func newQRCodeService(cfg *config.Config) service.QRCodeService {
	if cfg.QRCode == nil {
		// Use default values if not configured
		return qrcode.NewQRCodeService(256, "M")
	}

	return qrcode.NewQRCodeService(cfg.QRCode.Size, cfg.QRCode.ErrorCorrectionLevel)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewProductService,
			impl.NewDeviceService,
			impl.NewFeedService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
			middleware.NewErrorMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewProductHandler,
			handler.NewDeviceHandler,
			handler.NewNotificationHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
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
				os.Exit(1)
			}
		}()
	}
}
