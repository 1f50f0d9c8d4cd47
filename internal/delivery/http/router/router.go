// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"ordinem/internal/delivery/http/middleware"
	"ordinem/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	ProductHandler      *handler.ProductHandler
	DeviceHandler       *handler.DeviceHandler
	NotificationHandler *handler.NotificationHandler
	AuthMiddleware      *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	productHandler      *handler.ProductHandler
	deviceHandler       *handler.DeviceHandler
	notificationHandler *handler.NotificationHandler
	authMiddleware      *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		productHandler:      params.ProductHandler,
		deviceHandler:       params.DeviceHandler,
		notificationHandler: params.NotificationHandler,
		authMiddleware:      params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Product lookup routes
	productGroup := e.Group("/products")
	{
		productGroup.GET("/:barcode", r.productHandler.GetProduct)
		productGroup.DELETE("/cache", r.productHandler.ClearCache)
	}

	// Device routes that require authentication
	deviceGroup := e.Group("/devices")
	deviceGroup.Use(r.authMiddleware.Authenticate)
	{
		deviceGroup.GET("", r.deviceHandler.ListDevices)
		deviceGroup.POST("/pair", r.deviceHandler.PairDevice)
		deviceGroup.POST("/:id/link", r.deviceHandler.LinkDevice)
		deviceGroup.DELETE("/:id/link", r.deviceHandler.UnlinkDevice)
		deviceGroup.GET("/:id/qr", r.deviceHandler.PairingQR)
	}

	// Detection ingest is called by the scanner firmware, not the app, so it
	// sits outside the user-auth group.
	e.POST("/devices/:id/detections", r.deviceHandler.ReportDetection)

	// Notification feed routes that require authentication
	notificationGroup := e.Group("/notifications")
	notificationGroup.Use(r.authMiddleware.Authenticate)
	{
		notificationGroup.GET("", r.notificationHandler.GetFeed)
		notificationGroup.GET("/stream", r.notificationHandler.StreamFeed)
		notificationGroup.PATCH("/:deviceId/:id/read", r.notificationHandler.MarkAsRead)
		notificationGroup.DELETE("/:deviceId/:id", r.notificationHandler.DeleteNotification)
		notificationGroup.POST("/read-all", r.notificationHandler.MarkAllAsRead)
		notificationGroup.DELETE("", r.notificationHandler.DeleteAll)
	}
}
