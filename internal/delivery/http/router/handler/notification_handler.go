package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"ordinem/internal/delivery/http/middleware"
	"ordinem/internal/delivery/http/response"
	"ordinem/internal/domain/entity"
	"ordinem/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// NotificationHandlerParams holds dependencies for NotificationHandler, injected by Fx.
type NotificationHandlerParams struct {
	fx.In

	FeedUC usecase.FeedUsecase
	Logger *slog.Logger
}

// NotificationHandler holds dependencies for notification feed handlers
type NotificationHandler struct {
	feedUC usecase.FeedUsecase
	logger *slog.Logger
}

// NewNotificationHandler is the constructor for NotificationHandler
func NewNotificationHandler(params NotificationHandlerParams) *NotificationHandler {
	return &NotificationHandler{
		feedUC: params.FeedUC,
		logger: params.Logger,
	}
}

// GetFeed handles a one-shot aggregation of the user's notification feed
func (h *NotificationHandler) GetFeed(c echo.Context) error {
	userID := middleware.UserID(c)

	feed, err := h.feedUC.Feed(c.Request().Context(), userID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, feed)
}

// StreamFeed streams live feed updates over Server-Sent Events. Each update
// carries the full re-aggregated feed. A slow client only ever misses
// intermediate states, never the latest one.
func (h *NotificationHandler) StreamFeed(c echo.Context) error {
	userID := middleware.UserID(c)
	ctx := c.Request().Context()

	// Latest-wins buffer: a pending update is replaced, not queued behind.
	updates := make(chan []*entity.Notification, 1)
	onUpdate := func(feed []*entity.Notification) {
		for {
			select {
			case updates <- feed:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	}

	sub, err := h.feedUC.Subscribe(ctx, userID, onUpdate)
	if err != nil {
		return response.HandleAppError(c, err)
	}
	defer func() {
		if closeErr := sub.Close(); closeErr != nil {
			h.logger.Warn("Failed to close feed subscription",
				slog.String("user_id", userID.String()),
				slog.Any("error", closeErr),
			)
		}
	}()

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		case feed := <-updates:
			payload, marshalErr := json.Marshal(feed)
			if marshalErr != nil {
				h.logger.Error("Failed to encode feed update", slog.Any("error", marshalErr))

				continue
			}
			if _, writeErr := resp.Write([]byte("data: " + string(payload) + "\n\n")); writeErr != nil {
				return nil
			}
			resp.Flush()
		}
	}
}

// MarkAsRead handles marking a single notification as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	userID := middleware.UserID(c)
	deviceID := c.Param("deviceId")
	notificationID := c.Param("id")

	if err := h.feedUC.MarkAsRead(c.Request().Context(), userID, deviceID, notificationID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// DeleteNotification handles removing a single notification
func (h *NotificationHandler) DeleteNotification(c echo.Context) error {
	userID := middleware.UserID(c)
	deviceID := c.Param("deviceId")
	notificationID := c.Param("id")

	if err := h.feedUC.DeleteNotification(c.Request().Context(), userID, deviceID, notificationID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Notification deleted"})
}

// MarkAllAsRead handles marking every unread notification in the feed
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	userID := middleware.UserID(c)

	if err := h.feedUC.MarkAllAsRead(c.Request().Context(), userID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "All notifications marked as read"})
}

// DeleteAll handles removing every notification in the feed
func (h *NotificationHandler) DeleteAll(c echo.Context) error {
	userID := middleware.UserID(c)

	if err := h.feedUC.DeleteAll(c.Request().Context(), userID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "All notifications deleted"})
}
