// internal/api/v2/notifications.go - notification listing and SSE streaming
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fernwick/speciarium/internal/errors"
	"github.com/fernwick/speciarium/internal/notification"
)

// initNotificationRoutes registers notification endpoints
func (c *Controller) initNotificationRoutes() {
	c.Group.GET("/notifications", c.GetNotifications)
	c.Group.GET("/notifications/stream", c.StreamNotifications)
	c.Group.GET("/notifications/unread/count", c.GetUnreadCount)
	c.Group.PUT("/notifications/:id/read", c.MarkNotificationRead)
}

// GetNotifications returns recent non-toast notifications
func (c *Controller) GetNotifications(ctx echo.Context) error {
	if c.NotificationSvc == nil {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "Notification service not available",
		})
	}

	filter := &notification.FilterOptions{Limit: 50}

	if statusParam := ctx.QueryParam("status"); statusParam != "" {
		filter.Status = []notification.Status{notification.Status(statusParam)}
	}
	if typeParam := ctx.QueryParam("type"); typeParam != "" {
		filter.Types = []notification.Type{notification.Type(typeParam)}
	}
	if limitParam := ctx.QueryParam("limit"); limitParam != "" {
		if limit, err := strconv.Atoi(limitParam); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	if offsetParam := ctx.QueryParam("offset"); offsetParam != "" {
		if offset, err := strconv.Atoi(offsetParam); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	notifications, err := c.NotificationSvc.List(filter)
	if err != nil {
		if c.apiLogger != nil {
			c.apiLogger.Error("failed to list notifications", "error", err)
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to retrieve notifications",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"notifications": notifications,
		"count":         len(notifications),
		"limit":         filter.Limit,
		"offset":        filter.Offset,
	})
}

// GetUnreadCount returns the number of unread notifications
func (c *Controller) GetUnreadCount(ctx echo.Context) error {
	if c.NotificationSvc == nil {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "Notification service not available",
		})
	}

	count, err := c.NotificationSvc.GetUnreadCount()
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to get unread count",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]int{"count": count})
}

// MarkNotificationRead marks a notification as read
func (c *Controller) MarkNotificationRead(ctx echo.Context) error {
	if c.NotificationSvc == nil {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "Notification service not available",
		})
	}

	id := ctx.Param("id")
	if id == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Notification ID is required",
		})
	}

	if err := c.NotificationSvc.MarkAsRead(id); err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{
				"error": "Notification not found",
			})
		}
		if c.apiLogger != nil {
			c.apiLogger.Error("failed to mark notification as read", "error", err, "id", id)
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to mark notification as read",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// StreamNotifications handles the SSE connection for real-time streaming
// of notifications, toasts and catalog refresh signals.
func (c *Controller) StreamNotifications(ctx echo.Context) error {
	if c.NotificationSvc == nil {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "Notification service not available",
		})
	}

	if c.metrics != nil && c.metrics.HTTP != nil {
		c.metrics.HTTP.SSEConnectionOpened()
		defer c.metrics.HTTP.SSEConnectionClosed()
	}

	// Bound total connection duration
	timeoutCtx, cancel := context.WithTimeout(ctx.Request().Context(), maxSSEConnectionDuration)
	defer cancel()
	ctx.SetRequest(ctx.Request().WithContext(timeoutCtx))

	setSSEHeaders(ctx)

	clientID := uuid.New().String()
	notificationCh, subCtx := c.NotificationSvc.Subscribe()
	defer c.NotificationSvc.Unsubscribe(notificationCh)

	if err := c.sendSSEMessage(ctx, "connected", map[string]string{
		"clientId": clientID,
		"message":  "Connected to notification stream",
	}); err != nil {
		return err
	}

	if c.apiLogger != nil {
		c.apiLogger.Info("SSE client connected",
			"client_id", clientID,
			"ip", ctx.RealIP())
	}

	err := c.runNotificationEventLoop(ctx, clientID, notificationCh, subCtx)

	if c.apiLogger != nil {
		c.apiLogger.Info("SSE client disconnected",
			"client_id", clientID,
			"ip", ctx.RealIP())
	}

	return err
}

// runNotificationEventLoop pumps notifications to one SSE client until
// the client disconnects, the subscription is cancelled, or the
// connection exceeds its maximum duration.
func (c *Controller) runNotificationEventLoop(ctx echo.Context, clientID string,
	notificationCh <-chan *notification.Notification, subCtx context.Context) error {

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case notif := <-notificationCh:
			if notif == nil {
				// Channel closed, service is shutting down
				return nil
			}
			if err := c.processNotificationEvent(ctx, clientID, notif); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.sendSSEMessage(ctx, "heartbeat", map[string]string{
				"timestamp": time.Now().Format(time.RFC3339),
			}); err != nil {
				return err
			}

		case <-ctx.Request().Context().Done():
			// Client disconnected or timeout reached
			return nil

		case <-subCtx.Done():
			// Subscription cancelled
			return nil
		}
	}
}

// processNotificationEvent routes one event to its SSE representation
func (c *Controller) processNotificationEvent(ctx echo.Context, clientID string, notif *notification.Notification) error {
	if isToast, _ := notif.Metadata[notification.MetadataKeyIsToast].(bool); isToast {
		return c.sendToastEvent(ctx, clientID, notif)
	}
	return c.sendNotificationEvent(ctx, clientID, notif)
}

// sendToastEvent sends a toast event via SSE
func (c *Controller) sendToastEvent(ctx echo.Context, clientID string, notif *notification.Notification) error {
	toastType, _ := notif.Metadata["toastType"].(string)

	toastEvent := map[string]any{
		"id":        notif.ID,
		"message":   notif.Message,
		"type":      toastType,
		"timestamp": notif.Timestamp,
		"component": notif.Component,
	}
	if duration, ok := notif.Metadata["duration"].(int); ok && duration > 0 {
		toastEvent["duration"] = duration
	}
	if action, ok := notif.Metadata["action"]; ok {
		toastEvent["action"] = action
	}

	if err := c.sendSSEMessage(ctx, "toast", toastEvent); err != nil {
		if c.apiLogger != nil {
			c.apiLogger.Error("failed to send toast SSE", "error", err, "client_id", clientID)
		}
		return err
	}
	return nil
}

// sendNotificationEvent sends a notification event via SSE
func (c *Controller) sendNotificationEvent(ctx echo.Context, clientID string, notif *notification.Notification) error {
	event := map[string]any{
		"eventType":    "notification",
		"notification": notif,
	}

	if err := c.sendSSEMessage(ctx, "notification", event); err != nil {
		if c.apiLogger != nil {
			c.apiLogger.Error("failed to send notification SSE", "error", err, "client_id", clientID)
		}
		return err
	}
	return nil
}
