// internal/api/v2/sse.go - Server-Sent Events plumbing
package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	// heartbeatInterval is how often keepalive messages are sent
	heartbeatInterval = 30 * time.Second

	// maxSSEConnectionDuration bounds a single SSE connection
	maxSSEConnectionDuration = 30 * time.Minute

	// sseWriteTimeout bounds a single SSE message write
	sseWriteTimeout = 10 * time.Second
)

// sendSSEMessage writes a single SSE event to the response and flushes it
func (c *Controller) sendSSEMessage(ctx echo.Context, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE data: %w", err)
	}

	message := fmt.Sprintf("event: %s\ndata: %s\n\n", event, string(jsonData))

	// Set write deadline to avoid hanging on slow or disconnected clients
	if conn, ok := ctx.Response().Writer.(interface{ SetWriteDeadline(time.Time) error }); ok {
		if err := conn.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
			if c.apiLogger != nil {
				c.apiLogger.Debug("Failed to set write deadline for SSE message", "error", err.Error())
			}
		}
	}

	if _, err := ctx.Response().Write([]byte(message)); err != nil {
		return fmt.Errorf("failed to write SSE message: %w", err)
	}

	ctx.Response().Flush()

	if c.metrics != nil && c.metrics.HTTP != nil {
		c.metrics.HTTP.RecordSSEMessage(event)
	}

	return nil
}

// setSSEHeaders sets the required headers for an SSE response
func setSSEHeaders(ctx echo.Context) {
	ctx.Response().Header().Set("Content-Type", "text/event-stream")
	ctx.Response().Header().Set("Cache-Control", "no-cache")
	ctx.Response().Header().Set("Connection", "keep-alive")
	ctx.Response().Header().Set("Access-Control-Allow-Origin", "*")
	ctx.Response().Header().Set("Access-Control-Allow-Headers", "Cache-Control")
}
