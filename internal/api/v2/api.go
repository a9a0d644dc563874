// internal/api/v2/api.go
package api

import (
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/fernwick/speciarium/internal/conf"
	"github.com/fernwick/speciarium/internal/datastore"
	"github.com/fernwick/speciarium/internal/logging"
	"github.com/fernwick/speciarium/internal/notification"
	"github.com/fernwick/speciarium/internal/observability"
)

// Controller manages the API routes and handlers
type Controller struct {
	Echo            *echo.Echo
	Group           *echo.Group
	DS              datastore.Interface
	Settings        *conf.Settings
	NotificationSvc *notification.Service
	logger          *log.Logger
	apiLogger       *slog.Logger // Structured logger for API operations
	apiLoggerClose  func() error // Function to close the log file
	metrics         *observability.Metrics
	startTime       *time.Time

	// inFlight guards against concurrent updates of the same record.
	// Keyed by record ID; a second submit while one is pending gets 409.
	inFlight sync.Map
}

// New creates a new API controller and registers its routes.
// The datastore handle and notification service are injected; the
// controller never opens its own connections.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	notificationSvc *notification.Service, logger *log.Logger,
	metrics *observability.Metrics) *Controller {
	c := NewWithOptions(e, ds, settings, notificationSvc, logger, metrics, true)
	return c
}

// NewWithOptions creates a new API controller with optional route
// initialization. Set initializeRoutes to false in tests that call
// handlers directly.
func NewWithOptions(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	notificationSvc *notification.Service, logger *log.Logger,
	metrics *observability.Metrics, initializeRoutes bool) *Controller {

	if logger == nil {
		logger = log.Default()
	}

	c := &Controller{
		Echo:            e,
		DS:              ds,
		Settings:        settings,
		NotificationSvc: notificationSvc,
		logger:          logger,
		metrics:         metrics,
	}

	// Initialize structured logger for API requests
	apiLogPath := "logs/web.log"
	apiLogger, closeFunc, err := logging.NewFileLogger(apiLogPath, "api", slog.LevelInfo)
	if err != nil {
		logger.Printf("Warning: Failed to initialize API structured logger: %v", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo})
		c.apiLogger = slog.New(fbHandler).With("service", "api")
		c.apiLoggerClose = func() error { return nil }
	} else {
		c.apiLogger = apiLogger
		c.apiLoggerClose = closeFunc
		logger.Printf("API structured logging initialized to %s", apiLogPath)
	}

	// Create v2 API group
	c.Group = e.Group("/api/v2")

	// Configure middlewares
	c.Group.Use(middleware.Recover())
	c.Group.Use(middleware.CORS())
	c.Group.Use(middleware.BodyLimit("1M")) // Limit request body to 1MB
	c.Group.Use(c.LoggingMiddleware())

	now := time.Now()
	c.startTime = &now

	if initializeRoutes {
		c.initRoutes()
	}

	return c
}

// LoggingMiddleware creates a middleware function that logs API requests
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)

			req := ctx.Request()
			res := ctx.Response()
			elapsed := time.Since(start)

			if c.metrics != nil && c.metrics.HTTP != nil {
				c.metrics.HTTP.RecordRequest(req.Method, ctx.Path(), fmt.Sprintf("%d", res.Status))
				c.metrics.HTTP.RecordRequestDuration(req.Method, ctx.Path(), elapsed.Seconds())
			}

			if c.apiLogger == nil {
				return err
			}

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("query", req.URL.RawQuery),
				slog.Int("status", res.Status),
				slog.String("ip", ctx.RealIP()),
				slog.String("user_agent", req.UserAgent()),
				slog.Int64("latency_ms", elapsed.Milliseconds()),
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}

			c.apiLogger.LogAttrs(req.Context(), slog.LevelInfo, "API Request", attrs...)

			return err
		}
	}
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	// Health check endpoint - publicly accessible
	c.Group.GET("/health", c.HealthCheck)

	c.initSpeciesRoutes()
	c.initNotificationRoutes()
}

// HealthCheck handles the API health check endpoint
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if c.Settings != nil && c.Settings.WebServer.Debug {
		response["environment"] = "development"
	} else {
		response["environment"] = "production"
	}

	// Simple datastore connectivity check
	dbStatus := "connected"
	if _, err := c.DS.CountSearchResults(""); err != nil {
		dbStatus = "disconnected"
		response["database_error"] = err.Error()
	}
	response["database_status"] = dbStatus

	if c.startTime != nil {
		uptime := time.Since(*c.startTime)
		response["uptime"] = uptime.String()
		response["uptime_seconds"] = uptime.Seconds()
	}

	return ctx.JSON(http.StatusOK, response)
}

// Shutdown performs cleanup of all resources used by the API controller.
// This should be called when the application is shutting down.
func (c *Controller) Shutdown() {
	if c.apiLoggerClose != nil {
		if err := c.apiLoggerClose(); err != nil {
			c.logger.Printf("Error closing API log file: %v", err)
		}
	}

	c.Debug("API Controller shutting down")
}

// ErrorResponse is the JSON error envelope returned by all handlers
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	correlationID := generateCorrelationID()

	var errorStr string
	if err != nil {
		errorStr = err.Error()
	} else {
		errorStr = message
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}
}

// generateCorrelationID creates a unique identifier for error tracking
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}

	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError constructs and returns an appropriate error response
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	ip := ctx.RealIP()

	c.logger.Printf("API Error [%s] from %s: %s: %v",
		errorResp.CorrelationID, ip, message, err)

	if c.apiLogger != nil {
		var errorStr string
		if err != nil {
			errorStr = err.Error()
		} else {
			errorStr = message
		}

		c.apiLogger.Error("API Error",
			"correlation_id", errorResp.CorrelationID,
			"message", message,
			"error", errorStr,
			"code", code,
			"path", ctx.Request().URL.Path,
			"method", ctx.Request().Method,
			"ip", ip,
		)
	}

	return ctx.JSON(code, errorResp)
}

// Debug logs debug messages when debug mode is enabled
func (c *Controller) Debug(format string, v ...any) {
	if c.Settings.WebServer.Debug {
		msg := fmt.Sprintf(format, v...)
		c.logger.Printf("[DEBUG] %s", msg)

		if c.apiLogger != nil {
			c.apiLogger.Debug(msg)
		}
	}
}
