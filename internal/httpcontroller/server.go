// internal/httpcontroller/server.go
package httpcontroller

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	api "github.com/fernwick/speciarium/internal/api/v2"
	"github.com/fernwick/speciarium/internal/conf"
	"github.com/fernwick/speciarium/internal/datastore"
	"github.com/fernwick/speciarium/internal/logging"
	"github.com/fernwick/speciarium/internal/notification"
	"github.com/fernwick/speciarium/internal/observability"
)

// Server encapsulates the Echo server serving the catalog pages and the
// JSON API.
type Server struct {
	Echo            *echo.Echo
	DS              datastore.Interface
	Settings        *conf.Settings
	NotificationSvc *notification.Service
	APIV2           *api.Controller // JSON API
	metrics         *observability.Metrics

	// Structured logger for web operations
	webLogger      *slog.Logger
	webLoggerClose func() error

	// inFlight guards against concurrent edit submits of the same record.
	// Keyed by record ID; a second submit while one is pending gets 409.
	inFlight sync.Map
}

// New initializes a new HTTP server with the given datastore and
// notification service. Both are injected; the server never opens
// connections of its own.
func New(settings *conf.Settings, dataStore datastore.Interface, notificationSvc *notification.Service, metrics *observability.Metrics) *Server {
	configureDefaultSettings(settings)

	s := &Server{
		Echo:            echo.New(),
		DS:              dataStore,
		Settings:        settings,
		NotificationSvc: notificationSvc,
		metrics:         metrics,
	}

	// Configure an IP extractor
	s.Echo.IPExtractor = echo.ExtractIPFromXFFHeader()

	s.initializeServer()
	return s
}

// Start begins listening and serving HTTP requests.
func (s *Server) Start() {
	errChan := make(chan error)

	go func() {
		if err := s.Echo.Start(":" + s.Settings.WebServer.Port); err != nil {
			errChan <- err
		}
	}()

	go handleServerError(errChan)

	fmt.Printf("HTTP server started on port %s\n", s.Settings.WebServer.Port)
}

// initializeServer configures and initializes the server.
func (s *Server) initializeServer() {
	s.Echo.HideBanner = true
	s.initLogger()

	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.Gzip())
	s.Echo.Use(s.LoggingMiddleware())

	s.initRoutes()

	// Initialize the JSON API v2
	s.Debug("Initializing JSON API v2")
	s.APIV2 = api.New(
		s.Echo,
		s.DS,
		s.Settings,
		s.NotificationSvc,
		log.Default(),
		s.metrics,
	)
}

// configureDefaultSettings sets default values for server settings.
func configureDefaultSettings(settings *conf.Settings) {
	if settings.WebServer.Port == "" {
		settings.WebServer.Port = "8080"
	}
	if settings.Catalog.PageSize <= 0 {
		settings.Catalog.PageSize = 25
	}
}

// handleServerError listens for server errors and handles them.
func handleServerError(errChan chan error) {
	for err := range errChan {
		log.Printf("Server error: %v", err)
	}
}

// initLogger initializes the structured web logger.
func (s *Server) initLogger() {
	if !s.Settings.Main.Log.Enabled {
		return
	}

	webLogPath := "logs/web.log"
	webLogger, closeFunc, err := logging.NewFileLogger(webLogPath, "web", slog.LevelInfo)
	if err != nil {
		log.Printf("Warning: Failed to initialize web structured logger: %v", err)
		// Continue without structured logging rather than failing completely
		return
	}
	s.webLogger = webLogger
	s.webLoggerClose = closeFunc
	log.Printf("Web structured logging initialized to %s", webLogPath)

	// Discard Echo's default log output, the middleware logs every request
	s.Echo.Logger.SetOutput(io.Discard)
	s.Echo.Logger.SetLevel(99)
}

// Debug logs debug messages if debug mode is enabled
func (s *Server) Debug(format string, v ...any) {
	if s.Settings.WebServer.Debug {
		switch len(v) {
		case 0:
			log.Print(format)
		default:
			log.Printf(format, v...)
		}

		if s.webLogger != nil {
			s.webLogger.Debug(fmt.Sprintf(format, v...))
		}
	}
}

// Shutdown performs cleanup operations and gracefully stops the server
func (s *Server) Shutdown() error {
	if s.webLoggerClose != nil {
		if err := s.webLoggerClose(); err != nil {
			log.Printf("Error closing web log file: %v", err)
		}
	}

	if s.APIV2 != nil {
		s.APIV2.Shutdown()
	}

	return s.Echo.Close()
}

// LogError logs an error with structured request information
func (s *Server) LogError(c echo.Context, err error, message string) {
	log.Printf("ERROR: %s: %v", message, err)

	if s.webLogger != nil {
		req := c.Request()
		s.webLogger.Error("Error",
			"message", message,
			"error", err.Error(),
			"path", req.URL.Path,
			"method", req.Method,
			"ip", c.RealIP(),
			"user_agent", req.UserAgent(),
		)
	}
}

// LoggingMiddleware creates a middleware function that logs HTTP requests
// with detailed structured information.
func (s *Server) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if s.webLogger == nil {
				return next(ctx)
			}

			start := time.Now()
			err := next(ctx)

			req := ctx.Request()
			res := ctx.Response()

			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"query", req.URL.RawQuery,
				"status", res.Status,
				"ip", ctx.RealIP(),
				"user_agent", req.UserAgent(),
				"latency_ms", time.Since(start).Milliseconds(),
				"bytes_out", res.Size,
			}

			switch {
			case err != nil:
				attrs = append(attrs, "error", err.Error())
				s.webLogger.Error("HTTP Request", attrs...)
			case res.Status >= 400:
				s.webLogger.Warn("HTTP Request", attrs...)
			default:
				s.webLogger.Info("HTTP Request", attrs...)
			}

			return err
		}
	}
}
