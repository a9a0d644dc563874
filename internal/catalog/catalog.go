// Package catalog boots the species catalog application: it opens the
// datastore, starts the notification service and runs the web server
// until a termination signal arrives.
package catalog

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fernwick/speciarium/internal/conf"
	"github.com/fernwick/speciarium/internal/datastore"
	"github.com/fernwick/speciarium/internal/httpcontroller"
	"github.com/fernwick/speciarium/internal/notification"
	"github.com/fernwick/speciarium/internal/observability"
)

// Serve wires the application together and blocks until shutdown.
// The datastore handle and the notification service are created once
// here and injected into every consumer.
func Serve(settings *conf.Settings) error {
	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no datastore output enabled in settings")
	}
	if err := store.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Error closing datastore: %v", err)
		}
	}()

	maxNotifications := settings.Notification.MaxNotifications
	if maxNotifications <= 0 {
		maxNotifications = notification.DefaultMaxNotifications
	}
	notification.Initialize(&notification.ServiceConfig{
		Debug:              settings.Notification.Debug,
		MaxNotifications:   maxNotifications,
		CleanupInterval:    notification.DefaultCleanupInterval,
		RateLimitWindow:    time.Minute,
		RateLimitMaxEvents: notification.DefaultRateLimitMaxEvents,
	})
	notificationSvc := notification.GetService()

	pushDispatcher, err := notification.InitializePushFromConfig(settings)
	if err != nil {
		log.Printf("Warning: push delivery not started: %v", err)
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}

	server := httpcontroller.New(settings, store, notificationSvc, metrics)
	server.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down")
	if err := server.Shutdown(); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}
	if pushDispatcher != nil {
		pushDispatcher.Stop()
	}
	notificationSvc.Stop()

	return nil
}
