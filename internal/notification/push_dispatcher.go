package notification

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fernwick/speciarium/internal/conf"
	"github.com/fernwick/speciarium/internal/errors"
)

// PushDispatcher subscribes to a notification service and forwards
// non-toast notifications to the configured push providers.
type PushDispatcher struct {
	service   *Service
	providers []Provider
	logger    *slog.Logger
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewPushDispatcher creates a dispatcher over the given providers.
// Providers with invalid configuration are skipped with a warning.
func NewPushDispatcher(service *Service, providers []Provider) *PushDispatcher {
	logger := service.logger.With("subsystem", "push")

	valid := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if !p.IsEnabled() {
			continue
		}
		if err := p.ValidateConfig(); err != nil {
			logger.Warn("skipping push provider with invalid configuration",
				"provider", p.GetName(),
				"error", err)
			continue
		}
		valid = append(valid, p)
	}

	return &PushDispatcher{
		service:   service,
		providers: valid,
		logger:    logger,
	}
}

// Start begins consuming notifications and dispatching them to providers.
// It is a no-op when no providers are configured.
func (d *PushDispatcher) Start() {
	if len(d.providers) == 0 {
		return
	}

	ch, subCtx := d.service.Subscribe()
	ctx, cancel := context.WithCancel(subCtx)
	d.cancel = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case notif := <-ch:
				if notif == nil {
					return
				}
				d.dispatch(ctx, notif)
			case <-ctx.Done():
				return
			}
		}
	}()

	d.logger.Info("push dispatcher started", "providers", len(d.providers))
}

// Stop terminates the dispatch loop and waits for in-flight sends.
func (d *PushDispatcher) Stop() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	d.wg.Wait()
}

// dispatch sends one notification to every provider that supports its type.
// Toasts are UI-only and never pushed.
func (d *PushDispatcher) dispatch(ctx context.Context, notif *Notification) {
	if isToastNotification(notif) {
		return
	}

	for _, provider := range d.providers {
		if !provider.SupportsType(notif.Type) {
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, DefaultPushTimeout)
		err := provider.Send(sendCtx, notif)
		cancel()

		if err != nil {
			d.logger.Error("push delivery failed",
				"provider", provider.GetName(),
				"notification_id", notif.ID,
				"error", err)
		}
	}
}

// InitializePushFromConfig wires a shoutrrr push provider from settings and
// starts a dispatcher on the global service. Returns the dispatcher so the
// caller can stop it during shutdown, or nil when push is disabled.
func InitializePushFromConfig(settings *conf.Settings) (*PushDispatcher, error) {
	if !settings.Notification.Push.Enabled {
		return nil, nil
	}

	service := GetService()
	if service == nil {
		return nil, errors.Newf("notification service not initialized").
			Component("notification").
			Category(errors.CategoryState).
			Build()
	}

	provider := NewShoutrrrProvider("shoutrrr", true, settings.Notification.Push.URLs, nil, DefaultPushTimeout)
	dispatcher := NewPushDispatcher(service, []Provider{provider})
	dispatcher.Start()
	return dispatcher, nil
}
