package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fernwick/speciarium/internal/errors"
	"github.com/fernwick/speciarium/internal/logging"
)

// Subscriber represents a notification subscriber
type Subscriber struct {
	ch     chan *Notification
	ctx    context.Context
	cancel context.CancelFunc
}

// Service manages notifications and provides rate limiting
type Service struct {
	store         Store
	subscribers   []*Subscriber
	subscribersMu sync.RWMutex
	rateLimiter   *RateLimiter
	cleanupTicker *time.Ticker
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	logger        *slog.Logger
	config        *ServiceConfig
}

// ServiceConfig holds the configuration for the notification service.
type ServiceConfig struct {
	// Debug enables debug logging for the service
	Debug bool
	// MaxNotifications is the maximum number of notifications to keep in memory
	MaxNotifications int
	// CleanupInterval is how often to clean up expired notifications
	CleanupInterval time.Duration
	// RateLimitWindow is the time window for rate limiting
	RateLimitWindow time.Duration
	// RateLimitMaxEvents is the maximum number of events per window
	RateLimitMaxEvents int
}

// DefaultServiceConfig returns a default configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxNotifications:   DefaultMaxNotifications,
		CleanupInterval:    DefaultCleanupInterval,
		RateLimitWindow:    1 * time.Minute,
		RateLimitMaxEvents: DefaultRateLimitMaxEvents,
	}
}

// NewService creates a new notification service
func NewService(config *ServiceConfig) *Service {
	if config == nil {
		config = DefaultServiceConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	logger := logging.ForService("notification")
	if logger == nil {
		logger = slog.Default().With("service", "notification")
	}

	service := &Service{
		store:         NewInMemoryStore(config.MaxNotifications),
		subscribers:   make([]*Subscriber, 0),
		rateLimiter:   NewRateLimiter(config.RateLimitWindow, config.RateLimitMaxEvents),
		cleanupTicker: time.NewTicker(config.CleanupInterval),
		ctx:           ctx,
		cancel:        cancel,
		logger:        logger,
		config:        config,
	}

	service.logger.Info("notification service initialized",
		"max_notifications", config.MaxNotifications,
		"cleanup_interval", config.CleanupInterval,
		"rate_limit_window", config.RateLimitWindow,
		"rate_limit_max_events", config.RateLimitMaxEvents,
		"debug", config.Debug)

	service.wg.Add(1)
	go service.cleanupLoop()

	return service
}

// Create adds a new notification to the system
func (s *Service) Create(notifType Type, priority Priority, title, message string) (*Notification, error) {
	return s.CreateWithComponent(notifType, priority, title, message, "")
}

// CreateWithComponent creates a notification with a specific component
func (s *Service) CreateWithComponent(notifType Type, priority Priority, title, message, component string) (*Notification, error) {
	if !s.rateLimiter.Allow() {
		if s.config.Debug {
			s.logger.Debug("notification rate limit exceeded",
				"type", notifType,
				"priority", priority)
		}
		return nil, errors.Newf("rate limit exceeded").
			Component("notification").
			Category(errors.CategorySystem).
			Build()
	}

	notification := NewNotification(notifType, priority, title, message)
	if component != "" {
		notification.WithComponent(component)
	}

	if err := s.store.Save(notification); err != nil {
		return nil, errors.New(err).
			Component("notification").
			Category(errors.CategorySystem).
			Context("operation", "save_notification").
			Build()
	}

	s.broadcast(notification)

	if s.config.Debug {
		s.logger.Debug("notification created and broadcast",
			"id", notification.ID,
			"type", notifType)
	}

	return notification, nil
}

// Publish broadcasts a pre-built notification without persisting it.
// Toast messages use this path so they reach SSE subscribers exactly once
// but never show up in the notification list.
func (s *Service) Publish(notification *Notification) error {
	if !s.rateLimiter.Allow() {
		return errors.Newf("rate limit exceeded").
			Component("notification").
			Category(errors.CategorySystem).
			Build()
	}

	s.broadcast(notification)
	return nil
}

// Get retrieves a notification by ID
func (s *Service) Get(id string) (*Notification, error) {
	return s.store.Get(id)
}

// List returns notifications based on filter options
func (s *Service) List(filter *FilterOptions) ([]*Notification, error) {
	return s.store.List(filter)
}

// MarkAsRead updates a notification's status to read
func (s *Service) MarkAsRead(id string) error {
	if id == "" {
		return errors.Newf("notification ID cannot be empty").
			Component("notification").
			Category(errors.CategoryValidation).
			Build()
	}

	notification, err := s.store.Get(id)
	if err != nil {
		return err
	}

	notification.MarkAsRead()
	return s.store.Update(notification)
}

// Delete removes a notification
func (s *Service) Delete(id string) error {
	if id == "" {
		return errors.Newf("notification ID cannot be empty").
			Component("notification").
			Category(errors.CategoryValidation).
			Build()
	}

	return s.store.Delete(id)
}

// GetUnreadCount returns the number of unread notifications
func (s *Service) GetUnreadCount() (int, error) {
	return s.store.GetUnreadCount()
}

// CreateErrorNotification creates a notification from an error
func (s *Service) CreateErrorNotification(err error) (*Notification, error) {
	var title, message, component string
	var priority Priority

	var enhancedErr *errors.EnhancedError
	if errors.As(err, &enhancedErr) {
		component = enhancedErr.GetComponent()
		category := enhancedErr.GetCategory()
		message = enhancedErr.Error()

		switch category {
		case string(errors.CategorySystem), string(errors.CategoryDatabase):
			priority = PriorityCritical
			title = "Critical System Error"
		case string(errors.CategoryNetwork), string(errors.CategoryHTTP):
			priority = PriorityHigh
			title = category + " Error"
		case string(errors.CategoryValidation):
			priority = PriorityLow
			title = "Validation Problem"
		default:
			priority = PriorityMedium
			title = "Application Error"
		}
	} else {
		priority = PriorityMedium
		title = "Application Error"
		message = err.Error()
		component = "unknown"
	}

	return s.CreateWithComponent(TypeError, priority, title, message, component)
}

// Subscribe creates a channel to receive real-time notifications.
//
// The subscriber must watch the returned context's Done() channel to detect
// cancellation, and must not close the returned channel. To unsubscribe, call
// service.Unsubscribe(ch). Cancelled subscribers are cleaned up lazily during
// broadcast.
func (s *Service) Subscribe() (<-chan *Notification, context.Context) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	ctx, cancel := context.WithCancel(s.ctx)
	sub := &Subscriber{
		ch:     make(chan *Notification, DefaultChannelBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
	s.subscribers = append(s.subscribers, sub)

	if s.config.Debug {
		s.logger.Debug("new subscriber added",
			"total_subscribers", len(s.subscribers))
	}

	return sub.ch, ctx
}

// Unsubscribe removes a notification channel. It cancels the subscriber's
// context but does not close the channel.
func (s *Service) Unsubscribe(ch <-chan *Notification) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	for i, subscriber := range s.subscribers {
		if subscriber.ch == ch {
			subscriber.cancel()
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			break
		}
	}
}

// broadcastStats tracks broadcast results.
type broadcastStats struct {
	success   int
	failed    int
	cancelled int
}

// broadcast sends a notification to all subscribers. Each subscriber receives
// a clone so later mutation of the original cannot race with delivery.
func (s *Service) broadcast(notification *Notification) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	activeSubscribers := make([]*Subscriber, 0, len(s.subscribers))
	var stats broadcastStats

	for _, sub := range s.subscribers {
		select {
		case <-sub.ctx.Done():
			stats.cancelled++
			continue
		default:
		}

		activeSubscribers = append(activeSubscribers, sub)
		select {
		case sub.ch <- notification.Clone():
			stats.success++
		default:
			// Slow subscriber with a full buffer, drop rather than block
			stats.failed++
		}
	}

	s.subscribers = activeSubscribers

	if s.config.Debug && (stats.success > 0 || stats.failed > 0 || stats.cancelled > 0) {
		s.logger.Debug("broadcast completed",
			"notification_id", notification.ID,
			"success_count", stats.success,
			"failed_count", stats.failed,
			"cancelled_count", stats.cancelled,
			"active_subscribers", len(activeSubscribers))
	}
}

// cleanupLoop periodically removes expired notifications
func (s *Service) cleanupLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.cleanupTicker.C:
			if err := s.store.DeleteExpired(); err != nil {
				s.logger.Error("error cleaning up expired notifications", "error", err)
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the notification service
func (s *Service) Stop() {
	s.logger.Info("notification service shutting down")

	s.cancel()
	s.cleanupTicker.Stop()
	s.wg.Wait()

	s.subscribersMu.Lock()
	for _, sub := range s.subscribers {
		sub.cancel()
	}
	s.subscribers = nil
	s.subscribersMu.Unlock()
}

// RateLimiter provides rate limiting for notifications
type RateLimiter struct {
	window    time.Duration
	maxEvents int
	events    []time.Time
	mu        sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(window time.Duration, maxEvents int) *RateLimiter {
	return &RateLimiter{
		window:    window,
		maxEvents: maxEvents,
		events:    make([]time.Time, 0, maxEvents),
	}
}

// Allow checks if an event is allowed based on rate limits
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	// Drop events outside the window, reusing the slice
	validCount := 0
	for _, event := range r.events {
		if event.After(cutoff) {
			r.events[validCount] = event
			validCount++
		}
	}
	r.events = r.events[:validCount]

	if len(r.events) >= r.maxEvents {
		return false
	}

	r.events = append(r.events, now)
	return true
}

// Reset clears the rate limiter
func (r *RateLimiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
