package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/fernwick/speciarium/internal/errors"
)

// ToastType defines the visual style of a toast message
type ToastType string

const (
	// ToastTypeInfo renders a neutral informational toast
	ToastTypeInfo ToastType = "info"
	// ToastTypeSuccess renders a success toast
	ToastTypeSuccess ToastType = "success"
	// ToastTypeWarning renders a warning toast
	ToastTypeWarning ToastType = "warning"
	// ToastTypeError renders an error toast
	ToastTypeError ToastType = "error"
)

// Toast is an ephemeral UI message. Toasts are broadcast to SSE subscribers
// but never persisted, so a reconnecting client cannot replay one.
type Toast struct {
	// ID is the unique identifier for the toast
	ID string `json:"id"`
	// Message is the text shown to the user
	Message string `json:"message"`
	// Type controls the toast styling
	Type ToastType `json:"type"`
	// Duration is how long the toast stays visible, in milliseconds (0 = client default)
	Duration int `json:"duration,omitempty"`
	// Component identifies the source component
	Component string `json:"component,omitempty"`
	// Timestamp indicates when the toast was created
	Timestamp time.Time `json:"timestamp"`
	// Action is an optional clickable action attached to the toast
	Action *ToastAction `json:"action,omitempty"`
}

// ToastAction describes an optional action button on a toast
type ToastAction struct {
	Label   string `json:"label"`
	URL     string `json:"url,omitempty"`
	Handler string `json:"handler,omitempty"`
}

// NewToast creates a toast with a unique ID and current timestamp
func NewToast(message string, toastType ToastType) *Toast {
	return &Toast{
		ID:        uuid.New().String(),
		Message:   message,
		Type:      toastType,
		Timestamp: time.Now(),
	}
}

// WithDuration sets the display duration in milliseconds and returns the toast for chaining
func (t *Toast) WithDuration(durationMs int) *Toast {
	t.Duration = durationMs
	return t
}

// WithComponent sets the source component and returns the toast for chaining
func (t *Toast) WithComponent(component string) *Toast {
	t.Component = component
	return t
}

// WithAction attaches an action and returns the toast for chaining
func (t *Toast) WithAction(label, url, handler string) *Toast {
	t.Action = &ToastAction{Label: label, URL: url, Handler: handler}
	return t
}

// ToNotification converts the toast into a notification for broadcast.
// The isToast metadata flag keeps it out of persistent listings.
func (t *Toast) ToNotification() *Notification {
	var notifType Type
	var priority Priority

	switch t.Type {
	case ToastTypeError:
		notifType = TypeError
		priority = PriorityHigh
	case ToastTypeWarning:
		notifType = TypeWarning
		priority = PriorityMedium
	default:
		notifType = TypeInfo
		priority = PriorityLow
	}

	notif := &Notification{
		ID:        t.ID,
		Type:      notifType,
		Priority:  priority,
		Status:    StatusUnread,
		Title:     "Toast Message",
		Message:   t.Message,
		Component: t.Component,
		Timestamp: t.Timestamp,
		Metadata: map[string]any{
			MetadataKeyIsToast: true,
			"toastType":        string(t.Type),
		},
	}

	if t.Duration > 0 {
		notif.Metadata["duration"] = t.Duration
	}
	if t.Action != nil {
		notif.Metadata["action"] = map[string]any{
			"label":   t.Action.Label,
			"url":     t.Action.URL,
			"handler": t.Action.Handler,
		}
	}

	return notif
}

// SendToast broadcasts a toast through the given service
func (s *Service) SendToast(toast *Toast) error {
	if toast == nil {
		return errors.Newf("toast cannot be nil").
			Component("notification").
			Category(errors.CategoryValidation).
			Build()
	}
	return s.Publish(toast.ToNotification())
}

// SendToastWithDuration is a convenience helper that builds and broadcasts a
// toast through the global service instance.
func SendToastWithDuration(message string, toastType ToastType, component string, durationMs int) error {
	service := GetService()
	if service == nil {
		return errors.Newf("notification service not initialized").
			Component("notification").
			Category(errors.CategoryState).
			Build()
	}

	toast := NewToast(message, toastType).
		WithComponent(component).
		WithDuration(durationMs)

	return service.SendToast(toast)
}
