package notification

import "time"

const (
	// DefaultMaxNotifications is the in-memory store size limit
	DefaultMaxNotifications = 1000

	// DefaultCleanupInterval is how often expired notifications are purged
	DefaultCleanupInterval = 5 * time.Minute

	// DefaultRateLimitMaxEvents caps notification creation per rate window
	DefaultRateLimitMaxEvents = 100

	// DefaultChannelBufferSize is the per-subscriber channel buffer
	DefaultChannelBufferSize = 64

	// DefaultPushTimeout bounds a single push provider delivery
	DefaultPushTimeout = 30 * time.Second
)
