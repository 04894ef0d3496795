package constants

// Offline queue defaults
const (
	// DefaultQueueCapacity bounds the offline mutation queue; oldest entries are dropped first.
	DefaultQueueCapacity = 50

	// DefaultReplayRPS of 0 disables replay pacing.
	DefaultReplayRPS   = 0
	DefaultReplayBurst = 1
)

// Persisted key names shared by every storage backend.
const (
	KeyTokens       = "auth.tokens"
	KeyPreferences  = "prefs"
	KeyOfflineQueue = "offline.queue"
)
