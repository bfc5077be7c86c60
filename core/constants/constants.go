package constants

import "time"

const (
	DefaultTimeout        = 30 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	ShutdownTimeout       = 15 * time.Second
)

// Calendar sync
const (
	// TokenRefreshBuffer is how long before expiry an access token is treated as stale.
	TokenRefreshBuffer = 5 * time.Minute
	// DefaultTokenLifetime applies when the provider omits an expiry on refresh.
	DefaultTokenLifetime = time.Hour
	DefaultEventDuration = time.Hour
	DefaultSyncTimezone  = "UTC"
	DefaultCalendarID    = "primary"

	// DefaultRecurrenceHorizonMonths bounds a recurrence rule that has no end date.
	DefaultRecurrenceHorizonMonths = 6
	MaxRecurrenceOccurrences       = 731

	DefaultSyncWorkers   = 8
	DefaultRemoteTimeout = 15 * time.Second

	OAuthStateTTL    = 10 * time.Minute
	OAuthStateLength = 32
)

// Redis keys
const (
	RedisKeyTokenRefreshLock = "calendar:refresh_lock:"
	RefreshLockTTL           = 30 * time.Second
	RefreshLockRetryInterval = 100 * time.Millisecond
)

// Task queue
const (
	QueueCalendarSync = "calendar_sync"
	SyncTaskTimeout   = 2 * time.Minute
	WorkerConcurrency = 10
)

// HTTP
const (
	InternalKeyHeader = "X-Internal-Key"
	ContextKeyUserID  = "user_id"
	AuthorizationType = "Bearer "
)

// Google
const (
	GoogleScopeEmail  = "https://www.googleapis.com/auth/userinfo.email"
	GoogleScopeEvents = "https://www.googleapis.com/auth/calendar.events"
)
