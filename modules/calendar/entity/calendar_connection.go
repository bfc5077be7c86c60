package entity

import (
	"time"

	"orgsync-api/core/entity"

	"github.com/google/uuid"
)

type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusError        ConnectionStatus = "error"
)

const ProviderGoogle = "google"

// CalendarConnection stores a user's linked Google account. Tokens are
// held encrypted; see core/crypto.
type CalendarConnection struct {
	UserID           uuid.UUID        `db:"user_id"`
	Provider         string           `db:"provider"`
	AccessToken      string           `db:"access_token"`
	RefreshToken     string           `db:"refresh_token"`
	TokenExpiresAt   time.Time        `db:"token_expires_at"`
	CalendarEmail    string           `db:"calendar_email"`
	Status           ConnectionStatus `db:"status"`
	TargetCalendarID string           `db:"target_calendar_id"`
	LastSyncAt       *time.Time       `db:"last_sync_at"`
	entity.BaseEntity
}

func (CalendarConnection) TableName() string {
	return "calendar_connections"
}
