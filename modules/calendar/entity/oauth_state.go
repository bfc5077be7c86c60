package entity

import (
	"time"

	"orgsync-api/core/entity"

	"github.com/google/uuid"
)

// OAuthState binds a consent-screen state token to the user who requested it.
type OAuthState struct {
	State     string    `db:"state"`
	UserID    uuid.UUID `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	entity.BaseEntity
}
