package entity

import (
	"orgsync-api/core/entity"
	eventEntity "orgsync-api/modules/event/entity"

	"github.com/google/uuid"
)

// SyncPreference is a user's per-organization opt-in by event category.
type SyncPreference struct {
	UserID           uuid.UUID `db:"user_id"`
	OrganizationID   uuid.UUID `db:"organization_id"`
	SyncGeneral      bool      `db:"sync_general"`
	SyncGame         bool      `db:"sync_game"`
	SyncMeeting      bool      `db:"sync_meeting"`
	SyncSocial       bool      `db:"sync_social"`
	SyncFundraiser   bool      `db:"sync_fundraiser"`
	SyncPhilanthropy bool      `db:"sync_philanthropy"`
	entity.BaseEntity
}

// DefaultSyncPreference has every category enabled.
func DefaultSyncPreference(userID, orgID uuid.UUID) *SyncPreference {
	return &SyncPreference{
		UserID:           userID,
		OrganizationID:   orgID,
		SyncGeneral:      true,
		SyncGame:         true,
		SyncMeeting:      true,
		SyncSocial:       true,
		SyncFundraiser:   true,
		SyncPhilanthropy: true,
	}
}

// Allows reports whether events of the given type should be synced.
// Unknown types are allowed.
func (p *SyncPreference) Allows(eventType string) bool {
	switch eventType {
	case eventEntity.EventTypeGeneral:
		return p.SyncGeneral
	case eventEntity.EventTypeGame:
		return p.SyncGame
	case eventEntity.EventTypeMeeting:
		return p.SyncMeeting
	case eventEntity.EventTypeSocial:
		return p.SyncSocial
	case eventEntity.EventTypeFundraiser:
		return p.SyncFundraiser
	case eventEntity.EventTypePhilanthropy:
		return p.SyncPhilanthropy
	default:
		return true
	}
}
