package entity

import (
	"orgsync-api/core/entity"

	"github.com/google/uuid"
)

type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
	SyncStatusDeleted SyncStatus = "deleted"
)

// SyncEntry is the ledger row tying one event to one user's remote copy.
// (EventID, UserID) is unique.
type SyncEntry struct {
	EventID        uuid.UUID  `db:"event_id"`
	UserID         uuid.UUID  `db:"user_id"`
	OrganizationID uuid.UUID  `db:"organization_id"`
	GoogleEventID  string     `db:"google_event_id"`
	SyncStatus     SyncStatus `db:"sync_status"`
	LastError      *string    `db:"last_error"`
	entity.BaseEntity
}

// HasRemote reports whether the entry points at a remote event.
func (e *SyncEntry) HasRemote() bool {
	return e != nil && e.GoogleEventID != ""
}
