package repository

import (
	"context"
	"database/sql"

	"orgsync-api/core/database"
	"orgsync-api/core/logger"
	"orgsync-api/core/params"
	"orgsync-api/modules/calendar/entity"

	"github.com/google/uuid"
)

type EntryRepository struct {
	DB database.IDatabase
}

func NewEntryRepository(db database.IDatabase) *EntryRepository {
	return &EntryRepository{DB: db}
}

const entryColumns = `
	id, event_id, user_id, organization_id, google_event_id, sync_status,
	last_error, created_at, updated_at`

func (r *EntryRepository) Get(ctx context.Context, eventID, userID uuid.UUID) (*entity.SyncEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM event_calendar_entries WHERE event_id = $1 AND user_id = $2`

	var entry entity.SyncEntry
	err := r.DB.GetContext(ctx, &entry, query, eventID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("EntryRepository:Get:Error", "error", err, "event_id", eventID, "user_id", userID)
		return nil, err
	}
	return &entry, nil
}

// Upsert writes the entry keyed on (event_id, user_id).
func (r *EntryRepository) Upsert(ctx context.Context, entry *entity.SyncEntry) error {
	query := `
		INSERT INTO event_calendar_entries (
			event_id, user_id, organization_id, google_event_id, sync_status, last_error
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id, user_id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			google_event_id = EXCLUDED.google_event_id,
			sync_status = EXCLUDED.sync_status,
			last_error = EXCLUDED.last_error,
			updated_at = NOW()
	`
	err := r.DB.ExecContext(ctx, query,
		entry.EventID, entry.UserID, entry.OrganizationID, entry.GoogleEventID, entry.SyncStatus, entry.LastError,
	)
	if err != nil {
		logger.Error("EntryRepository:Upsert:Error", "error", err, "event_id", entry.EventID, "user_id", entry.UserID)
		return err
	}
	return nil
}

func (r *EntryRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]entity.SyncEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM event_calendar_entries WHERE event_id = $1 ORDER BY created_at`

	var entries []entity.SyncEntry
	if err := r.DB.SelectContext(ctx, &entries, query, eventID); err != nil {
		logger.Error("EntryRepository:ListByEvent:Error", "error", err, "event_id", eventID)
		return nil, err
	}
	return entries, nil
}

func (r *EntryRepository) ListByUser(ctx context.Context, userID uuid.UUID, p params.QueryParams) ([]entity.SyncEntry, int, error) {
	var total int
	if err := r.DB.GetContext(ctx, &total, `SELECT COUNT(*) FROM event_calendar_entries WHERE user_id = $1`, userID); err != nil {
		logger.Error("EntryRepository:ListByUser:Count:Error", "error", err, "user_id", userID)
		return nil, 0, err
	}

	query := `SELECT ` + entryColumns + `
		FROM event_calendar_entries
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3`

	var entries []entity.SyncEntry
	if err := r.DB.SelectContext(ctx, &entries, query, userID, p.PageSize, p.Offset()); err != nil {
		logger.Error("EntryRepository:ListByUser:Error", "error", err, "user_id", userID)
		return nil, 0, err
	}
	return entries, total, nil
}
