package repository

import (
	"context"
	"database/sql"

	"orgsync-api/core/database"
	"orgsync-api/core/logger"
	"orgsync-api/modules/calendar/entity"

	"github.com/google/uuid"
)

type PreferenceRepository struct {
	DB database.IDatabase
}

func NewPreferenceRepository(db database.IDatabase) *PreferenceRepository {
	return &PreferenceRepository{DB: db}
}

const preferenceColumns = `
	id, user_id, organization_id, sync_general, sync_game, sync_meeting,
	sync_social, sync_fundraiser, sync_philanthropy, created_at, updated_at`

// Get returns nil when the user never saved preferences for the organization.
func (r *PreferenceRepository) Get(ctx context.Context, userID, orgID uuid.UUID) (*entity.SyncPreference, error) {
	query := `SELECT ` + preferenceColumns + `
		FROM calendar_sync_preferences
		WHERE user_id = $1 AND organization_id = $2`

	var pref entity.SyncPreference
	err := r.DB.GetContext(ctx, &pref, query, userID, orgID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("PreferenceRepository:Get:Error", "error", err, "user_id", userID, "organization_id", orgID)
		return nil, err
	}
	return &pref, nil
}

func (r *PreferenceRepository) Upsert(ctx context.Context, pref *entity.SyncPreference) (*entity.SyncPreference, error) {
	query := `
		INSERT INTO calendar_sync_preferences (
			user_id, organization_id, sync_general, sync_game, sync_meeting,
			sync_social, sync_fundraiser, sync_philanthropy
		)
		VALUES (:user_id, :organization_id, :sync_general, :sync_game, :sync_meeting,
			:sync_social, :sync_fundraiser, :sync_philanthropy)
		ON CONFLICT (user_id, organization_id) DO UPDATE SET
			sync_general = EXCLUDED.sync_general,
			sync_game = EXCLUDED.sync_game,
			sync_meeting = EXCLUDED.sync_meeting,
			sync_social = EXCLUDED.sync_social,
			sync_fundraiser = EXCLUDED.sync_fundraiser,
			sync_philanthropy = EXCLUDED.sync_philanthropy,
			updated_at = NOW()
		RETURNING ` + preferenceColumns

	rows, err := r.DB.NamedQueryContext(ctx, query, pref)
	if err != nil {
		logger.Error("PreferenceRepository:Upsert:Error", "error", err, "user_id", pref.UserID)
		return nil, err
	}
	defer rows.Close()

	var saved entity.SyncPreference
	if rows.Next() {
		if err := rows.StructScan(&saved); err != nil {
			logger.Error("PreferenceRepository:Upsert:Scan:Error", "error", err)
			return nil, err
		}
	}
	return &saved, rows.Err()
}
