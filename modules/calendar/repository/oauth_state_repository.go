package repository

import (
	"context"
	"database/sql"
	"time"

	"orgsync-api/core/database"
	"orgsync-api/core/logger"
	"orgsync-api/modules/calendar/entity"

	"github.com/google/uuid"
)

type OAuthStateRepository struct {
	DB database.IDatabase
}

func NewOAuthStateRepository(db database.IDatabase) *OAuthStateRepository {
	return &OAuthStateRepository{DB: db}
}

func (r *OAuthStateRepository) Save(ctx context.Context, state string, userID uuid.UUID, expiresAt time.Time) error {
	query := `
		INSERT INTO oauth_states (state, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (state)
		DO UPDATE SET user_id = $2, expires_at = $3, updated_at = NOW()
	`
	if err := r.DB.ExecContext(ctx, query, state, userID, expiresAt); err != nil {
		logger.Error("OAuthStateRepository:Save:Error", "error", err)
		return err
	}
	return nil
}

// Consume deletes the state and returns it if it had not expired.
func (r *OAuthStateRepository) Consume(ctx context.Context, state string) (*entity.OAuthState, error) {
	query := `
		DELETE FROM oauth_states
		WHERE state = $1
		RETURNING id, state, user_id, expires_at, created_at, updated_at
	`
	var oauthState entity.OAuthState
	err := r.DB.GetContext(ctx, &oauthState, query, state)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("OAuthStateRepository:Consume:Error", "error", err)
		return nil, err
	}
	if time.Now().After(oauthState.ExpiresAt) {
		return nil, nil
	}
	return &oauthState, nil
}

func (r *OAuthStateRepository) CleanupExpired(ctx context.Context) error {
	if err := r.DB.ExecContext(ctx, `DELETE FROM oauth_states WHERE expires_at < NOW()`); err != nil {
		logger.Error("OAuthStateRepository:CleanupExpired:Error", "error", err)
		return err
	}
	return nil
}
