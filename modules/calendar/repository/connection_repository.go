package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"orgsync-api/core/database"
	"orgsync-api/core/logger"
	"orgsync-api/modules/calendar/entity"

	"github.com/google/uuid"
)

type ConnectionRepository struct {
	DB database.IDatabase
}

func NewConnectionRepository(db database.IDatabase) *ConnectionRepository {
	return &ConnectionRepository{DB: db}
}

const connectionColumns = `
	id, user_id, provider, access_token, refresh_token, token_expires_at,
	calendar_email, status, target_calendar_id, last_sync_at, created_at, updated_at`

func (r *ConnectionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.CalendarConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM calendar_connections WHERE user_id = $1`

	var conn entity.CalendarConnection
	err := r.DB.GetContext(ctx, &conn, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("ConnectionRepository:GetByUserID:Error", "error", err, "user_id", userID)
		return nil, err
	}
	return &conn, nil
}

// Upsert stores the connection created by a completed handshake. A user
// reconnecting replaces the previous token pair and returns to connected.
func (r *ConnectionRepository) Upsert(ctx context.Context, conn *entity.CalendarConnection) (*entity.CalendarConnection, error) {
	query := `
		INSERT INTO calendar_connections (
			user_id, provider, access_token, refresh_token, token_expires_at,
			calendar_email, status, target_calendar_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			provider = EXCLUDED.provider,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			calendar_email = EXCLUDED.calendar_email,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING ` + connectionColumns

	var saved entity.CalendarConnection
	err := r.DB.GetContext(ctx, &saved, query,
		conn.UserID, conn.Provider, conn.AccessToken, conn.RefreshToken, conn.TokenExpiresAt,
		conn.CalendarEmail, conn.Status, conn.TargetCalendarID,
	)
	if err != nil {
		logger.Error("ConnectionRepository:Upsert:Error", "error", err, "user_id", conn.UserID)
		return nil, err
	}
	return &saved, nil
}

// UpdateTokens persists a refreshed token pair and marks the connection connected.
func (r *ConnectionRepository) UpdateTokens(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE calendar_connections
		SET access_token = $2, refresh_token = $3, token_expires_at = $4,
			status = 'connected', updated_at = NOW()
		WHERE user_id = $1
	`
	if err := r.DB.ExecContext(ctx, query, userID, accessToken, refreshToken, expiresAt); err != nil {
		logger.Error("ConnectionRepository:UpdateTokens:Error", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (r *ConnectionRepository) UpdateStatus(ctx context.Context, userID uuid.UUID, status entity.ConnectionStatus) error {
	query := `UPDATE calendar_connections SET status = $2, updated_at = NOW() WHERE user_id = $1`
	if err := r.DB.ExecContext(ctx, query, userID, status); err != nil {
		logger.Error("ConnectionRepository:UpdateStatus:Error", "error", err, "user_id", userID, "status", status)
		return err
	}
	return nil
}

func (r *ConnectionRepository) TouchLastSync(ctx context.Context, userID uuid.UUID, at time.Time) error {
	query := `UPDATE calendar_connections SET last_sync_at = $2 WHERE user_id = $1`
	if err := r.DB.ExecContext(ctx, query, userID, at); err != nil {
		logger.Error("ConnectionRepository:TouchLastSync:Error", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (r *ConnectionRepository) ListConnectedUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT user_id FROM calendar_connections WHERE status = 'connected'`

	var userIDs []uuid.UUID
	if err := r.DB.SelectContext(ctx, &userIDs, query); err != nil {
		logger.Error("ConnectionRepository:ListConnectedUserIDs:Error", "error", err)
		return nil, err
	}
	return userIDs, nil
}

// DeleteWithEntries removes the connection and every ledger entry of the
// user in one transaction.
func (r *ConnectionRepository) DeleteWithEntries(ctx context.Context, userID uuid.UUID) error {
	tx, err := r.DB.BeginTxx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM event_calendar_entries WHERE user_id = $1`, userID); err != nil {
		logger.Error("ConnectionRepository:DeleteWithEntries:Entries:Error", "error", err, "user_id", userID)
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM calendar_connections WHERE user_id = $1`, userID); err != nil {
		logger.Error("ConnectionRepository:DeleteWithEntries:Connection:Error", "error", err, "user_id", userID)
		return err
	}
	return tx.Commit()
}
