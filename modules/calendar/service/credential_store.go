package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orgsync-api/core/cache"
	"orgsync-api/core/constants"
	"orgsync-api/core/crypto"
	"orgsync-api/core/logger"
	"orgsync-api/modules/calendar/entity"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// ConnectionStore persists calendar connections.
type ConnectionStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.CalendarConnection, error)
	Upsert(ctx context.Context, conn *entity.CalendarConnection) (*entity.CalendarConnection, error)
	UpdateTokens(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string, expiresAt time.Time) error
	UpdateStatus(ctx context.Context, userID uuid.UUID, status entity.ConnectionStatus) error
	TouchLastSync(ctx context.Context, userID uuid.UUID, at time.Time) error
	ListConnectedUserIDs(ctx context.Context) ([]uuid.UUID, error)
	DeleteWithEntries(ctx context.Context, userID uuid.UUID) error
}

// UserToken is a decrypted access token that is valid for at least the
// refresh buffer.
type UserToken struct {
	UserID      uuid.UUID
	AccessToken string
	ExpiresAt   time.Time
	CalendarID  string
}

// CredentialStore owns the encrypted token pair of every connected user.
type CredentialStore struct {
	repo      ConnectionStore
	cipher    *crypto.TokenCipher
	refresher TokenRefresher
	locker    cache.Locker
	now       func() time.Time

	defaultCalendarID string
}

func NewCredentialStore(repo ConnectionStore, cipher *crypto.TokenCipher, refresher TokenRefresher, locker cache.Locker) *CredentialStore {
	return &CredentialStore{
		repo:      repo,
		cipher:    cipher,
		refresher: refresher,
		locker:    locker,
		now:       time.Now,

		defaultCalendarID: constants.DefaultCalendarID,
	}
}

// SetDefaultCalendar sets the target calendar given to new connections.
func (s *CredentialStore) SetDefaultCalendar(calendarID string) {
	if calendarID != "" {
		s.defaultCalendarID = calendarID
	}
}

// GetValidToken returns a usable access token for the user, refreshing it
// when it expires within the refresh buffer. It returns nil when the user
// has no connected calendar or the token cannot be obtained.
func (s *CredentialStore) GetValidToken(ctx context.Context, userID uuid.UUID) *UserToken {
	conn, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		logger.Error("CredentialStore:GetValidToken:Load:Error", "error", err, "user_id", userID)
		return nil
	}
	if conn == nil || conn.Status != entity.StatusConnected {
		return nil
	}
	if s.isFresh(conn) {
		return s.decryptAccess(conn)
	}

	unlock, err := s.locker.Lock(ctx, userID.String())
	if err != nil {
		logger.Error("CredentialStore:GetValidToken:Lock:Error", "error", err, "user_id", userID)
		return nil
	}
	defer unlock()

	// Another caller may have refreshed while we waited for the lock.
	conn, err = s.repo.GetByUserID(ctx, userID)
	if err != nil {
		logger.Error("CredentialStore:GetValidToken:Reload:Error", "error", err, "user_id", userID)
		return nil
	}
	if conn == nil || conn.Status != entity.StatusConnected {
		return nil
	}
	if s.isFresh(conn) {
		return s.decryptAccess(conn)
	}
	return s.refresh(ctx, conn)
}

func (s *CredentialStore) isFresh(conn *entity.CalendarConnection) bool {
	return s.now().Add(constants.TokenRefreshBuffer).Before(conn.TokenExpiresAt)
}

func (s *CredentialStore) decryptAccess(conn *entity.CalendarConnection) *UserToken {
	access, err := s.cipher.Decrypt(conn.AccessToken)
	if err != nil {
		logger.Error("CredentialStore:DecryptAccess:Error", "error", err, "user_id", conn.UserID)
		return nil
	}
	return s.userToken(conn, access, conn.TokenExpiresAt)
}

func (s *CredentialStore) refresh(ctx context.Context, conn *entity.CalendarConnection) *UserToken {
	logger.Info("CredentialStore:Refresh:Start", "user_id", conn.UserID)

	refreshToken, err := s.cipher.Decrypt(conn.RefreshToken)
	if err != nil {
		logger.Error("CredentialStore:Refresh:DecryptRefresh:Error", "error", err, "user_id", conn.UserID)
		s.setStatus(ctx, conn.UserID, entity.StatusError)
		return nil
	}

	token, err := s.refresher.Refresh(ctx, refreshToken)
	if err != nil || token == nil || token.AccessToken == "" {
		logger.Warn("CredentialStore:Refresh:Failed", "error", err, "user_id", conn.UserID)
		s.setStatus(ctx, conn.UserID, entity.StatusDisconnected)
		return nil
	}

	expiresAt := s.nextExpiry(token, conn.TokenExpiresAt)

	encryptedAccess, err := s.cipher.Encrypt(token.AccessToken)
	if err != nil {
		logger.Error("CredentialStore:Refresh:EncryptAccess:Error", "error", err, "user_id", conn.UserID)
		return nil
	}
	encryptedRefresh := conn.RefreshToken
	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		if encryptedRefresh, err = s.cipher.Encrypt(token.RefreshToken); err != nil {
			logger.Error("CredentialStore:Refresh:EncryptRefresh:Error", "error", err, "user_id", conn.UserID)
			return nil
		}
	}

	if err := s.repo.UpdateTokens(ctx, conn.UserID, encryptedAccess, encryptedRefresh, expiresAt); err != nil {
		// The token is still good for this call; the next caller refreshes again.
		logger.Error("CredentialStore:Refresh:Persist:Error", "error", err, "user_id", conn.UserID)
	}

	logger.Info("CredentialStore:Refresh:Success", "user_id", conn.UserID, "expires_at", expiresAt)
	return s.userToken(conn, token.AccessToken, expiresAt)
}

// nextExpiry is always strictly later than previous.
func (s *CredentialStore) nextExpiry(token *oauth2.Token, previous time.Time) time.Time {
	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = s.now().Add(constants.DefaultTokenLifetime)
	}
	if !expiresAt.After(previous) {
		expiresAt = previous.Add(time.Second)
	}
	return expiresAt
}

func (s *CredentialStore) userToken(conn *entity.CalendarConnection, access string, expiresAt time.Time) *UserToken {
	calendarID := conn.TargetCalendarID
	if calendarID == "" {
		calendarID = s.defaultCalendarID
	}
	return &UserToken{
		UserID:      conn.UserID,
		AccessToken: access,
		ExpiresAt:   expiresAt,
		CalendarID:  calendarID,
	}
}

func (s *CredentialStore) setStatus(ctx context.Context, userID uuid.UUID, status entity.ConnectionStatus) {
	if err := s.repo.UpdateStatus(ctx, userID, status); err != nil {
		logger.Error("CredentialStore:SetStatus:Error", "error", err, "user_id", userID, "status", status)
	}
}

// SaveConnection stores the token pair produced by a completed handshake.
// An empty refresh token keeps the one already on file.
func (s *CredentialStore) SaveConnection(ctx context.Context, userID uuid.UUID, token *oauth2.Token, email string) (*entity.CalendarConnection, error) {
	if token == nil || token.AccessToken == "" {
		return nil, errors.New("access token is required")
	}

	encryptedAccess, err := s.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}

	var encryptedRefresh string
	if token.RefreshToken != "" {
		if encryptedRefresh, err = s.cipher.Encrypt(token.RefreshToken); err != nil {
			return nil, fmt.Errorf("encrypt refresh token: %w", err)
		}
	} else {
		existing, err := s.repo.GetByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if existing == nil || existing.RefreshToken == "" {
			return nil, errors.New("provider returned no refresh token")
		}
		encryptedRefresh = existing.RefreshToken
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = s.now().Add(constants.DefaultTokenLifetime)
	}

	return s.repo.Upsert(ctx, &entity.CalendarConnection{
		UserID:           userID,
		Provider:         entity.ProviderGoogle,
		AccessToken:      encryptedAccess,
		RefreshToken:     encryptedRefresh,
		TokenExpiresAt:   expiresAt,
		CalendarEmail:    email,
		Status:           entity.StatusConnected,
		TargetCalendarID: s.defaultCalendarID,
	})
}

func (s *CredentialStore) GetConnection(ctx context.Context, userID uuid.UUID) (*entity.CalendarConnection, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// Disconnect removes the connection and the user's ledger entries.
func (s *CredentialStore) Disconnect(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteWithEntries(ctx, userID)
}

// MarkSynced stamps last_sync_at after successful remote work.
func (s *CredentialStore) MarkSynced(ctx context.Context, userID uuid.UUID) {
	if err := s.repo.TouchLastSync(ctx, userID, s.now()); err != nil {
		logger.Warn("CredentialStore:MarkSynced:Error", "error", err, "user_id", userID)
	}
}

func (s *CredentialStore) ConnectedUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.ListConnectedUserIDs(ctx)
}
