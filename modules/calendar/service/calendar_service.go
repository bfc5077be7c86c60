package service

import (
	"context"
	"time"

	"orgsync-api/core/constants"
	coreEntity "orgsync-api/core/entity"
	"orgsync-api/core/errors"
	"orgsync-api/core/logger"
	"orgsync-api/core/params"
	"orgsync-api/core/utils"
	"orgsync-api/modules/calendar/dto"
	"orgsync-api/modules/calendar/entity"
	"orgsync-api/modules/calendar/mapper"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

type StateStore interface {
	Save(ctx context.Context, state string, userID uuid.UUID, expiresAt time.Time) error
	Consume(ctx context.Context, state string) (*entity.OAuthState, error)
}

// CodeExchanger is satisfied by *oauth2.Config.
type CodeExchanger interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

type AccountEmailFetcher interface {
	FetchAccountEmail(ctx context.Context, token *oauth2.Token) (string, error)
}

// CalendarService serves the user-facing connection endpoints.
type CalendarService struct {
	credentials *CredentialStore
	states      StateStore
	oauth       CodeExchanger
	emails      AccountEmailFetcher
	prefs       PreferenceStore
	entries     EntryStore
}

func NewCalendarService(
	credentials *CredentialStore,
	states StateStore,
	oauth CodeExchanger,
	emails AccountEmailFetcher,
	prefs PreferenceStore,
	entries EntryStore,
) *CalendarService {
	return &CalendarService{
		credentials: credentials,
		states:      states,
		oauth:       oauth,
		emails:      emails,
		prefs:       prefs,
		entries:     entries,
	}
}

// GetAuthURL starts the consent handshake for userID.
func (s *CalendarService) GetAuthURL(ctx context.Context, userID uuid.UUID) (*dto.AuthURLResponse, *errors.AppError) {
	state := utils.GenerateRandomString(constants.OAuthStateLength)
	if err := s.states.Save(ctx, state, userID, time.Now().Add(constants.OAuthStateTTL)); err != nil {
		logger.Error("CalendarService:GetAuthURL:SaveState:Error", "error", err, "user_id", userID)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to start calendar authorization", err)
	}

	url := s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	return &dto.AuthURLResponse{URL: url, State: state}, nil
}

// HandleCallback completes the handshake and stores the connection.
func (s *CalendarService) HandleCallback(ctx context.Context, code, state string) (*dto.ConnectionResponse, *errors.AppError) {
	if code == "" || state == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "code and state are required", nil)
	}

	oauthState, err := s.states.Consume(ctx, state)
	if err != nil {
		logger.Error("CalendarService:HandleCallback:ConsumeState:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to validate state", err)
	}
	if oauthState == nil {
		return nil, errors.NewAppError(errors.ErrOAuthStateInvalid, "invalid or expired state", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		logger.Error("CalendarService:HandleCallback:Exchange:Error", "error", err, "user_id", oauthState.UserID)
		return nil, errors.NewAppError(errors.ErrUnauthorized, "failed to exchange authorization code", err)
	}

	email, err := s.emails.FetchAccountEmail(ctx, token)
	if err != nil {
		logger.Error("CalendarService:HandleCallback:FetchEmail:Error", "error", err, "user_id", oauthState.UserID)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to read Google account", err)
	}

	conn, err := s.credentials.SaveConnection(ctx, oauthState.UserID, token, email)
	if err != nil {
		logger.Error("CalendarService:HandleCallback:SaveConnection:Error", "error", err, "user_id", oauthState.UserID)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to save calendar connection", err)
	}

	logger.Info("CalendarService:HandleCallback:Connected", "user_id", oauthState.UserID, "email", email)
	return mapper.ToConnectionResponse(conn), nil
}

func (s *CalendarService) GetConnection(ctx context.Context, userID uuid.UUID) (*dto.ConnectionResponse, *errors.AppError) {
	conn, err := s.credentials.GetConnection(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "failed to get calendar connection", err)
	}
	if conn == nil {
		return nil, errors.NewAppError(errors.ErrCalendarNotConnected, "calendar is not connected", nil)
	}
	return mapper.ToConnectionResponse(conn), nil
}

// Disconnect removes the connection and the user's ledger.
func (s *CalendarService) Disconnect(ctx context.Context, userID uuid.UUID) *errors.AppError {
	conn, err := s.credentials.GetConnection(ctx, userID)
	if err != nil {
		return errors.NewAppError(errors.ErrGetFailed, "failed to get calendar connection", err)
	}
	if conn == nil {
		return errors.NewAppError(errors.ErrCalendarNotConnected, "calendar is not connected", nil)
	}

	if err := s.credentials.Disconnect(ctx, userID); err != nil {
		logger.Error("CalendarService:Disconnect:Error", "error", err, "user_id", userID)
		return errors.NewAppError(errors.ErrDeleteFailed, "failed to disconnect calendar", err)
	}
	logger.Info("CalendarService:Disconnect:Success", "user_id", userID)
	return nil
}

// GetPreferences returns the stored preferences or the all-enabled default.
func (s *CalendarService) GetPreferences(ctx context.Context, userID, orgID uuid.UUID) (*dto.PreferenceResponse, *errors.AppError) {
	pref, err := s.prefs.Get(ctx, userID, orgID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "failed to get sync preferences", err)
	}
	if pref == nil {
		pref = entity.DefaultSyncPreference(userID, orgID)
	}
	return mapper.ToPreferenceResponse(pref), nil
}

func (s *CalendarService) UpdatePreferences(ctx context.Context, userID, orgID uuid.UUID, req *dto.UpdatePreferencesRequest) (*dto.PreferenceResponse, *errors.AppError) {
	pref, err := s.prefs.Get(ctx, userID, orgID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "failed to get sync preferences", err)
	}
	if pref == nil {
		pref = entity.DefaultSyncPreference(userID, orgID)
	}
	mapper.ApplyPreferenceUpdate(pref, req)

	saved, err := s.prefs.Upsert(ctx, pref)
	if err != nil {
		logger.Error("CalendarService:UpdatePreferences:Error", "error", err, "user_id", userID, "organization_id", orgID)
		return nil, errors.NewAppError(errors.ErrUpdateFailed, "failed to update sync preferences", err)
	}
	return mapper.ToPreferenceResponse(saved), nil
}

func (s *CalendarService) ListEntries(ctx context.Context, userID uuid.UUID, p params.QueryParams) (*coreEntity.Pagination[dto.SyncEntryResponse], *errors.AppError) {
	entries, total, err := s.entries.ListByUser(ctx, userID, p)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "failed to list sync entries", err)
	}
	return mapper.ToPaginatedSyncEntries(entries, total, p.PageNumber, p.PageSize), nil
}
