package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"orgsync-api/core/cache"
	"orgsync-api/core/crypto"
	"orgsync-api/modules/calendar/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestCipher(t *testing.T, fill byte) *crypto.TokenCipher {
	t.Helper()
	c, err := crypto.NewTokenCipher(bytes.Repeat([]byte{fill}, crypto.KeySize))
	require.NoError(t, err)
	return c
}

func seedConnection(t *testing.T, repo *fakeConnections, c *crypto.TokenCipher, userID uuid.UUID, access, refresh string, expiresAt time.Time) {
	t.Helper()
	encAccess, err := c.Encrypt(access)
	require.NoError(t, err)
	encRefresh, err := c.Encrypt(refresh)
	require.NoError(t, err)
	repo.put(entity.CalendarConnection{
		UserID:           userID,
		Provider:         entity.ProviderGoogle,
		AccessToken:      encAccess,
		RefreshToken:     encRefresh,
		TokenExpiresAt:   expiresAt,
		Status:           entity.StatusConnected,
		TargetCalendarID: "primary",
	})
}

func TestCredentialStore_ReturnsFreshTokenWithoutRefresh(t *testing.T) {
	repo := newFakeConnections()
	c := newTestCipher(t, 1)
	refresher := &fakeRefresher{fn: func(string) (*oauth2.Token, error) { return nil, errors.New("unexpected") }}
	store := NewCredentialStore(repo, c, refresher, cache.NewKeyedMutex())

	userID := uuid.New()
	seedConnection(t, repo, c, userID, "access-1", "refresh-1", time.Now().Add(time.Hour))

	token := store.GetValidToken(context.Background(), userID)
	require.NotNil(t, token)
	assert.Equal(t, "access-1", token.AccessToken)
	assert.Equal(t, "primary", token.CalendarID)
	assert.Zero(t, refresher.callCount())
}

func TestCredentialStore_RefreshesInsideBuffer(t *testing.T) {
	repo := newFakeConnections()
	c := newTestCipher(t, 1)
	newExpiry := time.Now().Add(time.Hour).Truncate(time.Second)
	refresher := &fakeRefresher{fn: func(refresh string) (*oauth2.Token, error) {
		assert.Equal(t, "refresh-1", refresh)
		return &oauth2.Token{AccessToken: "access-2", RefreshToken: "refresh-2", Expiry: newExpiry}, nil
	}}
	store := NewCredentialStore(repo, c, refresher, cache.NewKeyedMutex())

	userID := uuid.New()
	oldExpiry := time.Now().Add(2 * time.Minute)
	seedConnection(t, repo, c, userID, "access-1", "refresh-1", oldExpiry)

	token := store.GetValidToken(context.Background(), userID)
	require.NotNil(t, token)
	assert.Equal(t, "access-2", token.AccessToken)
	assert.True(t, token.ExpiresAt.After(oldExpiry))

	stored := repo.get(userID)
	assert.Equal(t, entity.StatusConnected, stored.Status)
	assert.True(t, stored.TokenExpiresAt.After(oldExpiry))
	access, err := c.Decrypt(stored.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "access-2", access)
	refresh, err := c.Decrypt(stored.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", refresh)
}

func TestCredentialStore_RefreshKeepsRefreshTokenAndDefaultsExpiry(t *testing.T) {
	repo := newFakeConnections()
	c := newTestCipher(t, 1)
	refresher := &fakeRefresher{fn: func(string) (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "access-2"}, nil
	}}
	store := NewCredentialStore(repo, c, refresher, cache.NewKeyedMutex())

	userID := uuid.New()
	seedConnection(t, repo, c, userID, "access-1", "refresh-1", time.Now().Add(-time.Hour))
	before := repo.get(userID)

	token := store.GetValidToken(context.Background(), userID)
	require.NotNil(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, 5*time.Second)

	after := repo.get(userID)
	assert.Equal(t, before.RefreshToken, after.RefreshToken)
}

func TestCredentialStore_ExpiryAlwaysAdvances(t *testing.T) {
	repo := newFakeConnections()
	c := newTestCipher(t, 1)
	oldExpiry := time.Now().Add(time.Minute)
	refresher := &fakeRefresher{fn: func(string) (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "access-2", Expiry: oldExpiry.Add(-time.Hour)}, nil
	}}
	store := NewCredentialStore(repo, c, refresher, cache.NewKeyedMutex())

	userID := uuid.New()
	seedConnection(t, repo, c, userID, "access-1", "refresh-1", oldExpiry)

	token := store.GetValidToken(context.Background(), userID)
	require.NotNil(t, token)
	assert.True(t, token.ExpiresAt.After(oldExpiry))
}

func TestCredentialStore_RefreshFailureDisconnects(t *testing.T) {
	repo := newFakeConnections()
	c := newTestCipher(t, 1)
	refresher := &fakeRefresher{fn: func(string) (*oauth2.Token, error) {
		return nil, &oauth2.RetrieveError{ErrorCode: "invalid_grant"}
	}}
	store := NewCredentialStore(repo, c, refresher, cache.NewKeyedMutex())

	userID := uuid.New()
	seedConnection(t, repo, c, userID, "access-1", "refresh-1", time.Now().Add(-time.Minute))

	assert.Nil(t, store.GetValidToken(context.Background(), userID))
	assert.Equal(t, entity.StatusDisconnected, repo.get(userID).Status)

	// Disconnected users are not refreshed again.
	assert.Nil(t, store.GetValidToken(context.Background(), userID))
	assert.Equal(t, 1, refresher.callCount())
}

func TestCredentialStore_MissingOrInactiveConnection(t *testing.T) {
	repo := newFakeConnections()
	c := newTestCipher(t, 1)
	store := NewCredentialStore(repo, c, &fakeRefresher{}, cache.NewKeyedMutex())

	assert.Nil(t, store.GetValidToken(context.Background(), uuid.New()))

	userID := uuid.New()
	seedConnection(t, repo, c, userID, "a", "r", time.Now().Add(time.Hour))
	require.NoError(t, repo.UpdateStatus(context.Background(), userID, entity.StatusError))
	assert.Nil(t, store.GetValidToken(context.Background(), userID))
}

func TestCredentialStore_DecryptFailureYieldsNil(t *testing.T) {
	repo := newFakeConnections()
	userID := uuid.New()
	seedConnection(t, repo, newTestCipher(t, 1), userID, "access-1", "refresh-1", time.Now().Add(time.Hour))

	store := NewCredentialStore(repo, newTestCipher(t, 2), &fakeRefresher{}, cache.NewKeyedMutex())

	assert.NotPanics(t, func() {
		assert.Nil(t, store.GetValidToken(context.Background(), userID))
	})
}

func TestCredentialStore_ConcurrentRefreshRunsOnce(t *testing.T) {
	repo := newFakeConnections()
	c := newTestCipher(t, 1)
	refresher := &fakeRefresher{
		delay: 20 * time.Millisecond,
		fn: func(string) (*oauth2.Token, error) {
			return &oauth2.Token{AccessToken: "access-2", Expiry: time.Now().Add(time.Hour)}, nil
		},
	}
	store := NewCredentialStore(repo, c, refresher, cache.NewKeyedMutex())

	userID := uuid.New()
	seedConnection(t, repo, c, userID, "access-1", "refresh-1", time.Now().Add(-time.Minute))

	var wg sync.WaitGroup
	tokens := make([]*UserToken, 8)
	for i := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens[i] = store.GetValidToken(context.Background(), userID)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, refresher.callCount())
	for _, tok := range tokens {
		require.NotNil(t, tok)
		assert.Equal(t, "access-2", tok.AccessToken)
	}
}

func TestCredentialStore_SaveConnectionKeepsExistingRefreshToken(t *testing.T) {
	repo := newFakeConnections()
	c := newTestCipher(t, 1)
	store := NewCredentialStore(repo, c, &fakeRefresher{}, cache.NewKeyedMutex())
	userID := uuid.New()

	_, err := store.SaveConnection(context.Background(), userID, &oauth2.Token{AccessToken: "a"}, "x@example.com")
	require.Error(t, err)

	first, err := store.SaveConnection(context.Background(), userID, &oauth2.Token{
		AccessToken:  "a1",
		RefreshToken: "r1",
		Expiry:       time.Now().Add(time.Hour),
	}, "x@example.com")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusConnected, first.Status)
	assert.NotEqual(t, "a1", first.AccessToken)

	second, err := store.SaveConnection(context.Background(), userID, &oauth2.Token{AccessToken: "a2"}, "x@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, first.ID, second.ID)

	access, err := c.Decrypt(second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a2", access)
}
