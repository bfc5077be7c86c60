package service

import (
	"context"
	"net/http"
	"time"

	"orgsync-api/core/config"
	"orgsync-api/core/constants"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// NewGoogleOAuthConfig builds the OAuth2 client used for the consent
// handshake and for refreshing access tokens.
func NewGoogleOAuthConfig(cfg config.GoogleAPIConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     google.Endpoint,
		Scopes:       []string{constants.GoogleScopeEmail, constants.GoogleScopeEvents},
	}
}

// TokenRefresher exchanges a refresh token for a new access token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// OAuthRefresher refreshes tokens against the provider's token endpoint.
// Every refresh is bounded by timeout, which stays below the refresh lock TTL
// so the per-user lock is still held when the call returns.
type OAuthRefresher struct {
	config  *oauth2.Config
	timeout time.Duration
}

func NewOAuthRefresher(config *oauth2.Config, timeout time.Duration) *OAuthRefresher {
	if timeout <= 0 {
		timeout = constants.DefaultRemoteTimeout
	}
	if timeout >= constants.RefreshLockTTL {
		timeout = constants.RefreshLockTTL / 2
	}
	return &OAuthRefresher{config: config, timeout: timeout}
}

func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: r.timeout})
	return r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
}
