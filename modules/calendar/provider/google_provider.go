// Package provider talks to the remote Google Calendar.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"orgsync-api/core/constants"
	"orgsync-api/core/logger"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// ErrRemoteNotFound means the remote event no longer exists.
var ErrRemoteNotFound = errors.New("remote event not found")

// CalendarProvider is the remote calendar the reconciler writes to.
type CalendarProvider interface {
	Insert(ctx context.Context, accessToken, calendarID string, event *calendar.Event) (string, error)
	Update(ctx context.Context, accessToken, calendarID, remoteID string, event *calendar.Event) error
	Delete(ctx context.Context, accessToken, calendarID, remoteID string) error
}

// GoogleProvider calls Google Calendar v3. Every call is bounded by timeout.
type GoogleProvider struct {
	timeout   time.Duration
	transport http.RoundTripper
	opts      []option.ClientOption
}

// NewGoogleProvider builds a provider. opts are passed to every API service,
// which lets callers point it at another endpoint.
func NewGoogleProvider(timeout time.Duration, opts ...option.ClientOption) *GoogleProvider {
	if timeout <= 0 {
		timeout = constants.DefaultRemoteTimeout
	}
	return &GoogleProvider{
		timeout:   timeout,
		transport: http.DefaultTransport,
		opts:      opts,
	}
}

func (p *GoogleProvider) Insert(ctx context.Context, accessToken, calendarID string, event *calendar.Event) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	srv, err := p.calendarService(ctx, &oauth2.Token{AccessToken: accessToken})
	if err != nil {
		return "", err
	}

	created, err := srv.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		logger.Warn("GoogleProvider:Insert:Error", "error", err, "calendar_id", calendarID)
		return "", classify(err)
	}
	return created.Id, nil
}

func (p *GoogleProvider) Update(ctx context.Context, accessToken, calendarID, remoteID string, event *calendar.Event) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	srv, err := p.calendarService(ctx, &oauth2.Token{AccessToken: accessToken})
	if err != nil {
		return err
	}

	if _, err := srv.Events.Update(calendarID, remoteID, event).Context(ctx).Do(); err != nil {
		logger.Warn("GoogleProvider:Update:Error", "error", err, "calendar_id", calendarID, "remote_id", remoteID)
		return classify(err)
	}
	return nil
}

func (p *GoogleProvider) Delete(ctx context.Context, accessToken, calendarID, remoteID string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	srv, err := p.calendarService(ctx, &oauth2.Token{AccessToken: accessToken})
	if err != nil {
		return err
	}

	if err := srv.Events.Delete(calendarID, remoteID).Context(ctx).Do(); err != nil {
		logger.Warn("GoogleProvider:Delete:Error", "error", err, "calendar_id", calendarID, "remote_id", remoteID)
		return classify(err)
	}
	return nil
}

// FetchAccountEmail returns the email of the Google account that owns token.
func (p *GoogleProvider) FetchAccountEmail(ctx context.Context, token *oauth2.Token) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	opts := append([]option.ClientOption{option.WithHTTPClient(p.authorizedClient(token))}, p.opts...)
	srv, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("create userinfo service: %w", err)
	}

	info, err := srv.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		logger.Error("GoogleProvider:FetchAccountEmail:Error", "error", err)
		return "", err
	}
	return info.Email, nil
}

func (p *GoogleProvider) calendarService(ctx context.Context, token *oauth2.Token) (*calendar.Service, error) {
	opts := append([]option.ClientOption{option.WithHTTPClient(p.authorizedClient(token))}, p.opts...)
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return srv, nil
}

func (p *GoogleProvider) authorizedClient(token *oauth2.Token) *http.Client {
	return &http.Client{
		Timeout: p.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(token),
			Base:   p.transport,
		},
	}
}

func classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
		return fmt.Errorf("%w: %s", ErrRemoteNotFound, gerr.Error())
	}
	return err
}
