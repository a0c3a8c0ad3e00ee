// Package spotify provides a typed wrapper around the Spotify Web API.
//
// Operations run in one of two credential modes: owner calls exchange the
// durable refresh token attached to a session for a short-lived access
// token, while public calls use an application token obtained with the
// client-credentials grant. Tokens are fetched per call; the calls are
// infrequent enough that caching across calls buys nothing.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/jukedrop/jukedrop/internal/apperr"
)

const (
	// Outbound throttle shared by all API calls.
	requestsPerSecond = 8
	requestBurst      = 4

	callTimeout = 10 * time.Second
	retryDelay  = time.Second
)

// Config holds the Spotify application credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Client wraps the Spotify Web API for both owner and app credential modes.
type Client struct {
	auth    *spotifyauth.Authenticator
	app     *clientcredentials.Config
	limiter *rate.Limiter
	log     *zap.SugaredLogger
	timeout time.Duration

	// baseURL overrides the API endpoint in tests.
	baseURL string
}

// New creates a Client from application credentials.
func New(cfg Config, log *zap.SugaredLogger) *Client {
	return &Client{
		auth: spotifyauth.New(
			spotifyauth.WithClientID(cfg.ClientID),
			spotifyauth.WithClientSecret(cfg.ClientSecret),
			spotifyauth.WithRedirectURL(cfg.RedirectURL),
			spotifyauth.WithScopes(
				spotifyauth.ScopePlaylistModifyPublic,
				spotifyauth.ScopePlaylistModifyPrivate,
				spotifyauth.ScopeUserReadPlaybackState,
				spotifyauth.ScopeUserModifyPlaybackState,
			),
		),
		app: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     spotifyauth.TokenURL,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		log:     log,
		timeout: callTimeout,
	}
}

// Auth exposes the authenticator for the OAuth login flow.
func (c *Client) Auth() *spotifyauth.Authenticator {
	return c.auth
}

// ownerAPI builds an API client that authenticates with the owner's refresh
// token. The access token exchange happens lazily on first use.
func (c *Client) ownerAPI(ctx context.Context, refreshToken string) *spotify.Client {
	token := &oauth2.Token{RefreshToken: refreshToken}
	return spotify.New(c.auth.Client(ctx, token), c.apiOptions()...)
}

// appAPI builds an API client that authenticates with a fresh
// client-credentials token.
func (c *Client) appAPI(ctx context.Context) (*spotify.Client, error) {
	token, err := c.app.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching app token: %w", apperr.ErrServiceAuthFailure)
	}
	return spotify.New(c.auth.Client(ctx, token), c.apiOptions()...), nil
}

func (c *Client) apiOptions() []spotify.ClientOption {
	if c.baseURL != "" {
		return []spotify.ClientOption{spotify.WithBaseURL(c.baseURL)}
	}
	return nil
}

// do runs a single API call under the shared rate limiter with a bounded
// timeout, retrying once after a short delay on transient failure.
func (c *Client) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	err := fn(callCtx)
	cancel()
	if err == nil || !retryable(err) {
		return classify(op, err)
	}

	c.log.Warnw("retrying spotify call", "op", op, "error", err)
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	case <-time.After(retryDelay):
	}

	callCtx, cancel = context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return classify(op, fn(callCtx))
}

// retryable reports whether a failure is worth a single retry: server-side
// errors and transport timeouts, never auth or shape failures.
func retryable(err error) bool {
	var serr spotify.Error
	if errors.As(err, &serr) {
		return serr.Status >= http.StatusInternalServerError
	}
	var terr interface{ Timeout() bool }
	if errors.As(err, &terr) {
		return terr.Timeout()
	}
	return false
}

// classify maps raw client errors onto the application taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%s: %w", op, apperr.ErrServiceAuthFailure)
	}

	var serr spotify.Error
	if errors.As(err, &serr) {
		switch serr.Status {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w", op, apperr.ErrServiceAuthFailure)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var synErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &synErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%s: %v: %w", op, err, apperr.ErrRemoteDataInvalid)
	}

	return fmt.Errorf("%s: %w", op, err)
}

// MyProfile fetches the profile of the owner identified by refreshToken.
func (c *Client) MyProfile(ctx context.Context, refreshToken string) (*Profile, error) {
	api := c.ownerAPI(ctx, refreshToken)

	var profile *Profile
	err := c.do(ctx, "fetching my profile", func(ctx context.Context) error {
		user, err := api.CurrentUser(ctx)
		if err != nil {
			return err
		}
		profile = convertProfile(user.User)
		return nil
	})
	return profile, err
}

// PublicProfile fetches a user's public profile with the app credential.
func (c *Client) PublicProfile(ctx context.Context, spotifyUserID string) (*Profile, error) {
	api, err := c.appAPI(ctx)
	if err != nil {
		return nil, err
	}

	var profile *Profile
	err = c.do(ctx, "fetching public profile", func(ctx context.Context) error {
		user, err := api.GetUsersPublicProfile(ctx, spotify.ID(spotifyUserID))
		if err != nil {
			return err
		}
		profile = convertProfile(*user)
		return nil
	})
	return profile, err
}
