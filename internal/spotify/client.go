// Package spotify fetches users' top artists and tracks from the Spotify Web
// API and normalizes them into compatibility profiles.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"
	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/yogendrarau/Matchify/internal/compat"
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// BaseURL overrides the Web API endpoint, mainly for tests.
	BaseURL string

	// Attempts and Delay tune retries of failed calls. Zero values mean 3
	// attempts and a 500ms initial delay.
	Attempts uint
	Delay    time.Duration
}

type Client struct {
	auth     *spotifyauth.Authenticator
	baseURL  string
	attempts uint
	delay    time.Duration
	log      zerolog.Logger
}

type Option func(*Client)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		auth: spotifyauth.New(
			spotifyauth.WithClientID(cfg.ClientID),
			spotifyauth.WithClientSecret(cfg.ClientSecret),
			spotifyauth.WithRedirectURL(cfg.RedirectURL),
			spotifyauth.WithScopes(spotifyauth.ScopeUserTopRead),
		),
		baseURL:  cfg.BaseURL,
		attempts: cfg.Attempts,
		delay:    cfg.Delay,
		log:      zerolog.Nop(),
	}
	if c.attempts == 0 {
		c.attempts = 3
	}
	if c.delay == 0 {
		c.delay = 500 * time.Millisecond
	}
	if c.baseURL != "" && !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthURL is the page a user visits to grant access to their top items.
func (c *Client) AuthURL(state string) string {
	return c.auth.AuthURL(state)
}

// Exchange trades an authorization code for a token.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := c.auth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return token, nil
}

func (c *Client) api(ctx context.Context, token *oauth2.Token) *spotifyapi.Client {
	var httpClient *http.Client
	if token.RefreshToken == "" {
		// Nothing to refresh with; send the access token as is.
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	} else {
		httpClient = c.auth.Client(ctx, token)
	}

	opts := []spotifyapi.ClientOption{spotifyapi.WithRetry(false)}
	if c.baseURL != "" {
		opts = append(opts, spotifyapi.WithBaseURL(c.baseURL))
	}
	return spotifyapi.New(httpClient, opts...)
}

// Profile fetches the user's top 50 artists and top 50 tracks.
func (c *Client) Profile(ctx context.Context, token *oauth2.Token, tr compat.TimeRange) (compat.UserMusicProfile, error) {
	api := c.api(ctx, token)

	artists, err := c.topArtists(ctx, api, tr)
	if err != nil {
		return compat.UserMusicProfile{}, err
	}
	tracks, err := c.topTracks(ctx, api, tr)
	if err != nil {
		return compat.UserMusicProfile{}, err
	}
	return ProfileFromPages(artists, tracks, tr), nil
}

// TopArtists fetches only the user's top artists.
func (c *Client) TopArtists(ctx context.Context, token *oauth2.Token, tr compat.TimeRange) ([]compat.RankedItem, error) {
	artists, err := c.topArtists(ctx, c.api(ctx, token), tr)
	if err != nil {
		return nil, err
	}
	return NormalizeArtists(artists), nil
}

func (c *Client) topArtists(ctx context.Context, api *spotifyapi.Client, tr compat.TimeRange) ([]spotifyapi.FullArtist, error) {
	var page *spotifyapi.FullArtistPage
	err := c.do(ctx, "top artists", func() error {
		var err error
		page, err = api.CurrentUsersTopArtists(ctx,
			spotifyapi.Timerange(spotifyapi.Range(tr)),
			spotifyapi.Limit(compat.MaxListSize))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching top artists: %w", err)
	}
	return page.Artists, nil
}

func (c *Client) topTracks(ctx context.Context, api *spotifyapi.Client, tr compat.TimeRange) ([]spotifyapi.FullTrack, error) {
	var page *spotifyapi.FullTrackPage
	err := c.do(ctx, "top tracks", func() error {
		var err error
		page, err = api.CurrentUsersTopTracks(ctx,
			spotifyapi.Timerange(spotifyapi.Range(tr)),
			spotifyapi.Limit(compat.MaxListSize))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching top tracks: %w", err)
	}
	return page.Tracks, nil
}

func (c *Client) do(ctx context.Context, what string, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn().Err(err).Uint("attempt", n+1).Str("call", what).Msg("spotify errored, retrying")
		}),
	)
}

// retryable reports whether the API failed in a way worth retrying: server
// errors and rate limiting.
func retryable(err error) bool {
	var apiErr spotifyapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status/100 == 5 || apiErr.Status == http.StatusTooManyRequests
	}
	return false
}
