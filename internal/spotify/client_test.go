package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	spotifyapi "github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/yogendrarau/Matchify/internal/compat"
)

const artistsBody = `{
  "items": [
    {"id": "a1", "name": "Radiohead", "genres": ["alternative rock", "art rock"], "popularity": 80},
    {"name": "Unlisted", "popularity": 2},
    {"id": "a3", "name": "Bjork", "genres": ["art pop"], "popularity": 70}
  ],
  "total": 3, "limit": 50, "offset": 0
}`

const tracksBody = `{
  "items": [
    {"id": "t1", "name": "Reckoner", "popularity": 75, "artists": [{"id": "a1", "name": "Radiohead"}]},
    {"id": "t2", "name": "Hyperballad", "popularity": 60, "artists": [{"id": "a3", "name": "Bjork"}, {"name": "Guest"}]}
  ],
  "total": 2, "limit": 50, "offset": 0
}`

type fakeAPI struct {
	artistStatus []int
	trackStatus  []int
	artistCalls  atomic.Int32
	trackCalls   atomic.Int32
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/me/top/artists", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "short_term", r.URL.Query().Get("time_range"))
		n := int(f.artistCalls.Add(1))
		respond(w, f.artistStatus, n, artistsBody)
	})
	mux.HandleFunc("/me/top/tracks", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "short_term", r.URL.Query().Get("time_range"))
		n := int(f.trackCalls.Add(1))
		respond(w, f.trackStatus, n, tracksBody)
	})
	return mux
}

// respond fails with the n-th configured status, then succeeds.
func respond(w http.ResponseWriter, statuses []int, n int, body string) {
	w.Header().Set("Content-Type", "application/json")
	if n <= len(statuses) {
		status := statuses[n-1]
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error": {"status": %d, "message": "failure %d"}}`, status, n)
		return
	}
	fmt.Fprint(w, body)
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	return New(Config{
		ClientID: "id",
		BaseURL:  srv.URL,
		Attempts: 3,
		Delay:    time.Millisecond,
	})
}

var token = &oauth2.Token{AccessToken: "token", TokenType: "Bearer"}

func TestProfile(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	p, err := c.Profile(context.Background(), token, compat.ShortTerm)
	require.NoError(t, err)

	assert.Equal(t, compat.ShortTerm, p.TimeRange)
	assert.Equal(t, []compat.RankedItem{
		{ID: "a1", Name: "Radiohead", Rank: 1, Genres: []string{"alternative rock", "art rock"}, Popularity: 80},
		{ID: "", Name: "Unlisted", Rank: 2, Genres: []string{}, Popularity: 2},
		{ID: "a3", Name: "Bjork", Rank: 3, Genres: []string{"art pop"}, Popularity: 70},
	}, p.Artists)
	assert.Equal(t, []compat.RankedItem{
		{ID: "t1", Name: "Reckoner", Rank: 1, Artists: []string{"Radiohead"}, Popularity: 75},
		{ID: "t2", Name: "Hyperballad", Rank: 2, Artists: []string{"Bjork", "Guest"}, Popularity: 60},
	}, p.Tracks)
}

func TestTopArtistsOnly(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	artists, err := c.TopArtists(context.Background(), token, compat.ShortTerm)
	require.NoError(t, err)
	assert.Len(t, artists, 3)
	assert.Equal(t, int32(0), api.trackCalls.Load())
}

func TestRetriesServerErrors(t *testing.T) {
	api := &fakeAPI{
		artistStatus: []int{http.StatusBadGateway, http.StatusTooManyRequests},
	}
	c := newTestClient(t, api)

	_, err := c.Profile(context.Background(), token, compat.ShortTerm)
	require.NoError(t, err)
	assert.Equal(t, int32(3), api.artistCalls.Load())
	assert.Equal(t, int32(1), api.trackCalls.Load())
}

func TestGivesUpAfterAttempts(t *testing.T) {
	api := &fakeAPI{
		trackStatus: []int{500, 500, 500, 500},
	}
	c := newTestClient(t, api)

	_, err := c.Profile(context.Background(), token, compat.ShortTerm)
	require.Error(t, err)
	assert.Equal(t, int32(3), api.trackCalls.Load())

	var apiErr spotifyapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.Status)
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	api := &fakeAPI{
		artistStatus: []int{http.StatusUnauthorized},
	}
	c := newTestClient(t, api)

	_, err := c.Profile(context.Background(), token, compat.ShortTerm)
	require.Error(t, err)
	assert.Equal(t, int32(1), api.artistCalls.Load())
	assert.Equal(t, int32(0), api.trackCalls.Load())
}

func TestNormalizeTruncates(t *testing.T) {
	artists := make([]spotifyapi.FullArtist, 60)
	tracks := make([]spotifyapi.FullTrack, 55)
	for i := range artists {
		artists[i].ID = spotifyapi.ID(fmt.Sprintf("a%d", i))
	}

	p := ProfileFromPages(artists, tracks, compat.LongTerm)
	assert.Len(t, p.Artists, compat.MaxListSize)
	assert.Len(t, p.Tracks, compat.MaxListSize)
	assert.Equal(t, compat.MaxListSize, p.Artists[compat.MaxListSize-1].Rank)
	assert.Equal(t, "a49", p.Artists[compat.MaxListSize-1].ID)
	assert.NotNil(t, p.Artists[0].Genres)
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(spotifyapi.Error{Status: 503}))
	assert.True(t, retryable(fmt.Errorf("wrapped: %w", spotifyapi.Error{Status: 429})))
	assert.False(t, retryable(spotifyapi.Error{Status: 404}))
	assert.False(t, retryable(context.Canceled))
}

func TestAuthURL(t *testing.T) {
	c := New(Config{ClientID: "client", RedirectURL: "http://localhost:8080/callback"})
	u := c.AuthURL("state123")
	assert.Contains(t, u, "client_id=client")
	assert.Contains(t, u, "state=state123")
	assert.Contains(t, u, "user-top-read")
}
