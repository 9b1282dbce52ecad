package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/yogendrarau/Matchify/internal/compat"
)

// ErrNoToken is returned by Token when the user never authorized Spotify.
var ErrNoToken = errors.New("no spotify token")

func (s *Store) Token(user string) (*oauth2.Token, error) {
	row := s.db.QueryRow(
		"SELECT access_token, refresh_token, token_type, expiry FROM User WHERE name = ? AND access_token <> ''", user)
	var token oauth2.Token
	var expiry sql.NullTime
	err := row.Scan(&token.AccessToken, &token.RefreshToken, &token.TokenType, &expiry)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%q: %w", user, ErrNoToken)
	}
	if err != nil {
		return nil, fmt.Errorf("getting token for %q: %w", user, err)
	}
	if expiry.Valid {
		token.Expiry = expiry.Time
	}
	return &token, nil
}

// Users lists every known user by name.
func (s *Store) Users() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM User ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) LastSynced(user string) (time.Time, error) {
	row := s.db.QueryRow("SELECT last_synced FROM User WHERE name = ?", user)
	var t sql.NullTime
	err := row.Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("getting last synced: %w", err)
	}
	return t.Time, nil
}

// SnapshotSynced returns when the user's profile for the time range was last
// completely synced, or the zero time if either snapshot is missing.
func (s *Store) SnapshotSynced(user string, tr compat.TimeRange) (time.Time, error) {
	rows, err := s.db.Query("SELECT synced FROM Snapshot WHERE user = ? AND time_range = ? ORDER BY synced", user, tr)
	if err != nil {
		return time.Time{}, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var oldest time.Time
	n := 0
	for rows.Next() {
		var synced time.Time
		if err := rows.Scan(&synced); err != nil {
			return time.Time{}, err
		}
		if n == 0 {
			oldest = synced
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return time.Time{}, err
	}
	if n < 2 {
		return time.Time{}, nil
	}
	return oldest, nil
}

// Profile returns the user's complete profile. It fails with an error
// wrapping compat.ErrProfileUnavailable unless both the artist and track
// snapshots exist.
func (s *Store) Profile(ctx context.Context, user string, tr compat.TimeRange) (compat.UserMusicProfile, error) {
	artists, err := s.TopArtists(ctx, user, tr)
	if err != nil {
		return compat.UserMusicProfile{}, err
	}
	tracks, err := s.TopTracks(ctx, user, tr)
	if err != nil {
		return compat.UserMusicProfile{}, err
	}
	return compat.UserMusicProfile{Artists: artists, Tracks: tracks, TimeRange: tr}, nil
}

func (s *Store) TopArtists(ctx context.Context, user string, tr compat.TimeRange) ([]compat.RankedItem, error) {
	if err := s.requireSnapshot(ctx, user, tr, kindArtists); err != nil {
		return nil, err
	}

	genres, err := s.artistGenres(ctx, user, tr)
	if err != nil {
		return nil, err
	}

	query := "SELECT rank, id, name, popularity FROM TopArtist WHERE user = ? AND time_range = ? ORDER BY rank"
	rows, err := s.db.QueryContext(ctx, query, user, tr)
	if err != nil {
		return nil, fmt.Errorf("querying top artists: %w", err)
	}
	defer rows.Close()

	artists := []compat.RankedItem{}
	for rows.Next() {
		var a compat.RankedItem
		if err := rows.Scan(&a.Rank, &a.ID, &a.Name, &a.Popularity); err != nil {
			return nil, err
		}
		a.Genres = genres[a.Rank]
		if a.Genres == nil {
			a.Genres = []string{}
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

func (s *Store) artistGenres(ctx context.Context, user string, tr compat.TimeRange) (map[int][]string, error) {
	query := "SELECT rank, genre FROM ArtistGenre WHERE user = ? AND time_range = ? ORDER BY rank, position"
	rows, err := s.db.QueryContext(ctx, query, user, tr)
	if err != nil {
		return nil, fmt.Errorf("querying artist genres: %w", err)
	}
	defer rows.Close()

	genres := make(map[int][]string)
	for rows.Next() {
		var rank int
		var genre string
		if err := rows.Scan(&rank, &genre); err != nil {
			return nil, err
		}
		genres[rank] = append(genres[rank], genre)
	}
	return genres, rows.Err()
}

func (s *Store) TopTracks(ctx context.Context, user string, tr compat.TimeRange) ([]compat.RankedItem, error) {
	if err := s.requireSnapshot(ctx, user, tr, kindTracks); err != nil {
		return nil, err
	}

	query := "SELECT rank, id, name, popularity, artists FROM TopTrack WHERE user = ? AND time_range = ? ORDER BY rank"
	rows, err := s.db.QueryContext(ctx, query, user, tr)
	if err != nil {
		return nil, fmt.Errorf("querying top tracks: %w", err)
	}
	defer rows.Close()

	tracks := []compat.RankedItem{}
	for rows.Next() {
		var t compat.RankedItem
		var artists string
		if err := rows.Scan(&t.Rank, &t.ID, &t.Name, &t.Popularity, &artists); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(artists), &t.Artists); err != nil {
			return nil, fmt.Errorf("decoding artists of %q: %w", t.Name, err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func (s *Store) requireSnapshot(ctx context.Context, user string, tr compat.TimeRange, kind string) error {
	row := s.db.QueryRowContext(ctx,
		"SELECT synced FROM Snapshot WHERE user = ? AND time_range = ? AND kind = ?", user, tr, kind)
	var synced time.Time
	err := row.Scan(&synced)
	if err == sql.ErrNoRows {
		return fmt.Errorf("no %s %s snapshot for %q: %w", tr, kind, user, compat.ErrProfileUnavailable)
	}
	if err != nil {
		return fmt.Errorf("checking %s snapshot for %q: %w", kind, user, err)
	}
	return nil
}

// LatestResult returns the most recently stored compatibility of the pair,
// in either order, and when it was computed.
func (s *Store) LatestResult(userA, userB string, tr compat.TimeRange) (compat.Result, time.Time, error) {
	a, b := orderPair(userA, userB)
	row := s.db.QueryRow(
		"SELECT computed, result FROM Compatibility WHERE user_a = ? AND user_b = ? AND time_range = ? ORDER BY computed DESC LIMIT 1",
		a, b, tr)
	var computed time.Time
	var encoded string
	err := row.Scan(&computed, &encoded)
	if err == sql.ErrNoRows {
		return compat.Result{}, time.Time{}, fmt.Errorf("no stored compatibility for %q and %q: %w", userA, userB, err)
	}
	if err != nil {
		return compat.Result{}, time.Time{}, fmt.Errorf("getting compatibility: %w", err)
	}

	var res compat.Result
	if err := json.Unmarshal([]byte(encoded), &res); err != nil {
		return compat.Result{}, time.Time{}, fmt.Errorf("decoding compatibility: %w", err)
	}
	return res, computed, nil
}

var _ compat.Source = (*Store)(nil)
