package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/yogendrarau/Matchify/internal/compat"
)

// Snapshot kinds.
const (
	kindArtists = "artists"
	kindTracks  = "tracks"
)

// CreateUser ensures a user exists in the database.
func (s *Store) CreateUser(user string) error {
	row := s.db.QueryRow("SELECT name FROM User WHERE name = ?", user)
	var name string
	err := row.Scan(&name)
	if err == sql.ErrNoRows {
		_, err := s.db.Exec("INSERT INTO User (name) VALUES (?)", user)
		if err != nil {
			return fmt.Errorf("inserting user %q: %w", user, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking user %q: %w", user, err)
	}
	return nil
}

// SaveToken stores the user's Spotify OAuth token, creating the user if needed.
func (s *Store) SaveToken(user string, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("saving token for %q: nil token", user)
	}
	if err := s.CreateUser(user); err != nil {
		return err
	}

	var expiry sql.NullTime
	if !token.Expiry.IsZero() {
		expiry = sql.NullTime{Time: token.Expiry.UTC(), Valid: true}
	}
	_, err := s.db.Exec(
		"UPDATE User SET access_token = ?, refresh_token = ?, token_type = ?, expiry = ? WHERE name = ?",
		token.AccessToken, token.RefreshToken, token.TokenType, expiry, user)
	if err != nil {
		return fmt.Errorf("updating token for %q: %w", user, err)
	}
	return nil
}

func (s *Store) SetLastSynced(user string, synced time.Time) error {
	_, err := s.db.Exec("UPDATE User SET last_synced = ? WHERE name = ?", synced.UTC(), user)
	if err != nil {
		return fmt.Errorf("updating last_synced for %q: %w", user, err)
	}
	return nil
}

// SaveArtists replaces the user's top artist snapshot for the time range.
func (s *Store) SaveArtists(user string, tr compat.TimeRange, artists []compat.RankedItem, synced time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM ArtistGenre WHERE user = ? AND time_range = ?", user, tr); err != nil {
		return fmt.Errorf("clearing genres for %q: %w", user, err)
	}
	if _, err := tx.Exec("DELETE FROM TopArtist WHERE user = ? AND time_range = ?", user, tr); err != nil {
		return fmt.Errorf("clearing artists for %q: %w", user, err)
	}

	for i, a := range artists {
		rank := i + 1
		_, err := tx.Exec(
			"INSERT INTO TopArtist (user, time_range, rank, id, name, popularity) VALUES (?, ?, ?, ?, ?, ?)",
			user, tr, rank, a.ID, a.Name, a.Popularity)
		if err != nil {
			return fmt.Errorf("inserting artist %q: %w", a.Name, err)
		}
		for pos, genre := range a.Genres {
			_, err := tx.Exec(
				"INSERT INTO ArtistGenre (user, time_range, rank, position, genre) VALUES (?, ?, ?, ?, ?)",
				user, tr, rank, pos, genre)
			if err != nil {
				return fmt.Errorf("inserting genre %q for artist %q: %w", genre, a.Name, err)
			}
		}
	}

	if err := markSnapshot(tx, user, tr, kindArtists, synced); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SaveTracks replaces the user's top track snapshot for the time range.
func (s *Store) SaveTracks(user string, tr compat.TimeRange, tracks []compat.RankedItem, synced time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM TopTrack WHERE user = ? AND time_range = ?", user, tr); err != nil {
		return fmt.Errorf("clearing tracks for %q: %w", user, err)
	}

	for i, t := range tracks {
		artists, err := json.Marshal(nonNil(t.Artists))
		if err != nil {
			return fmt.Errorf("encoding artists of %q: %w", t.Name, err)
		}
		_, err = tx.Exec(
			"INSERT INTO TopTrack (user, time_range, rank, id, name, popularity, artists) VALUES (?, ?, ?, ?, ?, ?, ?)",
			user, tr, i+1, t.ID, t.Name, t.Popularity, string(artists))
		if err != nil {
			return fmt.Errorf("inserting track %q: %w", t.Name, err)
		}
	}

	if err := markSnapshot(tx, user, tr, kindTracks, synced); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func markSnapshot(tx *sql.Tx, user string, tr compat.TimeRange, kind string, synced time.Time) error {
	_, err := tx.Exec(
		"INSERT OR REPLACE INTO Snapshot (user, time_range, kind, synced) VALUES (?, ?, ?, ?)",
		user, tr, kind, synced.UTC())
	if err != nil {
		return fmt.Errorf("recording %s snapshot for %q: %w", kind, user, err)
	}
	return nil
}

// SaveResult records a computed compatibility. The pair is unordered.
func (s *Store) SaveResult(userA, userB string, tr compat.TimeRange, res compat.Result, computed time.Time) error {
	a, b := orderPair(userA, userB)
	encoded, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO Compatibility (user_a, user_b, time_range, computed, total, result) VALUES (?, ?, ?, ?, ?, ?)",
		a, b, tr, computed.UTC(), res.TotalScore, string(encoded))
	if err != nil {
		return fmt.Errorf("saving compatibility of %q and %q: %w", userA, userB, err)
	}
	return nil
}

func orderPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
