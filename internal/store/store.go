package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const createQuery = `
CREATE TABLE IF NOT EXISTS User (
  name TEXT PRIMARY KEY,
  access_token TEXT NOT NULL DEFAULT '',
  refresh_token TEXT NOT NULL DEFAULT '',
  token_type TEXT NOT NULL DEFAULT '',
  expiry DATETIME
);

CREATE TABLE IF NOT EXISTS Snapshot (
  user TEXT,
  time_range TEXT,
  kind TEXT,
  synced DATETIME,
  FOREIGN KEY (user) REFERENCES User(name),
  PRIMARY KEY (user, time_range, kind)
);

CREATE TABLE IF NOT EXISTS TopArtist (
  user TEXT,
  time_range TEXT,
  rank INTEGER,
  id TEXT,
  name TEXT,
  popularity INTEGER,
  FOREIGN KEY (user) REFERENCES User(name),
  PRIMARY KEY (user, time_range, rank)
);

CREATE TABLE IF NOT EXISTS ArtistGenre (
  user TEXT,
  time_range TEXT,
  rank INTEGER,
  position INTEGER,
  genre TEXT,
  FOREIGN KEY (user) REFERENCES User(name),
  PRIMARY KEY (user, time_range, rank, position)
);

CREATE TABLE IF NOT EXISTS TopTrack (
  user TEXT,
  time_range TEXT,
  rank INTEGER,
  id TEXT,
  name TEXT,
  popularity INTEGER,
  artists TEXT,
  FOREIGN KEY (user) REFERENCES User(name),
  PRIMARY KEY (user, time_range, rank)
);

CREATE TABLE IF NOT EXISTS Compatibility (
  user_a TEXT,
  user_b TEXT,
  time_range TEXT,
  computed DATETIME,
  total REAL,
  result TEXT,
  PRIMARY KEY (user_a, user_b, time_range, computed)
);
`

func createTables(db *sql.DB) error {
	if _, err := db.Exec(createQuery); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// ensureSchema upgrades databases created before a column existed.
func ensureSchema(db *sql.DB) error {
	return addColumnIfNotExists(db, "User", "last_synced", "DATETIME")
}

func addColumnIfNotExists(db *sql.DB, table, column, typeDef string) error {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if !exists {
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, typeDef)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("adding column %s.%s: %w", table, column, err)
		}
	}
	return nil
}

func columnExists(db *sql.DB, tableName string, columnName string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name string
		var ctype string
		var notnull int
		var dfltValue interface{}
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == columnName {
			return true, nil
		}
	}
	return false, rows.Err()
}
