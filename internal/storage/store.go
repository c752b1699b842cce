package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrAmbiguous is returned when a version prefix matches more than one version.
var ErrAmbiguous = errors.New("ambiguous version prefix")

// timeFormat is fixed-width so created_at sorts lexically in time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS draft_versions (
	version_id    TEXT PRIMARY KEY,
	parent_id     TEXT,
	session_id    TEXT NOT NULL,
	decision_text TEXT NOT NULL,
	criteria_json TEXT NOT NULL,
	options_json  TEXT NOT NULL,
	weight_sum    REAL NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES draft_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_draft (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES draft_versions(version_id)
);

CREATE TABLE IF NOT EXISTS transition_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	version_id    TEXT,
	from_path     TEXT,
	to_path       TEXT NOT NULL,
	decision      TEXT NOT NULL,
	reason        TEXT,
	weight_sum    REAL NOT NULL,
	criteria_json TEXT,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS kv_slots (
	key           TEXT PRIMARY KEY,
	value         TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_profiles (
	id            TEXT PRIMARY KEY,
	display_name  TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct
// Store is the SQLite backing for the flag slot, user profiles, the draft
// archive and the transition log.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an already-migrated database. The caller owns db.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates any missing tables on db.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Slots returns the durable key-value slot view.
func (s *Store) Slots() *Slots {
	return &Slots{db: s.db}
}

// Profiles returns the user profile view.
func (s *Store) Profiles() *Profiles {
	return &Profiles{db: s.db}
}

// #endregion db-accessor

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
