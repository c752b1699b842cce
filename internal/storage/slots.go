package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Slots is a process-wide key-value table that survives restarts.
// It backs the optimistic auth flag.
type Slots struct {
	db *sql.DB
}

// Get returns the value stored under key. ok is false when the key is unset.
func (s *Slots) Get(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM kv_slots WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get slot %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Slots) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv_slots (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("set slot %s: %w", key, err)
	}
	return nil
}
