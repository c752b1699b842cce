package logging

import (
	"database/sql"
	"fmt"
	"time"
)

const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// #region recorder
// Recorder writes transitions to a fixed database.
type Recorder struct {
	db *sql.DB
}

// NewRecorder returns a Recorder backed by db.
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// LogTransition writes entry via the package-level LogTransition.
func (r *Recorder) LogTransition(entry TransitionEntry) error {
	return LogTransition(r.db, entry)
}

// #endregion recorder

// #region log-transition
// LogTransition writes an entry to the transition_log table.
func LogTransition(db *sql.DB, entry TransitionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO transition_log (session_id, version_id, from_path, to_path, decision, reason, weight_sum, criteria_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		nullIfEmpty(entry.VersionID),
		nullIfEmpty(entry.FromPath),
		entry.ToPath,
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.WeightSum,
		nullIfEmpty(entry.CriteriaJSON),
		entry.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("log transition: %w", err)
	}
	return nil
}

// #endregion log-transition

// #region list-transitions
// ListTransitions returns the most recent entries, newest first.
func ListTransitions(db *sql.DB, limit int) ([]TransitionEntry, error) {
	rows, err := db.Query(
		`SELECT session_id, version_id, from_path, to_path, decision, reason, weight_sum, criteria_json, created_at
		 FROM transition_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []TransitionEntry
	for rows.Next() {
		var e TransitionEntry
		var versionID, fromPath, reason, critJSON sql.NullString
		var createdStr string
		if err := rows.Scan(&e.SessionID, &versionID, &fromPath, &e.ToPath, &e.Decision,
			&reason, &e.WeightSum, &critJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		e.VersionID = versionID.String
		e.FromPath = fromPath.String
		e.Reason = reason.String
		e.CriteriaJSON = critJSON.String
		e.CreatedAt, _ = time.Parse(timeFormat, createdStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list-transitions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
