package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/decisionmaker/internal/draft"
	"github.com/google/uuid"
)

// #region draft-record
// DraftRecord is an archived snapshot of a draft that passed the weight gate.
type DraftRecord struct {
	VersionID string      `json:"version_id" yaml:"version_id"`
	ParentID  string      `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Draft     draft.Draft `json:"draft" yaml:"draft"`
	WeightSum float64     `json:"weight_sum" yaml:"weight_sum"`
	CreatedAt time.Time   `json:"created_at" yaml:"created_at"`
}

// #endregion draft-record

// #region commit-draft
// CommitDraft archives d as a new version whose parent is the currently active
// version, and makes it active.
func (s *Store) CommitDraft(d draft.Draft, weightSum float64) (DraftRecord, error) {
	critJSON, err := json.Marshal(d.Criteria)
	if err != nil {
		return DraftRecord{}, fmt.Errorf("marshal criteria: %w", err)
	}
	optJSON, err := json.Marshal(d.Options)
	if err != nil {
		return DraftRecord{}, fmt.Errorf("marshal options: %w", err)
	}

	rec := DraftRecord{
		VersionID: uuid.New().String(),
		Draft:     d,
		WeightSum: weightSum,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return DraftRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parentID sql.NullString
	err = tx.QueryRow(`SELECT version_id FROM active_draft WHERE id = 1`).Scan(&parentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return DraftRecord{}, fmt.Errorf("get active: %w", err)
	}
	if parentID.Valid {
		rec.ParentID = parentID.String
	}

	_, err = tx.Exec(
		`INSERT INTO draft_versions (version_id, parent_id, session_id, decision_text, criteria_json, options_json, weight_sum, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.VersionID, nullIfEmpty(rec.ParentID), d.SessionID, d.DecisionText,
		string(critJSON), string(optJSON), weightSum, rec.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return DraftRecord{}, fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_draft (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		rec.VersionID,
	)
	if err != nil {
		return DraftRecord{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return DraftRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion commit-draft

// #region get-current
// GetCurrent reads the active draft version.
func (s *Store) GetCurrent() (DraftRecord, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_draft WHERE id = 1`).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return DraftRecord{}, fmt.Errorf("get active: %w", ErrNotFound)
	}
	if err != nil {
		return DraftRecord{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetVersion(versionID)
}

// #endregion get-current

// #region get-version
// GetVersion retrieves a specific draft version by ID.
func (s *Store) GetVersion(id string) (DraftRecord, error) {
	row := s.db.QueryRow(
		`SELECT version_id, parent_id, session_id, decision_text, criteria_json, options_json, weight_sum, created_at
		 FROM draft_versions WHERE version_id = ?`, id,
	)
	rec, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return DraftRecord{}, fmt.Errorf("get version %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return DraftRecord{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return rec, nil
}

// #endregion get-version

// #region find-version
// FindVersion resolves a full version ID or a unique prefix of one, as printed
// by the short listings.
func (s *Store) FindVersion(prefix string) (DraftRecord, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return DraftRecord{}, fmt.Errorf("find version: %w", ErrNotFound)
	}
	escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(prefix)
	rows, err := s.db.Query(
		`SELECT version_id FROM draft_versions WHERE version_id LIKE ? ESCAPE '\' LIMIT 2`,
		escaped+"%",
	)
	if err != nil {
		return DraftRecord{}, fmt.Errorf("find version %s: %w", prefix, err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return DraftRecord{}, fmt.Errorf("scan row: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return DraftRecord{}, fmt.Errorf("find version %s: %w", prefix, err)
	}

	switch len(ids) {
	case 0:
		return DraftRecord{}, fmt.Errorf("version %s: %w", prefix, ErrNotFound)
	case 1:
		return s.GetVersion(ids[0])
	default:
		return DraftRecord{}, fmt.Errorf("version %s: %w", prefix, ErrAmbiguous)
	}
}

// #endregion find-version

// #region rollback
// Rollback sets the active pointer to a previous version.
func (s *Store) Rollback(targetVersionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM draft_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s: %w", targetVersionID, ErrNotFound)
	}

	_, err = s.db.Exec(`UPDATE active_draft SET version_id = ? WHERE id = 1`, targetVersionID)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// #endregion rollback

// #region list-versions
// ListVersions returns the most recent draft versions, newest first.
func (s *Store) ListVersions(limit int) ([]DraftRecord, error) {
	rows, err := s.db.Query(
		`SELECT version_id, parent_id, session_id, decision_text, criteria_json, options_json, weight_sum, created_at
		 FROM draft_versions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []DraftRecord
	for rows.Next() {
		rec, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-versions

// #region scan
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDraft(row rowScanner) (DraftRecord, error) {
	var rec DraftRecord
	var parentID sql.NullString
	var critJSON, optJSON, createdStr string

	err := row.Scan(
		&rec.VersionID, &parentID, &rec.Draft.SessionID, &rec.Draft.DecisionText,
		&critJSON, &optJSON, &rec.WeightSum, &createdStr,
	)
	if err != nil {
		return DraftRecord{}, err
	}
	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	if err := json.Unmarshal([]byte(critJSON), &rec.Draft.Criteria); err != nil {
		return DraftRecord{}, fmt.Errorf("unmarshal criteria: %w", err)
	}
	if err := json.Unmarshal([]byte(optJSON), &rec.Draft.Options); err != nil {
		return DraftRecord{}, fmt.Errorf("unmarshal options: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(timeFormat, createdStr)
	return rec, nil
}

// #endregion scan
