package logging

import (
	"database/sql"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE transition_log (
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
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-transition-tests
func TestLogTransition_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := TransitionEntry{
		SessionID:    "s1",
		VersionID:    "v1",
		FromPath:     "/EvaluateCriteria",
		ToPath:       "/NewOption",
		Decision:     "proceed",
		Reason:       "passed gate: sum=1",
		WeightSum:    1,
		CriteriaJSON: `[{"name":"Cost","weight":1}]`,
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogTransition(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM transition_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var versionID, decision string
	db.QueryRow("SELECT version_id, decision FROM transition_log").Scan(&versionID, &decision)
	if versionID != "v1" {
		t.Errorf("expected version_id 'v1', got %q", versionID)
	}
	if decision != "proceed" {
		t.Errorf("expected decision 'proceed', got %q", decision)
	}
}

func TestLogTransition_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC().Add(-time.Second)
	err := LogTransition(db, TransitionEntry{SessionID: "s2", ToPath: "/NewOption", Decision: "hold"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := ListTransitions(db, 1)
	if err != nil {
		t.Fatalf("ListTransitions: %v", err)
	}
	if entries[0].CreatedAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogTransition_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	err := LogTransition(db, TransitionEntry{
		SessionID: "s3",
		ToPath:    "/NewOption",
		Decision:  "hold",
		WeightSum: 0.8,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var versionID, fromPath, reason, critJSON sql.NullString
	db.QueryRow("SELECT version_id, from_path, reason, criteria_json FROM transition_log").Scan(
		&versionID, &fromPath, &reason, &critJSON,
	)
	if versionID.Valid {
		t.Error("expected NULL version_id for empty string")
	}
	if fromPath.Valid {
		t.Error("expected NULL from_path for empty string")
	}
	if reason.Valid {
		t.Error("expected NULL reason for empty string")
	}
	if critJSON.Valid {
		t.Error("expected NULL criteria_json for empty string")
	}
}

func TestLogTransition_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	err := LogTransition(db, TransitionEntry{SessionID: "s4", ToPath: "/NewOption", Decision: "proceed"})
	if err == nil {
		t.Fatal("expected error on closed db")
	}
}

func TestRecorder(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	r := NewRecorder(db)
	if err := r.LogTransition(TransitionEntry{SessionID: "s5", ToPath: "/NewOption", Decision: "proceed", WeightSum: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries, err := ListTransitions(db, 10)
	if err != nil {
		t.Fatalf("ListTransitions: %v", err)
	}
	if len(entries) != 1 || entries[0].SessionID != "s5" {
		t.Fatalf("expected one entry for s5, got %+v", entries)
	}
}

// #endregion log-transition-tests

// #region list-transitions-tests
func TestListTransitions_NewestFirst(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	for _, d := range []string{"hold", "hold", "proceed"} {
		if err := LogTransition(db, TransitionEntry{SessionID: "s", ToPath: "/NewOption", Decision: d}); err != nil {
			t.Fatalf("LogTransition: %v", err)
		}
	}

	entries, err := ListTransitions(db, 2)
	if err != nil {
		t.Fatalf("ListTransitions: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Decision != "proceed" {
		t.Fatalf("expected newest entry first, got %s", entries[0].Decision)
	}
}

func TestListTransitions_Error(t *testing.T) {
	db := setupDB(t)
	db.Close()
	if _, err := ListTransitions(db, 10); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion list-transitions-tests

// #region helper-tests
func TestNullIfEmpty_Empty(t *testing.T) {
	if result := nullIfEmpty(""); result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestNullIfEmpty_NonEmpty(t *testing.T) {
	if result := nullIfEmpty("hello"); result != "hello" {
		t.Errorf("expected 'hello', got %v", result)
	}
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("debug")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level to be enabled")
	}

	if _, err := NewLogger("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

// #endregion helper-tests
