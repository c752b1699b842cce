package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Profiles stores display names keyed by user ID.
type Profiles struct {
	db *sql.DB
}

// DisplayName returns the display name for userID. ok is false when no profile exists.
func (p *Profiles) DisplayName(ctx context.Context, userID string) (string, bool, error) {
	var name string
	err := p.db.QueryRowContext(ctx,
		`SELECT display_name FROM user_profiles WHERE id = ?`, userID,
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get profile %s: %w", userID, err)
	}
	return name, true, nil
}

// Upsert creates or renames the profile for userID.
func (p *Profiles) Upsert(ctx context.Context, userID, displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if userID == "" || displayName == "" {
		return fmt.Errorf("upsert profile: user id and display name are required")
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO user_profiles (id, display_name, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name, updated_at = excluded.updated_at`,
		userID, displayName, time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", userID, err)
	}
	return nil
}

// Delete removes the profile for userID. Missing profiles are not an error.
func (p *Profiles) Delete(ctx context.Context, userID string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM user_profiles WHERE id = ?`, userID); err != nil {
		return fmt.Errorf("delete profile %s: %w", userID, err)
	}
	return nil
}
