// ABOUTME: Browser session, tab, and profile persistence
// ABOUTME: A single auto-save slot is replaced on every save

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveSession stores a named set of tabs as one session. When autoSave
// is set the previous auto-save session is replaced, so at most one
// exists at a time. Returns the session ID.
func (s *SQLiteStore) SaveSession(ctx context.Context, name string, tabs []SessionTab, autoSave bool) (string, error) {
	id := newID()
	now := fmtTime(time.Now())

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if autoSave {
			// Tabs go with it via ON DELETE CASCADE.
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM browser_sessions WHERE is_auto_save = 1`,
			); err != nil {
				return fmt.Errorf("replacing auto-save session: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO browser_sessions (id, name, is_auto_save, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, id, name, autoSave, now, now)
		if err != nil {
			return fmt.Errorf("inserting session: %w", err)
		}

		for i, tab := range tabs {
			tabID := tab.ID
			if tabID == "" {
				tabID = newID()
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO session_tabs (id, session_id, url, title, position, is_active)
				VALUES (?, ?, ?, ?, ?, ?)
			`, tabID, id, tab.URL, tab.Title, i, tab.IsActive)
			if err != nil {
				return fmt.Errorf("inserting session tab %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("saved session", "id", id, "name", name, "tabs", len(tabs), "auto_save", autoSave)
	return id, nil
}

// Sessions returns saved sessions newest first, with their tab counts.
// The auto-save session is included only when includeAutoSave is set.
func (s *SQLiteStore) Sessions(ctx context.Context, includeAutoSave bool) ([]*BrowserSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.is_auto_save, s.created_at, s.updated_at,
		       (SELECT COUNT(*) FROM session_tabs t WHERE t.session_id = s.id)
		FROM browser_sessions s
		WHERE s.is_auto_save = 0 OR ? = 1
		ORDER BY s.updated_at DESC
	`, includeAutoSave)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*BrowserSession
	for rows.Next() {
		sess, err := s.scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}
	return sessions, nil
}

func (s *SQLiteStore) scanSession(row scanner) (*BrowserSession, error) {
	var sess BrowserSession
	var createdAt, updatedAt string
	err := row.Scan(&sess.ID, &sess.Name, &sess.IsAutoSave, &createdAt, &updatedAt, &sess.TabCount)
	if err != nil {
		return nil, err
	}
	sess.CreatedAt = s.parseTime(createdAt, "created_at")
	sess.UpdatedAt = s.parseTime(updatedAt, "updated_at")
	return &sess, nil
}

// SessionTabs returns the tabs of one session in position order.
func (s *SQLiteStore) SessionTabs(ctx context.Context, sessionID string) ([]*SessionTab, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, url, title, position, is_active
		FROM session_tabs
		WHERE session_id = ?
		ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying session tabs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tabs []*SessionTab
	for rows.Next() {
		var t SessionTab
		if err := rows.Scan(&t.ID, &t.SessionID, &t.URL, &t.Title, &t.Position, &t.IsActive); err != nil {
			return nil, fmt.Errorf("scanning session tab row: %w", err)
		}
		tabs = append(tabs, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session tab rows: %w", err)
	}
	return tabs, nil
}

// LastAutoSaveSession returns the auto-save session, for restoring the
// previous browsing state on startup.
// Returns ErrNotFound when nothing has been auto-saved yet.
func (s *SQLiteStore) LastAutoSaveSession(ctx context.Context) (*BrowserSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.name, s.is_auto_save, s.created_at, s.updated_at,
		       (SELECT COUNT(*) FROM session_tabs t WHERE t.session_id = s.id)
		FROM browser_sessions s
		WHERE s.is_auto_save = 1
		ORDER BY s.updated_at DESC
		LIMIT 1
	`)

	sess, err := s.scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying auto-save session: %w", err)
	}
	return sess, nil
}

// DeleteSession removes a session and its tabs.
// Returns ErrNotFound if the session doesn't exist.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM browser_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("deleted session", "id", id)
	return nil
}

// RenameSession changes a session's display name.
// Returns ErrNotFound if the session doesn't exist.
func (s *SQLiteStore) RenameSession(ctx context.Context, id, name string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE browser_sessions SET name = ?, updated_at = ? WHERE id = ?
	`, name, fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("renaming session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateProfile creates an isolated browser profile. Marking it
// default clears the flag on the previous default.
// Returns ErrDuplicateProfile when the name is taken. The profile's ID
// is assigned in place.
func (s *SQLiteStore) CreateProfile(ctx context.Context, p *BrowserProfile) error {
	if p.ID == "" {
		p.ID = newID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if p.IsDefault {
			if _, err := tx.ExecContext(ctx, `UPDATE browser_profiles SET is_default = 0`); err != nil {
				return fmt.Errorf("clearing default profile: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO browser_profiles (id, name, storage_path, is_default, created_at, last_used)
			VALUES (?, ?, ?, ?, ?, ?)
		`, p.ID, p.Name, p.StoragePath, p.IsDefault, fmtTime(p.CreatedAt), nullTime(p.LastUsed))
		if err != nil {
			if isConstraintViolation(err) {
				return ErrDuplicateProfile
			}
			return fmt.Errorf("inserting profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("created profile", "id", p.ID, "name", p.Name, "default", p.IsDefault)
	return nil
}

// Profiles returns all browser profiles, default first.
func (s *SQLiteStore) Profiles(ctx context.Context) ([]*BrowserProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, storage_path, is_default, created_at, last_used
		FROM browser_profiles
		ORDER BY is_default DESC, name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var profiles []*BrowserProfile
	for rows.Next() {
		p, err := s.scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile row: %w", err)
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profile rows: %w", err)
	}
	return profiles, nil
}

func (s *SQLiteStore) scanProfile(row scanner) (*BrowserProfile, error) {
	var p BrowserProfile
	var createdAt string
	var lastUsed sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.StoragePath, &p.IsDefault, &createdAt, &lastUsed)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = s.parseTime(createdAt, "created_at")
	p.LastUsed = s.parseNullTime(lastUsed, "last_used")
	return &p, nil
}

// DefaultProfile returns the default browser profile. The migrations
// seed one, so this resolves on any initialized database.
func (s *SQLiteStore) DefaultProfile(ctx context.Context) (*BrowserProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, storage_path, is_default, created_at, last_used
		FROM browser_profiles
		WHERE is_default = 1
		LIMIT 1
	`)

	p, err := s.scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying default profile: %w", err)
	}
	return p, nil
}

// SetDefaultProfile makes the given profile the default, clearing the
// flag on every other profile.
// Returns ErrNotFound if the profile doesn't exist.
func (s *SQLiteStore) SetDefaultProfile(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE browser_profiles SET is_default = 1 WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("setting default profile: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return ErrNotFound
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE browser_profiles SET is_default = 0 WHERE id != ?`, id,
		); err != nil {
			return fmt.Errorf("clearing previous default: %w", err)
		}

		s.logger.Info("set default profile", "id", id)
		return nil
	})
}

// TouchProfile records that a profile was used.
func (s *SQLiteStore) TouchProfile(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE browser_profiles SET last_used = ? WHERE id = ?
	`, fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("touching profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProfile removes a profile. The default profile cannot be
// deleted; pick a new default first.
// Returns ErrDefaultProfile for the default and ErrNotFound otherwise.
func (s *SQLiteStore) DeleteProfile(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var isDefault bool
		err := tx.QueryRowContext(ctx,
			`SELECT is_default FROM browser_profiles WHERE id = ?`, id,
		).Scan(&isDefault)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying profile: %w", err)
		}
		if isDefault {
			return ErrDefaultProfile
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM browser_profiles WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting profile: %w", err)
		}

		s.logger.Info("deleted profile", "id", id)
		return nil
	})
}
