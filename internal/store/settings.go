// ABOUTME: Key to JSON-value settings persistence
// ABOUTME: Typed accessors fall back to a default on any miss or mismatch

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Ensure SQLiteStore implements SettingsStore.
var _ SettingsStore = (*SQLiteStore)(nil)

// SetSetting stores value under key, JSON-encoded. Existing keys are
// overwritten.
func (s *SQLiteStore) SetSetting(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding setting %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(data), fmtTime(time.Now()))
	if err != nil {
		return fmt.Errorf("storing setting %s: %w", key, err)
	}

	s.logger.Debug("set setting", "key", key)
	return nil
}

// GetSetting decodes the JSON value stored under key into out.
// Returns ErrNotFound for missing keys.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string, out any) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("querying setting %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decoding setting %s: %w", key, err)
	}
	return nil
}

// SettingInt returns the int stored under key, or def when the key is
// missing or holds something that isn't a number.
func (s *SQLiteStore) SettingInt(ctx context.Context, key string, def int) int {
	var v int
	if err := s.GetSetting(ctx, key, &v); err != nil {
		return def
	}
	return v
}

// SettingString returns the string stored under key, or def.
func (s *SQLiteStore) SettingString(ctx context.Context, key string, def string) string {
	var v string
	if err := s.GetSetting(ctx, key, &v); err != nil {
		return def
	}
	return v
}

// SettingBool returns the bool stored under key, or def.
func (s *SQLiteStore) SettingBool(ctx context.Context, key string, def bool) bool {
	var v bool
	if err := s.GetSetting(ctx, key, &v); err != nil {
		return def
	}
	return v
}

// AllSettings returns every key with its raw JSON value.
func (s *SQLiteStore) AllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning setting row: %w", err)
		}
		settings[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating setting rows: %w", err)
	}
	return settings, nil
}
