// ABOUTME: SQLite implementation of the store interfaces using modernc.org/sqlite
// ABOUTME: Owns the single connection, schema creation, migrations, and transaction scoping

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/smartdesarrollador/widg-sid-v9/internal/crypt"
)

// newID returns a fresh row identifier.
func newID() string {
	return uuid.New().String()
}

// SQLiteStore implements all store interfaces against a single SQLite
// database. Sensitive item content is routed through the cipher.
type SQLiteStore struct {
	db     *sql.DB
	cipher *crypt.Cipher
	logger *slog.Logger
}

// querier is satisfied by both *sql.DB and *sql.Tx, so insert/query
// helpers can run standalone or inside a transaction scope.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// defaultMaxHistory caps clipboard history when neither the caller nor
// the stored max_history setting provides a value.
const defaultMaxHistory = 20

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
// maxHistory seeds the max_history setting on first run; zero or a
// negative value falls back to the default. An existing database keeps
// its stored setting.
func NewSQLiteStore(path string, cipher *crypt.Cipher, maxHistory int) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Single physical connection for the process lifetime: all writers
	// serialize on it, readers see committed state via WAL.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		cipher: cipher,
		logger: logger,
	}

	if err := s.createSchema(maxHistory); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema(maxHistory int) error {
	schema := `
		CREATE TABLE IF NOT EXISTS settings (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		);

		CREATE TABLE IF NOT EXISTS categories (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			icon          TEXT,
			order_index   INTEGER NOT NULL,
			is_active     INTEGER NOT NULL DEFAULT 1,
			is_predefined INTEGER NOT NULL DEFAULT 0,
			color         TEXT,
			badge         TEXT,
			access_count  INTEGER NOT NULL DEFAULT 0,
			last_accessed TEXT,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_categories_order ON categories(order_index);

		CREATE TABLE IF NOT EXISTS items (
			id             TEXT PRIMARY KEY,
			category_id    TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
			label          TEXT NOT NULL,
			content        TEXT NOT NULL,
			type           TEXT NOT NULL DEFAULT 'text' CHECK (type IN ('text', 'url', 'code', 'path')),
			icon           TEXT,
			is_sensitive   INTEGER NOT NULL DEFAULT 0,
			is_favorite    INTEGER NOT NULL DEFAULT 0,
			favorite_order INTEGER NOT NULL DEFAULT 0,
			use_count      INTEGER NOT NULL DEFAULT 0,
			tags           TEXT,
			description    TEXT,
			working_dir    TEXT,
			color          TEXT,
			badge          TEXT,
			is_active      INTEGER NOT NULL DEFAULT 1,
			is_archived    INTEGER NOT NULL DEFAULT 0,
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL,
			last_used      TEXT,

			is_list        INTEGER NOT NULL DEFAULT 0,
			list_group     TEXT,
			orden_lista    INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_items_category ON items(category_id);
		CREATE INDEX IF NOT EXISTS idx_items_last_used ON items(last_used DESC);
		CREATE INDEX IF NOT EXISTS idx_items_is_list ON items(is_list) WHERE is_list = 1;
		CREATE INDEX IF NOT EXISTS idx_items_list_group ON items(list_group) WHERE list_group IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_items_orden_lista ON items(category_id, list_group, orden_lista) WHERE is_list = 1;

		CREATE TABLE IF NOT EXISTS clipboard_history (
			id        TEXT PRIMARY KEY,
			item_id   TEXT REFERENCES items(id) ON DELETE SET NULL,
			content   TEXT NOT NULL,
			copied_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_clipboard_history_date ON clipboard_history(copied_at DESC);

		CREATE TABLE IF NOT EXISTS pinned_panels (
			id                TEXT PRIMARY KEY,
			category_id       TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
			custom_name       TEXT,
			custom_color      TEXT,
			x_position        INTEGER NOT NULL,
			y_position        INTEGER NOT NULL,
			width             INTEGER NOT NULL DEFAULT 350,
			height            INTEGER NOT NULL DEFAULT 500,
			is_minimized      INTEGER NOT NULL DEFAULT 0,
			filter_config     TEXT,
			keyboard_shortcut TEXT,
			created_at        TEXT NOT NULL,
			last_opened       TEXT NOT NULL,
			open_count        INTEGER NOT NULL DEFAULT 0,
			is_active         INTEGER NOT NULL DEFAULT 1
		);

		CREATE INDEX IF NOT EXISTS idx_pinned_category ON pinned_panels(category_id);
		CREATE INDEX IF NOT EXISTS idx_pinned_last_opened ON pinned_panels(last_opened DESC);
		CREATE INDEX IF NOT EXISTS idx_pinned_active ON pinned_panels(is_active) WHERE is_active = 1;

		CREATE TABLE IF NOT EXISTS bookmarks (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			url         TEXT NOT NULL,
			folder      TEXT,
			icon        TEXT,
			created_at  TEXT NOT NULL,
			order_index INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_bookmarks_order ON bookmarks(order_index);
		CREATE INDEX IF NOT EXISTS idx_bookmarks_url ON bookmarks(url);

		CREATE TABLE IF NOT EXISTS speed_dials (
			id               TEXT PRIMARY KEY,
			title            TEXT NOT NULL,
			url              TEXT NOT NULL,
			thumbnail_path   TEXT,
			background_color TEXT NOT NULL DEFAULT '#16213e',
			icon             TEXT NOT NULL DEFAULT '🌐',
			position         INTEGER NOT NULL DEFAULT 0,
			created_at       TEXT NOT NULL,
			updated_at       TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_speed_dials_position ON speed_dials(position);

		CREATE TABLE IF NOT EXISTS browser_sessions (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			is_auto_save INTEGER NOT NULL DEFAULT 0,
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS session_tabs (
			id         TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES browser_sessions(id) ON DELETE CASCADE,
			url        TEXT NOT NULL,
			title      TEXT NOT NULL,
			position   INTEGER NOT NULL DEFAULT 0,
			is_active  INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_session_tabs_session ON session_tabs(session_id, position);

		-- Default settings for a fresh database
		INSERT OR IGNORE INTO settings (key, value) VALUES
			('theme', '"dark"'),
			('panel_width', '300'),
			('sidebar_width', '70'),
			('hotkey', '"ctrl+shift+v"'),
			('always_on_top', 'true'),
			('start_with_windows', 'false'),
			('animation_speed', '300'),
			('opacity', '0.95');
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// The history cap is configurable; it is seeded once and then owned
	// by the settings table like any other setting.
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('max_history', ?)`,
		strconv.Itoa(maxHistory),
	)
	return err
}

// runMigrations applies schema migrations for existing databases.
// These are idempotent - safe to run multiple times.
func (s *SQLiteStore) runMigrations() error {
	// Migration: panel customization columns (filter_config, keyboard_shortcut)
	// were added after the first release. SQLite doesn't support
	// ADD COLUMN IF NOT EXISTS, so we check first.
	migrations := []struct {
		table  string
		column string
		apply  string
	}{
		{
			table:  "pinned_panels",
			column: "filter_config",
			apply:  `ALTER TABLE pinned_panels ADD COLUMN filter_config TEXT`,
		},
		{
			table:  "pinned_panels",
			column: "keyboard_shortcut",
			apply:  `ALTER TABLE pinned_panels ADD COLUMN keyboard_shortcut TEXT`,
		},
		{
			table:  "items",
			column: "favorite_order",
			apply:  `ALTER TABLE items ADD COLUMN favorite_order INTEGER NOT NULL DEFAULT 0`,
		},
	}

	for _, m := range migrations {
		var exists int
		err := s.db.QueryRow(
			`SELECT 1 FROM pragma_table_info(?) WHERE name = ?`, m.table, m.column,
		).Scan(&exists)
		if err == nil {
			// Column already exists, skip
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking %s.%s: %w", m.table, m.column, err)
		}
		if _, err := s.db.Exec(m.apply); err != nil {
			return fmt.Errorf("adding %s column to %s: %w", m.column, m.table, err)
		}
		s.logger.Info("applied migration", "column", m.column, "table", m.table)
	}

	// Migration: browser profiles arrived after the initial schema.
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS browser_profiles (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL UNIQUE,
			storage_path TEXT NOT NULL,
			is_default   INTEGER NOT NULL DEFAULT 0,
			created_at   TEXT NOT NULL,
			last_used    TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("creating browser_profiles table: %w", err)
	}

	// Seed a default profile so DefaultProfile always resolves.
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM browser_profiles`).Scan(&count); err != nil {
		return fmt.Errorf("counting browser profiles: %w", err)
	}
	if count == 0 {
		_, err := s.db.Exec(`
			INSERT INTO browser_profiles (id, name, storage_path, is_default, created_at)
			VALUES (?, 'Default', 'browser_data/default', 1, ?)
		`, newID(), fmtTime(time.Now()))
		if err != nil {
			return fmt.Errorf("seeding default browser profile: %w", err)
		}
		s.logger.Info("applied migration", "table", "browser_profiles", "seeded", "Default")
	}

	return nil
}

// withTx runs fn inside a transaction, committing on nil error and
// rolling back otherwise. The original error is returned after rollback.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close closes the database connection. Safe to call more than once.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// joinSets joins SET clause fragments for a dynamic UPDATE.
func joinSets(sets []string) string {
	return strings.Join(sets, ", ")
}

// nullString returns nil for empty strings, otherwise the string itself.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ptrToString returns the dereferenced string or empty string if nil.
func ptrToString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// fmtTime formats a timestamp for storage.
func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// nullTime formats an optional timestamp for storage.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

// parseTime parses a stored timestamp, logging instead of failing on
// malformed values so one bad row never aborts a listing.
func (s *SQLiteStore) parseTime(value, column string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		s.logger.Warn("failed to parse stored timestamp", "column", column, "value", value, "error", err)
		return time.Time{}
	}
	return t
}

// parseNullTime parses an optional stored timestamp.
func (s *SQLiteStore) parseNullTime(value sql.NullString, column string) *time.Time {
	if !value.Valid || value.String == "" {
		return nil
	}
	t := s.parseTime(value.String, column)
	return &t
}
