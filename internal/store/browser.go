// ABOUTME: Bookmark and speed dial persistence for the embedded browser
// ABOUTME: Speed dial positions are compacted to 0..N-1 across moves and deletes

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Ensure SQLiteStore implements BrowserStore.
var _ BrowserStore = (*SQLiteStore)(nil)

// AddBookmark saves a bookmark. Adding a URL that is already
// bookmarked returns the existing row's ID instead of inserting a
// duplicate. The bookmark's ID is assigned in place.
func (s *SQLiteStore) AddBookmark(ctx context.Context, b *Bookmark) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var existingID string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM bookmarks WHERE url = ?`, b.URL,
		).Scan(&existingID)
		if err == nil {
			b.ID = existingID
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking bookmark url: %w", err)
		}

		if b.ID == "" {
			b.ID = newID()
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = time.Now().UTC()
		}

		var maxOrder sql.NullInt64
		if err := tx.QueryRowContext(ctx, `SELECT MAX(order_index) FROM bookmarks`).Scan(&maxOrder); err != nil {
			return fmt.Errorf("querying max bookmark order: %w", err)
		}
		b.OrderIndex = int(maxOrder.Int64) + 1

		_, err = tx.ExecContext(ctx, `
			INSERT INTO bookmarks (id, title, url, folder, icon, created_at, order_index)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, b.ID, b.Title, b.URL, b.Folder, b.Icon, fmtTime(b.CreatedAt), b.OrderIndex)
		if err != nil {
			return fmt.Errorf("inserting bookmark: %w", err)
		}

		s.logger.Info("added bookmark", "id", b.ID, "url", b.URL)
		return nil
	})
}

// Bookmarks returns bookmarks in order, optionally filtered by folder.
func (s *SQLiteStore) Bookmarks(ctx context.Context, folder *string) ([]*Bookmark, error) {
	query := `
		SELECT id, title, url, folder, icon, created_at, order_index
		FROM bookmarks
		WHERE ? IS NULL OR folder = ?
		ORDER BY order_index
	`

	rows, err := s.db.QueryContext(ctx, query, folder, folder)
	if err != nil {
		return nil, fmt.Errorf("querying bookmarks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var bookmarks []*Bookmark
	for rows.Next() {
		var b Bookmark
		var bFolder, icon sql.NullString
		var createdAt string
		if err := rows.Scan(&b.ID, &b.Title, &b.URL, &bFolder, &icon, &createdAt, &b.OrderIndex); err != nil {
			return nil, fmt.Errorf("scanning bookmark row: %w", err)
		}
		if bFolder.Valid {
			b.Folder = &bFolder.String
		}
		if icon.Valid {
			b.Icon = &icon.String
		}
		b.CreatedAt = s.parseTime(createdAt, "created_at")
		bookmarks = append(bookmarks, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bookmark rows: %w", err)
	}
	return bookmarks, nil
}

// UpdateBookmark applies the non-nil fields of patch.
// Returns ErrNotFound if the bookmark doesn't exist.
func (s *SQLiteStore) UpdateBookmark(ctx context.Context, id string, patch BookmarkPatch) error {
	var sets []string
	var args []any

	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.URL != nil {
		sets = append(sets, "url = ?")
		args = append(args, *patch.URL)
	}
	if patch.Folder != nil {
		sets = append(sets, "folder = ?")
		args = append(args, nullString(*patch.Folder))
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	result, err := s.db.ExecContext(ctx, "UPDATE bookmarks SET "+joinSets(sets)+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("updating bookmark: %w", err)
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

// DeleteBookmark removes a bookmark.
// Returns ErrNotFound if the bookmark doesn't exist.
func (s *SQLiteStore) DeleteBookmark(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting bookmark: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("deleted bookmark", "id", id)
	return nil
}

// BookmarkExists reports whether a URL is already bookmarked.
func (s *SQLiteStore) BookmarkExists(ctx context.Context, url string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookmarks WHERE url = ?`, url,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking bookmark url: %w", err)
	}
	return count > 0, nil
}

// browserConfigKey is the settings key holding the BrowserConfig row.
const browserConfigKey = "browser_config"

// defaultBrowserConfig returns the window state of a fresh install.
func defaultBrowserConfig() *BrowserConfig {
	return &BrowserConfig{
		HomeURL:   "https://www.google.com",
		IsVisible: false,
		Width:     500,
		Height:    700,
	}
}

// BrowserConfig returns the embedded-browser window state, creating
// the default on first access.
func (s *SQLiteStore) BrowserConfig(ctx context.Context) (*BrowserConfig, error) {
	var cfg BrowserConfig
	err := s.GetSetting(ctx, browserConfigKey, &cfg)
	if errors.Is(err, ErrNotFound) {
		def := defaultBrowserConfig()
		if err := s.SaveBrowserConfig(ctx, def); err != nil {
			return nil, err
		}
		return def, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveBrowserConfig stores the embedded-browser window state.
func (s *SQLiteStore) SaveBrowserConfig(ctx context.Context, cfg *BrowserConfig) error {
	return s.SetSetting(ctx, browserConfigKey, cfg)
}

// AddSpeedDial saves a speed dial tile at the end of the grid.
// The dial's ID and Position are assigned in place.
func (s *SQLiteStore) AddSpeedDial(ctx context.Context, sd *SpeedDial) error {
	if sd.ID == "" {
		sd.ID = newID()
	}
	if sd.Icon == "" {
		sd.Icon = "🌐"
	}
	if sd.BackgroundColor == "" {
		sd.BackgroundColor = "#16213e"
	}
	now := time.Now().UTC()
	if sd.CreatedAt.IsZero() {
		sd.CreatedAt = now
	}
	sd.UpdatedAt = now

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM speed_dials`).Scan(&count); err != nil {
			return fmt.Errorf("counting speed dials: %w", err)
		}
		sd.Position = count

		_, err := tx.ExecContext(ctx, `
			INSERT INTO speed_dials (id, title, url, thumbnail_path, background_color, icon, position, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, sd.ID, sd.Title, sd.URL, sd.ThumbnailPath, sd.BackgroundColor, sd.Icon,
			sd.Position, fmtTime(sd.CreatedAt), fmtTime(sd.UpdatedAt))
		if err != nil {
			return fmt.Errorf("inserting speed dial: %w", err)
		}

		s.logger.Info("added speed dial", "id", sd.ID, "position", sd.Position)
		return nil
	})
}

// SpeedDials returns all speed dial tiles in grid order.
func (s *SQLiteStore) SpeedDials(ctx context.Context) ([]*SpeedDial, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, url, thumbnail_path, background_color, icon, position, created_at, updated_at
		FROM speed_dials
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying speed dials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dials []*SpeedDial
	for rows.Next() {
		var sd SpeedDial
		var thumbnail sql.NullString
		var createdAt, updatedAt string
		err := rows.Scan(&sd.ID, &sd.Title, &sd.URL, &thumbnail, &sd.BackgroundColor,
			&sd.Icon, &sd.Position, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning speed dial row: %w", err)
		}
		if thumbnail.Valid {
			sd.ThumbnailPath = &thumbnail.String
		}
		sd.CreatedAt = s.parseTime(createdAt, "created_at")
		sd.UpdatedAt = s.parseTime(updatedAt, "updated_at")
		dials = append(dials, &sd)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating speed dial rows: %w", err)
	}
	return dials, nil
}

// UpdateSpeedDial applies the non-nil fields of patch.
// Returns ErrNotFound if the dial doesn't exist.
func (s *SQLiteStore) UpdateSpeedDial(ctx context.Context, id string, patch SpeedDialPatch) error {
	var sets []string
	var args []any

	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.URL != nil {
		sets = append(sets, "url = ?")
		args = append(args, *patch.URL)
	}
	if patch.Icon != nil {
		sets = append(sets, "icon = ?")
		args = append(args, *patch.Icon)
	}
	if patch.BackgroundColor != nil {
		sets = append(sets, "background_color = ?")
		args = append(args, *patch.BackgroundColor)
	}
	if patch.ThumbnailPath != nil {
		sets = append(sets, "thumbnail_path = ?")
		args = append(args, nullString(*patch.ThumbnailPath))
	}

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, fmtTime(time.Now()), id)

	result, err := s.db.ExecContext(ctx, "UPDATE speed_dials SET "+joinSets(sets)+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("updating speed dial: %w", err)
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

// ReorderSpeedDial moves a dial to position (0-based) and rewrites the
// whole grid so positions stay compact. Out-of-range targets are
// clamped to the grid edges.
func (s *SQLiteStore) ReorderSpeedDial(ctx context.Context, id string, position int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id FROM speed_dials ORDER BY position`)
		if err != nil {
			return fmt.Errorf("querying speed dial order: %w", err)
		}

		var ids []string
		for rows.Next() {
			var dialID string
			if err := rows.Scan(&dialID); err != nil {
				_ = rows.Close()
				return fmt.Errorf("scanning speed dial id: %w", err)
			}
			ids = append(ids, dialID)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return fmt.Errorf("iterating speed dial ids: %w", err)
		}
		_ = rows.Close()

		current := -1
		for i, dialID := range ids {
			if dialID == id {
				current = i
				break
			}
		}
		if current == -1 {
			return ErrNotFound
		}

		if position < 0 {
			position = 0
		}
		if position >= len(ids) {
			position = len(ids) - 1
		}
		if position == current {
			return nil
		}

		ids = append(ids[:current], ids[current+1:]...)
		ids = append(ids[:position], append([]string{id}, ids[position:]...)...)

		now := fmtTime(time.Now())
		for i, dialID := range ids {
			if _, err := tx.ExecContext(ctx,
				`UPDATE speed_dials SET position = ?, updated_at = ? WHERE id = ?`,
				i, now, dialID,
			); err != nil {
				return fmt.Errorf("rewriting speed dial position: %w", err)
			}
		}

		s.logger.Debug("reordered speed dial", "id", id, "position", position)
		return nil
	})
}

// DeleteSpeedDial removes a dial and compacts the remaining positions.
// Returns ErrNotFound if the dial doesn't exist.
func (s *SQLiteStore) DeleteSpeedDial(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var position int
		err := tx.QueryRowContext(ctx,
			`SELECT position FROM speed_dials WHERE id = ?`, id,
		).Scan(&position)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying speed dial: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM speed_dials WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting speed dial: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE speed_dials SET position = position - 1 WHERE position > ?`, position,
		); err != nil {
			return fmt.Errorf("compacting speed dial positions: %w", err)
		}

		s.logger.Info("deleted speed dial", "id", id)
		return nil
	})
}
