// ABOUTME: Pinned panel persistence with position, size, and open counters
// ABOUTME: A category may have many saved panels; lookups resolve the active one

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Ensure SQLiteStore implements PanelStore.
var _ PanelStore = (*SQLiteStore)(nil)

const (
	defaultPanelWidth  = 350
	defaultPanelHeight = 500
)

// SavePanel persists a new pinned panel. Many panels may reference the
// same category; each save is its own row. The panel's ID is assigned
// in place.
func (s *SQLiteStore) SavePanel(ctx context.Context, p *PinnedPanel) error {
	if p.ID == "" {
		p.ID = newID()
	}
	if p.Width <= 0 {
		p.Width = defaultPanelWidth
	}
	if p.Height <= 0 {
		p.Height = defaultPanelHeight
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.LastOpened.IsZero() {
		p.LastOpened = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pinned_panels (
			id, category_id, custom_name, custom_color, x_position, y_position,
			width, height, is_minimized, filter_config, keyboard_shortcut,
			created_at, last_opened, open_count, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.CategoryID, p.CustomName, p.CustomColor, p.X, p.Y,
		p.Width, p.Height, p.IsMinimized, p.FilterConfig, p.KeyboardShortcut,
		fmtTime(p.CreatedAt), fmtTime(p.LastOpened), p.OpenCount, p.IsActive,
	)
	if err != nil {
		return fmt.Errorf("inserting panel: %w", err)
	}

	s.logger.Info("saved panel", "id", p.ID, "category_id", p.CategoryID)
	return nil
}

const panelColumns = `p.id, p.category_id, p.custom_name, p.custom_color,
	p.x_position, p.y_position, p.width, p.height, p.is_minimized,
	p.filter_config, p.keyboard_shortcut, p.created_at, p.last_opened,
	p.open_count, p.is_active, c.name, c.icon`

func (s *SQLiteStore) scanPanel(row scanner) (*PinnedPanel, error) {
	var p PinnedPanel
	var customName, customColor, filterConfig, shortcut sql.NullString
	var catName, catIcon sql.NullString
	var createdAt, lastOpened string

	err := row.Scan(
		&p.ID,
		&p.CategoryID,
		&customName,
		&customColor,
		&p.X,
		&p.Y,
		&p.Width,
		&p.Height,
		&p.IsMinimized,
		&filterConfig,
		&shortcut,
		&createdAt,
		&lastOpened,
		&p.OpenCount,
		&p.IsActive,
		&catName,
		&catIcon,
	)
	if err != nil {
		return nil, err
	}

	if customName.Valid {
		p.CustomName = &customName.String
	}
	if customColor.Valid {
		p.CustomColor = &customColor.String
	}
	if filterConfig.Valid {
		p.FilterConfig = &filterConfig.String
	}
	if shortcut.Valid {
		p.KeyboardShortcut = &shortcut.String
	}
	p.CreatedAt = s.parseTime(createdAt, "created_at")
	p.LastOpened = s.parseTime(lastOpened, "last_opened")
	p.CategoryName = catName.String
	p.CategoryIcon = catIcon.String
	return &p, nil
}

// GetPanel retrieves a panel by ID.
// Returns ErrNotFound if the panel doesn't exist.
func (s *SQLiteStore) GetPanel(ctx context.Context, id string) (*PinnedPanel, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+panelColumns+`
		FROM pinned_panels p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = ?
	`, id)

	p, err := s.scanPanel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying panel: %w", err)
	}
	return p, nil
}

// Panels returns saved panels, optionally only the active ones.
func (s *SQLiteStore) Panels(ctx context.Context, activeOnly bool) ([]*PinnedPanel, error) {
	query := `
		SELECT ` + panelColumns + `
		FROM pinned_panels p
		JOIN categories c ON c.id = p.category_id
		WHERE p.is_active = 1 OR ? = 0
		ORDER BY p.last_opened DESC
	`
	return s.queryPanels(ctx, query, activeOnly)
}

// PanelByCategory returns an active saved panel of one category.
// Inactive panels are ignored.
// Returns ErrNotFound if the category has no active panel.
func (s *SQLiteStore) PanelByCategory(ctx context.Context, categoryID string) (*PinnedPanel, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+panelColumns+`
		FROM pinned_panels p
		JOIN categories c ON c.id = p.category_id
		WHERE p.category_id = ? AND p.is_active = 1
		LIMIT 1
	`, categoryID)

	p, err := s.scanPanel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying panel: %w", err)
	}
	return p, nil
}

// RecentPanels returns the most recently opened panels.
func (s *SQLiteStore) RecentPanels(ctx context.Context, limit int) ([]*PinnedPanel, error) {
	if limit <= 0 {
		limit = 5
	}
	query := `
		SELECT ` + panelColumns + `
		FROM pinned_panels p
		JOIN categories c ON c.id = p.category_id
		ORDER BY p.last_opened DESC
		LIMIT ?
	`
	return s.queryPanels(ctx, query, limit)
}

func (s *SQLiteStore) queryPanels(ctx context.Context, query string, args ...any) ([]*PinnedPanel, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying panels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var panels []*PinnedPanel
	for rows.Next() {
		p, err := s.scanPanel(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning panel row: %w", err)
		}
		panels = append(panels, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating panel rows: %w", err)
	}
	return panels, nil
}

// UpdatePanel applies the non-nil fields of patch.
// Returns ErrNotFound if the panel doesn't exist.
func (s *SQLiteStore) UpdatePanel(ctx context.Context, id string, patch PanelPatch) error {
	var sets []string
	var args []any

	if patch.X != nil {
		sets = append(sets, "x_position = ?")
		args = append(args, *patch.X)
	}
	if patch.Y != nil {
		sets = append(sets, "y_position = ?")
		args = append(args, *patch.Y)
	}
	if patch.Width != nil {
		sets = append(sets, "width = ?")
		args = append(args, *patch.Width)
	}
	if patch.Height != nil {
		sets = append(sets, "height = ?")
		args = append(args, *patch.Height)
	}
	if patch.IsMinimized != nil {
		sets = append(sets, "is_minimized = ?")
		args = append(args, *patch.IsMinimized)
	}
	if patch.CustomName != nil {
		sets = append(sets, "custom_name = ?")
		args = append(args, nullString(*patch.CustomName))
	}
	if patch.CustomColor != nil {
		sets = append(sets, "custom_color = ?")
		args = append(args, nullString(*patch.CustomColor))
	}
	if patch.FilterConfig != nil {
		sets = append(sets, "filter_config = ?")
		args = append(args, nullString(*patch.FilterConfig))
	}
	if patch.KeyboardShortcut != nil {
		sets = append(sets, "keyboard_shortcut = ?")
		args = append(args, nullString(*patch.KeyboardShortcut))
	}
	if patch.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *patch.IsActive)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := "UPDATE pinned_panels SET " + joinSets(sets) + " WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating panel: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated panel", "id", id)
	return nil
}

// TouchPanel bumps open_count and last_opened.
func (s *SQLiteStore) TouchPanel(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE pinned_panels
		SET open_count = open_count + 1, last_opened = ?
		WHERE id = ?
	`, fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("touching panel: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("touched panel", "id", id)
	return nil
}

// DeletePanel removes a saved panel.
// Returns ErrNotFound if the panel doesn't exist.
func (s *SQLiteStore) DeletePanel(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM pinned_panels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting panel: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("deleted panel", "id", id)
	return nil
}

// DeactivateAllPanels marks every panel inactive. Used on shutdown so
// a fresh start doesn't reopen stale panels.
func (s *SQLiteStore) DeactivateAllPanels(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE pinned_panels SET is_active = 0`); err != nil {
		return fmt.Errorf("deactivating panels: %w", err)
	}
	s.logger.Info("deactivated all panels")
	return nil
}
