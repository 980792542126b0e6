// ABOUTME: Category CRUD and manual ordering for the sidebar
// ABOUTME: Bulk reorder rewrites every order_index in a single transaction

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Ensure SQLiteStore implements CategoryStore.
var _ CategoryStore = (*SQLiteStore)(nil)

// CreateCategory creates a new category. If OrderIndex is zero or
// negative, the next free index is assigned.
func (s *SQLiteStore) CreateCategory(ctx context.Context, c *Category) error {
	if c.ID == "" {
		c.ID = newID()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}

	if c.OrderIndex <= 0 {
		var maxOrder sql.NullInt64
		err := s.db.QueryRowContext(ctx, `SELECT MAX(order_index) FROM categories`).Scan(&maxOrder)
		if err != nil {
			return fmt.Errorf("querying max order_index: %w", err)
		}
		c.OrderIndex = int(maxOrder.Int64) + 1
	}

	query := `
		INSERT INTO categories (id, name, icon, order_index, is_active, is_predefined, color, badge, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		c.ID,
		c.Name,
		nullString(c.Icon),
		c.OrderIndex,
		c.IsActive,
		c.IsPredefined,
		nullString(c.Color),
		nullString(c.Badge),
		fmtTime(c.CreatedAt),
		fmtTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting category: %w", err)
	}

	s.logger.Info("created category", "id", c.ID, "name", c.Name, "order_index", c.OrderIndex)
	return nil
}

const categoryColumns = `id, name, icon, order_index, is_active, is_predefined, color, badge,
	access_count, last_accessed, created_at, updated_at`

// GetCategory retrieves a category by ID.
// Returns ErrNotFound if the category doesn't exist.
func (s *SQLiteStore) GetCategory(ctx context.Context, id string) (*Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)

	c, err := s.scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying category: %w", err)
	}
	return c, nil
}

// ListCategories returns categories ordered by order_index.
// Inactive categories are included only when includeInactive is set.
func (s *SQLiteStore) ListCategories(ctx context.Context, includeInactive bool) ([]*Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE is_active = 1 OR ? = 1 ORDER BY order_index`

	rows, err := s.db.QueryContext(ctx, query, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []*Category
	for rows.Next() {
		c, err := s.scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category row: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category rows: %w", err)
	}
	return categories, nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanCategory(row scanner) (*Category, error) {
	var c Category
	var icon, color, badge, lastAccessed sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&c.ID,
		&c.Name,
		&icon,
		&c.OrderIndex,
		&c.IsActive,
		&c.IsPredefined,
		&color,
		&badge,
		&c.AccessCount,
		&lastAccessed,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Icon = icon.String
	c.Color = color.String
	c.Badge = badge.String
	c.LastAccessed = s.parseNullTime(lastAccessed, "last_accessed")
	c.CreatedAt = s.parseTime(createdAt, "created_at")
	c.UpdatedAt = s.parseTime(updatedAt, "updated_at")
	return &c, nil
}

// UpdateCategory applies the non-nil fields of patch.
// Returns ErrNotFound if the category doesn't exist.
func (s *SQLiteStore) UpdateCategory(ctx context.Context, id string, patch CategoryPatch) error {
	var sets []string
	var args []any

	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Icon != nil {
		sets = append(sets, "icon = ?")
		args = append(args, nullString(*patch.Icon))
	}
	if patch.OrderIndex != nil {
		sets = append(sets, "order_index = ?")
		args = append(args, *patch.OrderIndex)
	}
	if patch.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *patch.IsActive)
	}
	if patch.Color != nil {
		sets = append(sets, "color = ?")
		args = append(args, nullString(*patch.Color))
	}
	if patch.Badge != nil {
		sets = append(sets, "badge = ?")
		args = append(args, nullString(*patch.Badge))
	}

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, fmtTime(time.Now()), id)

	query := "UPDATE categories SET " + joinSets(sets) + " WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated category", "id", id)
	return nil
}

// DeleteCategory removes a category. Items and pinned panels that
// reference it are removed by the ON DELETE CASCADE declarations.
// Returns ErrNotFound if the category doesn't exist.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("deleted category", "id", id)
	return nil
}

// ReorderCategories rewrites every order_index from the full ordered id
// sequence in one transaction. Feeding it a stale snapshot still leaves
// a consistent total order.
func (s *SQLiteStore) ReorderCategories(ctx context.Context, ids []string) error {
	now := fmtTime(time.Now())

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for i, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`UPDATE categories SET order_index = ?, updated_at = ? WHERE id = ?`,
				i, now, id,
			); err != nil {
				return fmt.Errorf("reordering category %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("reordered categories", "count", len(ids))
	return nil
}

// TouchCategory bumps access_count and last_accessed.
func (s *SQLiteStore) TouchCategory(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE categories
		SET access_count = access_count + 1, last_accessed = ?
		WHERE id = ?
	`, fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("touching category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("touched category", "id", id)
	return nil
}
