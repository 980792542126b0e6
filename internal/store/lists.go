// ABOUTME: Named ordered item groups with dense gap-free positions
// ABOUTME: All multi-row moves run inside a transaction so 1..N holds

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Ensure SQLiteStore implements ListStore.
var _ ListStore = (*SQLiteStore)(nil)

// isListNameUnique checks name availability within a category. exclude
// skips one group name, which lets a rename keep its own name.
func (s *SQLiteStore) isListNameUnique(ctx context.Context, q querier, categoryID, name, exclude string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM items
		WHERE category_id = ? AND is_list = 1 AND list_group = ?
	`
	args := []any{categoryID, name}
	if exclude != "" {
		query += ` AND list_group != ?`
		args = append(args, exclude)
	}

	var count int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("checking list name: %w", err)
	}
	return count == 0, nil
}

// IsListNameUnique reports whether name is free within the category.
func (s *SQLiteStore) IsListNameUnique(ctx context.Context, categoryID, name, exclude string) (bool, error) {
	return s.isListNameUnique(ctx, s.db, categoryID, name, exclude)
}

// createListTx inserts the member rows of a list under q at positions
// 1..len(specs). Validation of the name is the caller's job.
func (s *SQLiteStore) createListTx(ctx context.Context, q querier, categoryID, name string, specs []ItemSpec) ([]string, error) {
	ids := make([]string, 0, len(specs))
	group := name
	for i, spec := range specs {
		item := &Item{
			CategoryID:   categoryID,
			Label:        spec.Label,
			Content:      spec.Content,
			Type:         spec.Type,
			Icon:         spec.Icon,
			IsSensitive:  spec.IsSensitive,
			Tags:         spec.Tags,
			Description:  spec.Description,
			WorkingDir:   spec.WorkingDir,
			Color:        spec.Color,
			IsActive:     true,
			IsList:       true,
			ListGroup:    &group,
			ListPosition: i + 1,
		}
		if err := s.insertItem(ctx, q, item); err != nil {
			return nil, fmt.Errorf("inserting list item %d: %w", i+1, err)
		}
		ids = append(ids, item.ID)
	}
	return ids, nil
}

// CreateList creates a named list with the given items at positions
// 1..N. Either every row lands or none do.
// Returns ErrEmptyList for zero specs and ErrDuplicateList when the
// name is taken within the category.
func (s *SQLiteStore) CreateList(ctx context.Context, categoryID, name string, specs []ItemSpec) ([]string, error) {
	if len(specs) == 0 {
		return nil, ErrEmptyList
	}

	var ids []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		unique, err := s.isListNameUnique(ctx, tx, categoryID, name, "")
		if err != nil {
			return err
		}
		if !unique {
			return ErrDuplicateList
		}

		ids, err = s.createListTx(ctx, tx, categoryID, name, specs)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("created list", "category_id", categoryID, "name", name, "items", len(ids))
	return ids, nil
}

// ListItems returns the members of one list in position order.
func (s *SQLiteStore) ListItems(ctx context.Context, categoryID, listGroup string) ([]*Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items i
		WHERE i.category_id = ? AND i.is_list = 1 AND i.list_group = ?
		ORDER BY i.orden_lista
	`
	return s.queryItems(ctx, query, false, categoryID, listGroup)
}

// ListGroups summarizes every list within a category: member count,
// the label at position 1, and usage recency.
func (s *SQLiteStore) ListGroups(ctx context.Context, categoryID string) ([]*ListSummary, error) {
	query := `
		SELECT
			list_group,
			COUNT(*),
			(SELECT label FROM items f
			 WHERE f.category_id = items.category_id AND f.list_group = items.list_group
			   AND f.is_list = 1 AND f.orden_lista = 1),
			MIN(created_at),
			MAX(last_used)
		FROM items
		WHERE category_id = ? AND is_list = 1 AND list_group IS NOT NULL
		GROUP BY list_group
		ORDER BY MIN(created_at)
	`

	rows, err := s.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("querying list groups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var groups []*ListSummary
	for rows.Next() {
		var g ListSummary
		var firstLabel, lastUsed sql.NullString
		var createdAt string
		if err := rows.Scan(&g.ListGroup, &g.ItemCount, &firstLabel, &createdAt, &lastUsed); err != nil {
			return nil, fmt.Errorf("scanning list group row: %w", err)
		}
		g.FirstLabel = firstLabel.String
		g.CreatedAt = s.parseTime(createdAt, "created_at")
		g.LastUsed = s.parseNullTime(lastUsed, "last_used")
		groups = append(groups, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating list group rows: %w", err)
	}
	return groups, nil
}

// ReorderListItem moves one list member to newPosition (1-based) and
// shifts the rows between the old and new slots so positions stay
// dense. Moving to the current position is a no-op.
// Returns ErrNotFound for unknown items, ErrNotListItem for items
// outside any list, and ErrInvalidPosition for targets outside 1..N.
func (s *SQLiteStore) ReorderListItem(ctx context.Context, itemID string, newPosition int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var categoryID string
		var isList bool
		var listGroup sql.NullString
		var oldPosition int

		err := tx.QueryRowContext(ctx, `
			SELECT category_id, is_list, list_group, orden_lista
			FROM items WHERE id = ?
		`, itemID).Scan(&categoryID, &isList, &listGroup, &oldPosition)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying item: %w", err)
		}
		if !isList || !listGroup.Valid {
			return ErrNotListItem
		}

		var size int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM items
			WHERE category_id = ? AND list_group = ? AND is_list = 1
		`, categoryID, listGroup.String).Scan(&size)
		if err != nil {
			return fmt.Errorf("counting list members: %w", err)
		}
		if newPosition < 1 || newPosition > size {
			return fmt.Errorf("%w: %d not in 1..%d", ErrInvalidPosition, newPosition, size)
		}
		if newPosition == oldPosition {
			return nil
		}

		// Shift the rows between the slots, then drop the moved row in.
		if newPosition < oldPosition {
			_, err = tx.ExecContext(ctx, `
				UPDATE items SET orden_lista = orden_lista + 1
				WHERE category_id = ? AND list_group = ? AND is_list = 1
				  AND orden_lista >= ? AND orden_lista < ?
			`, categoryID, listGroup.String, newPosition, oldPosition)
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE items SET orden_lista = orden_lista - 1
				WHERE category_id = ? AND list_group = ? AND is_list = 1
				  AND orden_lista > ? AND orden_lista <= ?
			`, categoryID, listGroup.String, oldPosition, newPosition)
		}
		if err != nil {
			return fmt.Errorf("shifting list positions: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE items SET orden_lista = ?, updated_at = ? WHERE id = ?
		`, newPosition, fmtTime(time.Now()), itemID)
		if err != nil {
			return fmt.Errorf("moving list item: %w", err)
		}

		s.logger.Debug("reordered list item",
			"id", itemID, "list_group", listGroup.String,
			"from", oldPosition, "to", newPosition)
		return nil
	})
}

// UpdateList renames a list and, when specs is non-nil, replaces its
// members wholesale with new rows at positions 1..len(specs). The old
// member rows and their identities are discarded on replace.
// Rename-only calls pass specs == nil.
func (s *SQLiteStore) UpdateList(ctx context.Context, categoryID, oldName, newName string, specs []ItemSpec) error {
	if specs != nil && len(specs) == 0 {
		return ErrEmptyList
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM items
			WHERE category_id = ? AND list_group = ? AND is_list = 1
		`, categoryID, oldName).Scan(&count)
		if err != nil {
			return fmt.Errorf("counting list members: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}

		if newName != oldName {
			unique, err := s.isListNameUnique(ctx, tx, categoryID, newName, oldName)
			if err != nil {
				return err
			}
			if !unique {
				return ErrDuplicateList
			}
		}

		if specs == nil {
			_, err := tx.ExecContext(ctx, `
				UPDATE items SET list_group = ?, updated_at = ?
				WHERE category_id = ? AND list_group = ? AND is_list = 1
			`, newName, fmtTime(time.Now()), categoryID, oldName)
			if err != nil {
				return fmt.Errorf("renaming list: %w", err)
			}
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM items
			WHERE category_id = ? AND list_group = ? AND is_list = 1
		`, categoryID, oldName)
		if err != nil {
			return fmt.Errorf("removing old list members: %w", err)
		}

		_, err = s.createListTx(ctx, tx, categoryID, newName, specs)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("updated list", "category_id", categoryID, "old_name", oldName, "new_name", newName, "replaced", specs != nil)
	return nil
}

// DeleteList removes every member of a list.
// Returns ErrNotFound if no such list exists in the category.
func (s *SQLiteStore) DeleteList(ctx context.Context, categoryID, listGroup string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM items
		WHERE category_id = ? AND list_group = ? AND is_list = 1
	`, categoryID, listGroup)
	if err != nil {
		return fmt.Errorf("deleting list: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("deleted list", "category_id", categoryID, "list_group", listGroup, "items", rowsAffected)
	return nil
}
