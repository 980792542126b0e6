// ABOUTME: Item CRUD with transparent encryption of sensitive content
// ABOUTME: Callers always see plaintext; ciphertext never leaves this package

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smartdesarrollador/widg-sid-v9/internal/crypt"
)

// Ensure SQLiteStore implements ItemStore.
var _ ItemStore = (*SQLiteStore)(nil)

// validItemType reports whether t is one of the accepted item types.
func validItemType(t string) bool {
	switch t {
	case ItemTypeText, ItemTypeURL, ItemTypeCode, ItemTypePath:
		return true
	}
	return false
}

// encodeTags serializes tags as a JSON array. Writes are always JSON;
// decodeTags stays tolerant of legacy comma-separated rows.
func encodeTags(tags []string) (any, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encoding tags: %w", err)
	}
	return string(data), nil
}

// decodeTags parses a stored tags value. JSON arrays are the canonical
// encoding; anything else is treated as a comma-separated legacy value.
func decodeTags(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}

	var tags []string
	if err := json.Unmarshal([]byte(raw.String), &tags); err == nil {
		return tags
	}

	for _, part := range strings.Split(raw.String, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

// sealContent encrypts plaintext for storage. Content already carrying
// the ciphertext envelope is stored as-is so re-saving a fetched row
// can never double-encrypt.
func (s *SQLiteStore) sealContent(content string) (string, error) {
	if s.cipher == nil {
		return content, nil
	}
	if crypt.IsEncrypted(content) {
		return content, nil
	}
	sealed, err := s.cipher.Encrypt(content)
	if err != nil {
		return "", fmt.Errorf("encrypting content: %w", err)
	}
	return sealed, nil
}

// openContent decrypts stored ciphertext for a sensitive item. Rows
// that fail to decrypt surface the placeholder instead of an error so
// one undecryptable item never breaks a listing.
func (s *SQLiteStore) openContent(id, content string) string {
	if s.cipher == nil || !crypt.IsEncrypted(content) {
		return content
	}
	plain, err := s.cipher.Decrypt(content)
	if err != nil {
		s.logger.Warn("failed to decrypt item content", "id", id, "error", err)
		return crypt.DecryptFailedPlaceholder
	}
	return plain
}

// insertItem writes one item row through q, which may be the database
// or an open transaction. It assigns the ID and timestamps in place.
func (s *SQLiteStore) insertItem(ctx context.Context, q querier, item *Item) error {
	if item.Type == "" {
		item.Type = ItemTypeText
	}
	if !validItemType(item.Type) {
		return fmt.Errorf("invalid item type %q", item.Type)
	}
	if item.ID == "" {
		item.ID = newID()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = now
	}

	content := item.Content
	if item.IsSensitive {
		sealed, err := s.sealContent(content)
		if err != nil {
			return err
		}
		content = sealed
	}

	tags, err := encodeTags(item.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO items (
			id, category_id, label, content, type, icon,
			is_sensitive, is_favorite, favorite_order, use_count,
			tags, description, working_dir, color, badge,
			is_active, is_archived, created_at, updated_at, last_used,
			is_list, list_group, orden_lista
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = q.ExecContext(ctx, query,
		item.ID,
		item.CategoryID,
		item.Label,
		content,
		item.Type,
		nullString(item.Icon),
		item.IsSensitive,
		item.IsFavorite,
		item.FavoriteOrder,
		item.UseCount,
		tags,
		nullString(item.Description),
		nullString(item.WorkingDir),
		nullString(item.Color),
		nullString(item.Badge),
		item.IsActive,
		item.IsArchived,
		fmtTime(item.CreatedAt),
		fmtTime(item.UpdatedAt),
		nullTime(item.LastUsed),
		item.IsList,
		item.ListGroup,
		item.ListPosition,
	)
	if err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}

// CreateItem creates a plain (non-list) item. Sensitive content is
// encrypted before it touches disk.
func (s *SQLiteStore) CreateItem(ctx context.Context, item *Item) error {
	item.IsList = false
	item.ListGroup = nil
	item.ListPosition = 0

	if err := s.insertItem(ctx, s.db, item); err != nil {
		return err
	}

	s.logger.Info("created item", "id", item.ID, "category_id", item.CategoryID, "type", item.Type)
	return nil
}

const itemColumns = `i.id, i.category_id, i.label, i.content, i.type, i.icon,
	i.is_sensitive, i.is_favorite, i.favorite_order, i.use_count,
	i.tags, i.description, i.working_dir, i.color, i.badge,
	i.is_active, i.is_archived, i.created_at, i.updated_at, i.last_used,
	i.is_list, i.list_group, i.orden_lista`

func (s *SQLiteStore) scanItem(row scanner, joined bool) (*Item, error) {
	var it Item
	var icon, tags, description, workingDir, color, badge sql.NullString
	var listGroup, lastUsed sql.NullString
	var createdAt, updatedAt string

	dest := []any{
		&it.ID,
		&it.CategoryID,
		&it.Label,
		&it.Content,
		&it.Type,
		&icon,
		&it.IsSensitive,
		&it.IsFavorite,
		&it.FavoriteOrder,
		&it.UseCount,
		&tags,
		&description,
		&workingDir,
		&color,
		&badge,
		&it.IsActive,
		&it.IsArchived,
		&createdAt,
		&updatedAt,
		&lastUsed,
		&it.IsList,
		&listGroup,
		&it.ListPosition,
	}

	var catName, catIcon, catColor sql.NullString
	if joined {
		dest = append(dest, &catName, &catIcon, &catColor)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	it.Icon = icon.String
	it.Tags = decodeTags(tags)
	it.Description = description.String
	it.WorkingDir = workingDir.String
	it.Color = color.String
	it.Badge = badge.String
	it.CreatedAt = s.parseTime(createdAt, "created_at")
	it.UpdatedAt = s.parseTime(updatedAt, "updated_at")
	it.LastUsed = s.parseNullTime(lastUsed, "last_used")
	if listGroup.Valid {
		it.ListGroup = &listGroup.String
	}
	if joined {
		it.CategoryName = catName.String
		it.CategoryIcon = catIcon.String
		it.CategoryColor = catColor.String
	}

	if it.IsSensitive {
		it.Content = s.openContent(it.ID, it.Content)
	}
	return &it, nil
}

// GetItem retrieves an item by ID, decrypting sensitive content.
// Returns ErrNotFound if the item doesn't exist.
func (s *SQLiteStore) GetItem(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items i WHERE i.id = ?`, id)

	it, err := s.scanItem(row, false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying item: %w", err)
	}
	return it, nil
}

// ItemsByCategory returns the active items of one category. List member
// rows are included; list groups come first in their internal order.
func (s *SQLiteStore) ItemsByCategory(ctx context.Context, categoryID string) ([]*Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items i
		WHERE i.category_id = ? AND i.is_active = 1
		ORDER BY i.is_list DESC, i.list_group, i.orden_lista, i.created_at
	`
	return s.queryItems(ctx, query, false, categoryID)
}

// AllItems returns items across every category, joined with the owning
// category's display fields.
func (s *SQLiteStore) AllItems(ctx context.Context, includeInactive bool) ([]*Item, error) {
	query := `
		SELECT ` + itemColumns + `, c.name, c.icon, c.color
		FROM items i
		JOIN categories c ON c.id = i.category_id
		WHERE i.is_active = 1 OR ? = 1
		ORDER BY c.order_index, i.created_at
	`
	return s.queryItems(ctx, query, true, includeInactive)
}

// SearchItems matches query against label, content, description, and
// tags. Encrypted content never matches, which keeps sensitive values
// out of search results.
func (s *SQLiteStore) SearchItems(ctx context.Context, query string, limit int) ([]*Item, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + query + "%"

	sqlQuery := `
		SELECT ` + itemColumns + `, c.name, c.icon, c.color
		FROM items i
		JOIN categories c ON c.id = i.category_id
		WHERE i.is_active = 1
		  AND (i.label LIKE ? OR i.content LIKE ? OR i.description LIKE ? OR i.tags LIKE ?)
		ORDER BY i.use_count DESC, i.label
		LIMIT ?
	`
	return s.queryItems(ctx, sqlQuery, true, pattern, pattern, pattern, pattern, limit)
}

func (s *SQLiteStore) queryItems(ctx context.Context, query string, joined bool, args ...any) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*Item
	for rows.Next() {
		it, err := s.scanItem(rows, joined)
		if err != nil {
			return nil, fmt.Errorf("scanning item row: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating item rows: %w", err)
	}
	return items, nil
}

// UpdateItem applies the non-nil fields of patch. Flipping IsSensitive
// re-seals or opens the stored content so the on-disk form always
// matches the flag. Returns ErrNotFound if the item doesn't exist.
func (s *SQLiteStore) UpdateItem(ctx context.Context, id string, patch ItemPatch) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var stored string
		var sensitive bool
		err := tx.QueryRowContext(ctx,
			`SELECT content, is_sensitive FROM items WHERE id = ?`, id,
		).Scan(&stored, &sensitive)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying item: %w", err)
		}

		newSensitive := sensitive
		if patch.IsSensitive != nil {
			newSensitive = *patch.IsSensitive
		}

		// Resolve what the content column should hold after this update.
		var newContent *string
		switch {
		case patch.Content != nil:
			content := *patch.Content
			if newSensitive {
				sealed, err := s.sealContent(content)
				if err != nil {
					return err
				}
				content = sealed
			}
			newContent = &content
		case newSensitive && !sensitive:
			sealed, err := s.sealContent(stored)
			if err != nil {
				return err
			}
			newContent = &sealed
		case !newSensitive && sensitive:
			if s.cipher != nil && crypt.IsEncrypted(stored) {
				plain, err := s.cipher.Decrypt(stored)
				if err != nil {
					return fmt.Errorf("unsealing content for item %s: %w", id, err)
				}
				newContent = &plain
			}
		}

		var sets []string
		var args []any

		if patch.Label != nil {
			sets = append(sets, "label = ?")
			args = append(args, *patch.Label)
		}
		if newContent != nil {
			sets = append(sets, "content = ?")
			args = append(args, *newContent)
		}
		if patch.Type != nil {
			if !validItemType(*patch.Type) {
				return fmt.Errorf("invalid item type %q", *patch.Type)
			}
			sets = append(sets, "type = ?")
			args = append(args, *patch.Type)
		}
		if patch.Icon != nil {
			sets = append(sets, "icon = ?")
			args = append(args, nullString(*patch.Icon))
		}
		if patch.IsSensitive != nil {
			sets = append(sets, "is_sensitive = ?")
			args = append(args, *patch.IsSensitive)
		}
		if patch.IsFavorite != nil {
			sets = append(sets, "is_favorite = ?")
			args = append(args, *patch.IsFavorite)
		}
		if patch.FavoriteOrder != nil {
			sets = append(sets, "favorite_order = ?")
			args = append(args, *patch.FavoriteOrder)
		}
		if patch.Tags != nil {
			tags, err := encodeTags(*patch.Tags)
			if err != nil {
				return err
			}
			sets = append(sets, "tags = ?")
			args = append(args, tags)
		}
		if patch.Description != nil {
			sets = append(sets, "description = ?")
			args = append(args, nullString(*patch.Description))
		}
		if patch.WorkingDir != nil {
			sets = append(sets, "working_dir = ?")
			args = append(args, nullString(*patch.WorkingDir))
		}
		if patch.Color != nil {
			sets = append(sets, "color = ?")
			args = append(args, nullString(*patch.Color))
		}
		if patch.Badge != nil {
			sets = append(sets, "badge = ?")
			args = append(args, nullString(*patch.Badge))
		}
		if patch.IsActive != nil {
			sets = append(sets, "is_active = ?")
			args = append(args, *patch.IsActive)
		}
		if patch.IsArchived != nil {
			sets = append(sets, "is_archived = ?")
			args = append(args, *patch.IsArchived)
		}

		if len(sets) == 0 {
			return nil
		}

		sets = append(sets, "updated_at = ?")
		args = append(args, fmtTime(time.Now()), id)

		query := "UPDATE items SET " + joinSets(sets) + " WHERE id = ?"
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("updating item: %w", err)
		}

		s.logger.Debug("updated item", "id", id)
		return nil
	})
}

// DeleteItem removes an item. Clipboard history rows that reference it
// are kept with the reference cleared.
// Returns ErrNotFound if the item doesn't exist.
func (s *SQLiteStore) DeleteItem(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("deleted item", "id", id)
	return nil
}

// TouchItem bumps use_count and last_used.
func (s *SQLiteStore) TouchItem(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET use_count = use_count + 1, last_used = ?
		WHERE id = ?
	`, fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("touching item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("touched item", "id", id)
	return nil
}
