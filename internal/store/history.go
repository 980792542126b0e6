// ABOUTME: Bounded clipboard history persistence
// ABOUTME: Every insert trims to the max_history setting inside one transaction

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Ensure SQLiteStore implements HistoryStore.
var _ HistoryStore = (*SQLiteStore)(nil)

// AddHistory records a copied value and trims history to the
// max_history setting. itemID is nil for ad-hoc copies that didn't
// originate from a stored item. Returns the new entry's ID.
func (s *SQLiteStore) AddHistory(ctx context.Context, itemID *string, content string) (string, error) {
	id := newID()
	limit := s.SettingInt(ctx, "max_history", defaultMaxHistory)

	// Fixed-width nanosecond precision keeps rapid consecutive copies
	// ordered under SQLite's lexicographic TEXT comparison.
	copiedAt := time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00")

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO clipboard_history (id, item_id, content, copied_at)
			VALUES (?, ?, ?, ?)
		`, id, itemID, content, copiedAt)
		if err != nil {
			return fmt.Errorf("inserting history entry: %w", err)
		}
		return trimHistoryTx(ctx, tx, limit)
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug("added history entry", "id", id, "limit", limit)
	return id, nil
}

// trimHistoryTx deletes everything but the keepLatest newest entries.
func trimHistoryTx(ctx context.Context, q querier, keepLatest int) error {
	if keepLatest < 0 {
		keepLatest = 0
	}
	_, err := q.ExecContext(ctx, `
		DELETE FROM clipboard_history
		WHERE id NOT IN (
			SELECT id FROM clipboard_history
			ORDER BY copied_at DESC, id DESC
			LIMIT ?
		)
	`, keepLatest)
	if err != nil {
		return fmt.Errorf("trimming history: %w", err)
	}
	return nil
}

// History returns the newest entries first, joined with the
// originating item's label and type when the item still exists.
func (s *SQLiteStore) History(ctx context.Context, limit int) ([]*ClipboardEntry, error) {
	if limit <= 0 {
		limit = s.SettingInt(ctx, "max_history", defaultMaxHistory)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT h.id, h.item_id, h.content, h.copied_at, i.label, i.type
		FROM clipboard_history h
		LEFT JOIN items i ON i.id = h.item_id
		ORDER BY h.copied_at DESC, h.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*ClipboardEntry
	for rows.Next() {
		var e ClipboardEntry
		var itemID, label, itemType sql.NullString
		var copiedAt string
		if err := rows.Scan(&e.ID, &itemID, &e.Content, &copiedAt, &label, &itemType); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		if itemID.Valid {
			e.ItemID = &itemID.String
		}
		e.CopiedAt = s.parseTime(copiedAt, "copied_at")
		e.ItemLabel = label.String
		e.ItemType = itemType.String
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history rows: %w", err)
	}
	return entries, nil
}

// TrimHistory shrinks history to the keepLatest newest entries.
// Used when the max_history setting is lowered.
func (s *SQLiteStore) TrimHistory(ctx context.Context, keepLatest int) error {
	if err := trimHistoryTx(ctx, s.db, keepLatest); err != nil {
		return err
	}
	s.logger.Info("trimmed history", "keep", keepLatest)
	return nil
}

// ClearHistory removes all clipboard history.
func (s *SQLiteStore) ClearHistory(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM clipboard_history`); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	s.logger.Info("cleared history")
	return nil
}
