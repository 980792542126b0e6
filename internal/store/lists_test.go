// ABOUTME: Tests for ordered list groups
// ABOUTME: Covers dense positions, repositioning shifts, atomic creation, and renames

package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSpecs(n int) []ItemSpec {
	specs := make([]ItemSpec, n)
	for i := range specs {
		specs[i] = ItemSpec{
			Label:   fmt.Sprintf("step %d", i+1),
			Content: fmt.Sprintf("echo %d", i+1),
			Type:    ItemTypeCode,
		}
	}
	return specs
}

// positionsOf fetches the position of each list member keyed by label.
func positionsOf(t *testing.T, s *SQLiteStore, categoryID, group string) map[string]int {
	t.Helper()
	items, err := s.ListItems(context.Background(), categoryID, group)
	require.NoError(t, err)

	positions := make(map[string]int, len(items))
	for _, it := range items {
		positions[it.Label] = it.ListPosition
	}
	return positions
}

// requireDense asserts the group's positions are exactly 1..N.
func requireDense(t *testing.T, s *SQLiteStore, categoryID, group string) {
	t.Helper()
	items, err := s.ListItems(context.Background(), categoryID, group)
	require.NoError(t, err)
	for i, it := range items {
		require.Equal(t, i+1, it.ListPosition,
			"position gap at %q: got %d, want %d", it.Label, it.ListPosition, i+1)
	}
}

func TestCreateList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Playbooks")
	ids, err := store.CreateList(ctx, cat.ID, "deploy", makeSpecs(3))
	require.NoError(t, err)
	require.Len(t, ids, 3)

	items, err := store.ListItems(ctx, cat.ID, "deploy")
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, it := range items {
		assert.Equal(t, i+1, it.ListPosition)
		assert.True(t, it.IsList)
		require.NotNil(t, it.ListGroup)
		assert.Equal(t, "deploy", *it.ListGroup)
	}
}

func TestCreateListEmpty(t *testing.T) {
	store := newTestStore(t)
	cat := createTestCategory(t, store, "Playbooks")

	_, err := store.CreateList(context.Background(), cat.ID, "empty", nil)
	assert.ErrorIs(t, err, ErrEmptyList)
}

func TestCreateListDuplicateName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Playbooks")
	_, err := store.CreateList(ctx, cat.ID, "deploy", makeSpecs(2))
	require.NoError(t, err)

	_, err = store.CreateList(ctx, cat.ID, "deploy", makeSpecs(2))
	assert.ErrorIs(t, err, ErrDuplicateList)

	// The same name in another category is fine.
	other := createTestCategory(t, store, "Elsewhere")
	_, err = store.CreateList(ctx, other.ID, "deploy", makeSpecs(2))
	assert.NoError(t, err)
}

func TestCreateListAtomicity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Playbooks")
	specs := makeSpecs(5)
	specs[2].Type = "bogus"

	_, err := store.CreateList(ctx, cat.ID, "broken", specs)
	require.Error(t, err)

	// A failure mid-creation must leave no partial rows behind.
	var count int
	require.NoError(t, store.db.QueryRow(
		`SELECT COUNT(*) FROM items WHERE category_id = ?`, cat.ID,
	).Scan(&count))
	assert.Zero(t, count)
}

func TestReorderListItemMoveEarlier(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Playbooks")
	ids, err := store.CreateList(ctx, cat.ID, "deploy", makeSpecs(5))
	require.NoError(t, err)

	// Move position 4 to position 1: rows 1..3 shift down one slot.
	require.NoError(t, store.ReorderListItem(ctx, ids[3], 1))

	positions := positionsOf(t, store, cat.ID, "deploy")
	assert.Equal(t, map[string]int{
		"step 4": 1,
		"step 1": 2,
		"step 2": 3,
		"step 3": 4,
		"step 5": 5,
	}, positions)
	requireDense(t, store, cat.ID, "deploy")
}

func TestReorderListItemMoveLater(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Playbooks")
	ids, err := store.CreateList(ctx, cat.ID, "deploy", makeSpecs(5))
	require.NoError(t, err)

	// Move position 2 to position 4: rows 3..4 shift up one slot.
	require.NoError(t, store.ReorderListItem(ctx, ids[1], 4))

	positions := positionsOf(t, store, cat.ID, "deploy")
	assert.Equal(t, map[string]int{
		"step 1": 1,
		"step 3": 2,
		"step 4": 3,
		"step 2": 4,
		"step 5": 5,
	}, positions)
	requireDense(t, store, cat.ID, "deploy")
}

func TestReorderListItemNoOp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Playbooks")
	ids, err := store.CreateList(ctx, cat.ID, "deploy", makeSpecs(3))
	require.NoError(t, err)

	require.NoError(t, store.ReorderListItem(ctx, ids[1], 2))
	requireDense(t, store, cat.ID, "deploy")
}

func TestReorderListItemErrors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Playbooks")
	ids, err := store.CreateList(ctx, cat.ID, "deploy", makeSpecs(3))
	require.NoError(t, err)

	plain := &Item{CategoryID: cat.ID, Label: "loner", Content: "x", IsActive: true}
	require.NoError(t, store.CreateItem(ctx, plain))

	assert.ErrorIs(t, store.ReorderListItem(ctx, "missing", 1), ErrNotFound)
	assert.ErrorIs(t, store.ReorderListItem(ctx, plain.ID, 1), ErrNotListItem)
	assert.ErrorIs(t, store.ReorderListItem(ctx, ids[0], 0), ErrInvalidPosition)
	assert.ErrorIs(t, store.ReorderListItem(ctx, ids[0], 4), ErrInvalidPosition)

	// Failed moves leave the order untouched.
	requireDense(t, store, cat.ID, "deploy")
}

func TestUpdateListRename(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Playbooks")
	ids, err := store.CreateList(ctx, cat.ID, "deploy", makeSpecs(3))
	require.NoError(t, err)

	require.NoError(t, store.UpdateList(ctx, cat.ID, "deploy", "release", nil))

	items, err := store.ListItems(ctx, cat.ID, "release")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, ids[0], items[0].ID, "rename must keep item identities")

	old, err := store.ListItems(ctx, cat.ID, "deploy")
	require.NoError(t, err)
	assert.Empty(t, old)
}

func TestUpdateListRenameToSelf(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Playbooks")
	_, err := store.CreateList(ctx, cat.ID, "deploy", makeSpecs(2))
	require.NoError(t, err)

	assert.NoError(t, store.UpdateList(ctx, cat.ID, "deploy", "deploy", nil))
}

func TestUpdateListRenameCollision(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Playbooks")
	_, err := store.CreateList(ctx, cat.ID, "deploy", makeSpecs(2))
	require.NoError(t, err)
	_, err = store.CreateList(ctx, cat.ID, "rollback", makeSpecs(2))
	require.NoError(t, err)

	assert.ErrorIs(t, store.UpdateList(ctx, cat.ID, "deploy", "rollback", nil), ErrDuplicateList)
}

func TestUpdateListReplace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Playbooks")
	oldIDs, err := store.CreateList(ctx, cat.ID, "deploy", makeSpecs(3))
	require.NoError(t, err)

	require.NoError(t, store.UpdateList(ctx, cat.ID, "deploy", "deploy", makeSpecs(2)))

	items, err := store.ListItems(ctx, cat.ID, "deploy")
	require.NoError(t, err)
	require.Len(t, items, 2)
	// Replace discards the old rows wholesale.
	for _, it := range items {
		assert.NotContains(t, oldIDs, it.ID)
	}
	requireDense(t, store, cat.ID, "deploy")
}

func TestUpdateListMissing(t *testing.T) {
	store := newTestStore(t)
	cat := createTestCategory(t, store, "Playbooks")

	err := store.UpdateList(context.Background(), cat.ID, "ghost", "new", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Playbooks")
	_, err := store.CreateList(ctx, cat.ID, "deploy", makeSpecs(3))
	require.NoError(t, err)

	plain := &Item{CategoryID: cat.ID, Label: "loner", Content: "x", IsActive: true}
	require.NoError(t, store.CreateItem(ctx, plain))

	require.NoError(t, store.DeleteList(ctx, cat.ID, "deploy"))

	items, err := store.ItemsByCategory(ctx, cat.ID)
	require.NoError(t, err)
	require.Len(t, items, 1, "non-list items must survive")
	assert.Equal(t, plain.ID, items[0].ID)

	assert.ErrorIs(t, store.DeleteList(ctx, cat.ID, "deploy"), ErrNotFound)
}

func TestListGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Playbooks")
	_, err := store.CreateList(ctx, cat.ID, "deploy", makeSpecs(3))
	require.NoError(t, err)
	_, err = store.CreateList(ctx, cat.ID, "rollback", makeSpecs(2))
	require.NoError(t, err)

	groups, err := store.ListGroups(ctx, cat.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	byName := make(map[string]*ListSummary)
	for _, g := range groups {
		byName[g.ListGroup] = g
	}
	require.Contains(t, byName, "deploy")
	assert.Equal(t, 3, byName["deploy"].ItemCount)
	assert.Equal(t, "step 1", byName["deploy"].FirstLabel)
	assert.Equal(t, 2, byName["rollback"].ItemCount)
}

func TestIsListNameUnique(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Playbooks")
	_, err := store.CreateList(ctx, cat.ID, "deploy", makeSpecs(2))
	require.NoError(t, err)

	unique, err := store.IsListNameUnique(ctx, cat.ID, "deploy", "")
	require.NoError(t, err)
	assert.False(t, unique)

	unique, err = store.IsListNameUnique(ctx, cat.ID, "fresh", "")
	require.NoError(t, err)
	assert.True(t, unique)

	// A rename may keep its own name.
	unique, err = store.IsListNameUnique(ctx, cat.ID, "deploy", "deploy")
	require.NoError(t, err)
	assert.True(t, unique)
}
