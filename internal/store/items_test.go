// ABOUTME: Tests for item CRUD and transparent encryption
// ABOUTME: Covers ciphertext at rest, sensitivity flips, tag decoding, and search

package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdesarrollador/widg-sid-v9/internal/crypt"
)

func TestCreateAndGetItem(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Commands")
	item := &Item{
		CategoryID:  cat.ID,
		Label:       "list files",
		Content:     "ls -la",
		Type:        ItemTypeCode,
		Tags:        []string{"shell", "files"},
		Description: "long listing",
		WorkingDir:  "/tmp",
		IsActive:    true,
	}
	require.NoError(t, store.CreateItem(ctx, item))
	require.NotEmpty(t, item.ID)

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "list files", got.Label)
	assert.Equal(t, "ls -la", got.Content)
	assert.Equal(t, ItemTypeCode, got.Type)
	assert.Equal(t, []string{"shell", "files"}, got.Tags)
	assert.Equal(t, "/tmp", got.WorkingDir)
	assert.False(t, got.IsList)
}

func TestCreateItemDefaultsType(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Misc")
	item := &Item{CategoryID: cat.ID, Label: "note", Content: "hello", IsActive: true}
	require.NoError(t, store.CreateItem(ctx, item))
	assert.Equal(t, ItemTypeText, item.Type)
}

func TestCreateItemRejectsInvalidType(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Misc")
	item := &Item{CategoryID: cat.ID, Label: "bad", Content: "x", Type: "binary"}
	assert.Error(t, store.CreateItem(ctx, item))
}

func TestSensitiveContentEncryptedAtRest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Secrets")
	item := &Item{
		CategoryID:  cat.ID,
		Label:       "api key",
		Content:     "sk-super-secret",
		IsSensitive: true,
		IsActive:    true,
	}
	require.NoError(t, store.CreateItem(ctx, item))

	// The raw column must hold ciphertext, never the plaintext.
	var raw string
	require.NoError(t, store.db.QueryRow(
		`SELECT content FROM items WHERE id = ?`, item.ID,
	).Scan(&raw))
	assert.True(t, crypt.IsEncrypted(raw), "stored content is not encrypted: %q", raw)
	assert.NotContains(t, raw, "sk-super-secret")

	// Reads hand back plaintext.
	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "sk-super-secret", got.Content)
}

func TestUpdateItemNeverDoubleEncrypts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Secrets")
	item := &Item{CategoryID: cat.ID, Label: "token", Content: "t0ken", IsSensitive: true, IsActive: true}
	require.NoError(t, store.CreateItem(ctx, item))

	// Feed the fetched (plaintext) row back through an update twice.
	for i := 0; i < 2; i++ {
		got, err := store.GetItem(ctx, item.ID)
		require.NoError(t, err)
		require.NoError(t, store.UpdateItem(ctx, item.ID, ItemPatch{Content: &got.Content}))
	}

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "t0ken", got.Content)
}

func TestUpdateItemSensitivityFlip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Secrets")
	item := &Item{CategoryID: cat.ID, Label: "pw", Content: "hunter2", IsActive: true}
	require.NoError(t, store.CreateItem(ctx, item))

	// Flip to sensitive: the stored plaintext gets sealed.
	require.NoError(t, store.UpdateItem(ctx, item.ID, ItemPatch{IsSensitive: boolPtr(true)}))

	var raw string
	require.NoError(t, store.db.QueryRow(`SELECT content FROM items WHERE id = ?`, item.ID).Scan(&raw))
	assert.True(t, crypt.IsEncrypted(raw))

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got.Content)

	// Flip back: the column returns to plaintext.
	require.NoError(t, store.UpdateItem(ctx, item.ID, ItemPatch{IsSensitive: boolPtr(false)}))
	require.NoError(t, store.db.QueryRow(`SELECT content FROM items WHERE id = ?`, item.ID).Scan(&raw))
	assert.Equal(t, "hunter2", raw)
}

func TestGetItemDecryptFailurePlaceholder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Secrets")
	item := &Item{CategoryID: cat.ID, Label: "broken", Content: "secret", IsSensitive: true, IsActive: true}
	require.NoError(t, store.CreateItem(ctx, item))

	// Corrupt the ciphertext behind the store's back.
	_, err := store.db.Exec(
		`UPDATE items SET content = ? WHERE id = ?`,
		"gcm1:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", item.ID)
	require.NoError(t, err)

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err, "one bad row must not fail the read")
	assert.Equal(t, crypt.DecryptFailedPlaceholder, got.Content)
}

func TestDecodeTagsLegacyCommaFormat(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Legacy")
	item := &Item{CategoryID: cat.ID, Label: "old row", Content: "x", IsActive: true}
	require.NoError(t, store.CreateItem(ctx, item))

	// Rows written before the JSON encoding used comma separation.
	_, err := store.db.Exec(`UPDATE items SET tags = ? WHERE id = ?`, "shell, files ,misc", item.ID)
	require.NoError(t, err)

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"shell", "files", "misc"}, got.Tags)
}

func TestItemsByCategory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Mine")
	other := createTestCategory(t, store, "Other")

	for _, label := range []string{"one", "two"} {
		require.NoError(t, store.CreateItem(ctx, &Item{CategoryID: cat.ID, Label: label, Content: label, IsActive: true}))
	}
	require.NoError(t, store.CreateItem(ctx, &Item{CategoryID: other.ID, Label: "elsewhere", Content: "x", IsActive: true}))

	inactive := &Item{CategoryID: cat.ID, Label: "hidden", Content: "x", IsActive: true}
	require.NoError(t, store.CreateItem(ctx, inactive))
	require.NoError(t, store.UpdateItem(ctx, inactive.ID, ItemPatch{IsActive: boolPtr(false)}))

	items, err := store.ItemsByCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestAllItemsJoinsCategory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Joined")
	require.NoError(t, store.UpdateCategory(ctx, cat.ID, CategoryPatch{Color: strPtr("#00ff00")}))
	require.NoError(t, store.CreateItem(ctx, &Item{CategoryID: cat.ID, Label: "a", Content: "b", IsActive: true}))

	items, err := store.AllItems(ctx, false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Joined", items[0].CategoryName)
	assert.Equal(t, "📁", items[0].CategoryIcon)
	assert.Equal(t, "#00ff00", items[0].CategoryColor)
}

func TestSearchItems(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Search")
	require.NoError(t, store.CreateItem(ctx, &Item{CategoryID: cat.ID, Label: "deploy script", Content: "make deploy", IsActive: true}))
	require.NoError(t, store.CreateItem(ctx, &Item{CategoryID: cat.ID, Label: "notes", Content: "nothing here", Description: "deployment checklist", IsActive: true}))
	require.NoError(t, store.CreateItem(ctx, &Item{CategoryID: cat.ID, Label: "unrelated", Content: "zzz", IsActive: true}))

	results, err := store.SearchItems(ctx, "deploy", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchItemsSkipsEncryptedContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Search")
	require.NoError(t, store.CreateItem(ctx, &Item{
		CategoryID: cat.ID, Label: "vault", Content: "topsecretvalue", IsSensitive: true, IsActive: true,
	}))

	results, err := store.SearchItems(ctx, "topsecretvalue", 10)
	require.NoError(t, err)
	assert.Empty(t, results, "encrypted content must not be searchable")
}

func TestDeleteItemKeepsHistoryRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "History")
	item := &Item{CategoryID: cat.ID, Label: "copied", Content: "payload", IsActive: true}
	require.NoError(t, store.CreateItem(ctx, item))

	_, err := store.AddHistory(ctx, &item.ID, "payload")
	require.NoError(t, err)

	require.NoError(t, store.DeleteItem(ctx, item.ID))

	entries, err := store.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].ItemID, "item reference should be cleared, not the row")
	assert.Equal(t, "payload", entries[0].Content)
}

func TestTouchItem(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Usage")
	item := &Item{CategoryID: cat.ID, Label: "popular", Content: "x", IsActive: true}
	require.NoError(t, store.CreateItem(ctx, item))

	require.NoError(t, store.TouchItem(ctx, item.ID))
	require.NoError(t, store.TouchItem(ctx, item.ID))
	require.NoError(t, store.TouchItem(ctx, item.ID))

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.UseCount)
	assert.NotNil(t, got.LastUsed)
}

func TestUpdateItemLongContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := createTestCategory(t, store, "Big")
	item := &Item{CategoryID: cat.ID, Label: "blob", Content: "small", IsSensitive: true, IsActive: true}
	require.NoError(t, store.CreateItem(ctx, item))

	big := strings.Repeat("x", 10_000)
	require.NoError(t, store.UpdateItem(ctx, item.ID, ItemPatch{Content: &big}))

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, big, got.Content)
}
