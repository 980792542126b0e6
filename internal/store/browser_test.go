// ABOUTME: Tests for bookmarks and speed dials
// ABOUTME: Covers URL dedupe, folder filtering, and position compaction

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddBookmarkDedupesByURL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &Bookmark{Title: "Go", URL: "https://go.dev"}
	require.NoError(t, store.AddBookmark(ctx, first))
	require.NotEmpty(t, first.ID)

	dupe := &Bookmark{Title: "Go again", URL: "https://go.dev"}
	require.NoError(t, store.AddBookmark(ctx, dupe))
	assert.Equal(t, first.ID, dupe.ID, "same URL must reuse the existing bookmark")

	all, err := store.Bookmarks(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestBookmarksFolderFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	work := "work"
	require.NoError(t, store.AddBookmark(ctx, &Bookmark{Title: "A", URL: "https://a.example", Folder: &work}))
	require.NoError(t, store.AddBookmark(ctx, &Bookmark{Title: "B", URL: "https://b.example"}))

	inWork, err := store.Bookmarks(ctx, &work)
	require.NoError(t, err)
	require.Len(t, inWork, 1)
	assert.Equal(t, "A", inWork[0].Title)

	all, err := store.Bookmarks(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBookmarkOrderAssignment(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := &Bookmark{Title: "A", URL: "https://a.example"}
	b := &Bookmark{Title: "B", URL: "https://b.example"}
	require.NoError(t, store.AddBookmark(ctx, a))
	require.NoError(t, store.AddBookmark(ctx, b))

	assert.Greater(t, b.OrderIndex, a.OrderIndex)
}

func TestUpdateAndDeleteBookmark(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	b := &Bookmark{Title: "Old", URL: "https://old.example"}
	require.NoError(t, store.AddBookmark(ctx, b))

	require.NoError(t, store.UpdateBookmark(ctx, b.ID, BookmarkPatch{Title: strPtr("New")}))

	all, err := store.Bookmarks(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "New", all[0].Title)

	exists, err := store.BookmarkExists(ctx, "https://old.example")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.DeleteBookmark(ctx, b.ID))
	assert.ErrorIs(t, store.DeleteBookmark(ctx, b.ID), ErrNotFound)

	exists, err = store.BookmarkExists(ctx, "https://old.example")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBrowserConfigDefaultsOnFirstAccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg, err := store.BrowserConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://www.google.com", cfg.HomeURL)
	assert.False(t, cfg.IsVisible)
	assert.Equal(t, 500, cfg.Width)
	assert.Equal(t, 700, cfg.Height)

	// The default is persisted, not just returned.
	var stored BrowserConfig
	require.NoError(t, store.GetSetting(ctx, "browser_config", &stored))
	assert.Equal(t, *cfg, stored)
}

func TestSaveBrowserConfig(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveBrowserConfig(ctx, &BrowserConfig{
		HomeURL:   "https://duckduckgo.com",
		IsVisible: true,
		Width:     800,
		Height:    600,
	})
	require.NoError(t, err)

	cfg, err := store.BrowserConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://duckduckgo.com", cfg.HomeURL)
	assert.True(t, cfg.IsVisible)
	assert.Equal(t, 800, cfg.Width)
}

func addTestDials(t *testing.T, s *SQLiteStore, titles ...string) []*SpeedDial {
	t.Helper()
	dials := make([]*SpeedDial, 0, len(titles))
	for _, title := range titles {
		sd := &SpeedDial{Title: title, URL: "https://" + title + ".example"}
		require.NoError(t, s.AddSpeedDial(context.Background(), sd))
		dials = append(dials, sd)
	}
	return dials
}

func dialTitles(t *testing.T, s *SQLiteStore) []string {
	t.Helper()
	dials, err := s.SpeedDials(context.Background())
	require.NoError(t, err)

	titles := make([]string, 0, len(dials))
	for i, sd := range dials {
		require.Equal(t, i, sd.Position, "positions must stay compact")
		titles = append(titles, sd.Title)
	}
	return titles
}

func TestAddSpeedDialAppends(t *testing.T) {
	store := newTestStore(t)

	dials := addTestDials(t, store, "a", "b", "c")
	assert.Equal(t, 0, dials[0].Position)
	assert.Equal(t, 2, dials[2].Position)
	assert.Equal(t, "🌐", dials[0].Icon, "default icon")
	assert.Equal(t, "#16213e", dials[0].BackgroundColor, "default background")
}

func TestReorderSpeedDial(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dials := addTestDials(t, store, "a", "b", "c", "d")

	require.NoError(t, store.ReorderSpeedDial(ctx, dials[3].ID, 0))
	assert.Equal(t, []string{"d", "a", "b", "c"}, dialTitles(t, store))

	require.NoError(t, store.ReorderSpeedDial(ctx, dials[3].ID, 2))
	assert.Equal(t, []string{"a", "b", "d", "c"}, dialTitles(t, store))

	// Out-of-range targets clamp to the grid edges.
	require.NoError(t, store.ReorderSpeedDial(ctx, dials[0].ID, 99))
	assert.Equal(t, []string{"b", "d", "c", "a"}, dialTitles(t, store))

	assert.ErrorIs(t, store.ReorderSpeedDial(ctx, "missing", 0), ErrNotFound)
}

func TestDeleteSpeedDialCompacts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dials := addTestDials(t, store, "a", "b", "c", "d")

	require.NoError(t, store.DeleteSpeedDial(ctx, dials[1].ID))
	assert.Equal(t, []string{"a", "c", "d"}, dialTitles(t, store))

	assert.ErrorIs(t, store.DeleteSpeedDial(ctx, dials[1].ID), ErrNotFound)
}

func TestUpdateSpeedDial(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dials := addTestDials(t, store, "a")
	err := store.UpdateSpeedDial(ctx, dials[0].ID, SpeedDialPatch{
		Title: strPtr("renamed"),
		Icon:  strPtr("⭐"),
	})
	require.NoError(t, err)

	got, err := store.SpeedDials(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "renamed", got[0].Title)
	assert.Equal(t, "⭐", got[0].Icon)

	assert.ErrorIs(t, store.UpdateSpeedDial(ctx, "missing", SpeedDialPatch{Title: strPtr("x")}), ErrNotFound)
}
