// ABOUTME: Unit tests for MockStore to ensure behavior matches SQLiteStore
// ABOUTME: Focuses on copy semantics, nested forget and duplicate detection

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/recentviews/internal/recent"
	"github.com/2389/recentviews/internal/session"
)

func TestMockStore_RecentViews(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()
	viewer := store.Viewer("u1")

	keys := []recent.EntityKey{"2", "1"}
	require.NoError(t, viewer.SyncRecentViews(ctx, "post", keys))
	keys[0] = "X"

	views, err := viewer.GetRecentViews(ctx)
	require.NoError(t, err)
	assert.Equal(t, []recent.EntityKey{"2", "1"}, views["post"], "stored a copy")

	views["post"][0] = "Y"
	again, _ := viewer.GetRecentViews(ctx)
	assert.Equal(t, []recent.EntityKey{"2", "1"}, again["post"], "returned a copy")

	require.NoError(t, viewer.SyncRecentViews(ctx, "video", []recent.EntityKey{"v"}))
	require.NoError(t, viewer.DeleteRecentViews(ctx, "post"))
	views, _ = viewer.GetRecentViews(ctx)
	assert.Equal(t, map[recent.EntityType][]recent.EntityKey{"video": {"v"}}, views)

	require.NoError(t, viewer.ReplaceRecentViews(ctx, map[recent.EntityType][]recent.EntityKey{"article": {"a"}}))
	views, _ = viewer.GetRecentViews(ctx)
	assert.Equal(t, map[recent.EntityType][]recent.EntityKey{"article": {"a"}}, views)

	require.NoError(t, viewer.DeleteRecentViews(ctx))
	views, _ = viewer.GetRecentViews(ctx)
	assert.Empty(t, views)
}

func TestMockStore_SessionValues(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()
	h := session.Bind(store, "s1")

	for _, k := range []string{"rv", "rv.post", "rv.video", "rvx"} {
		require.NoError(t, h.Put(ctx, k, []byte(k)))
	}

	keys, err := h.Keys(ctx, "rv")
	require.NoError(t, err)
	assert.Equal(t, []string{"rv.post", "rv.video"}, keys)

	require.NoError(t, h.Forget(ctx, "rv"))
	keys, _ = h.Keys(ctx, "rv")
	assert.Empty(t, keys)
	_, ok, _ := h.Get(ctx, "rvx")
	assert.True(t, ok)

	assert.ErrorIs(t, store.PutValue(ctx, "", "a", nil), session.ErrEmptySessionID)
}

func TestMockStore_CreateItem_Duplicate(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	require.NoError(t, store.CreateItem(ctx, &Item{Kind: "product", ID: "p1"}))
	err := store.CreateItem(ctx, &Item{Kind: "product", ID: "p1"})
	assert.ErrorIs(t, err, ErrDuplicateItem)
}

func TestMockStore_GetItems(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c"} {
		require.NoError(t, store.CreateItem(ctx, &Item{Kind: "product", ID: id}))
	}

	items, err := store.GetItems(ctx, "product", []string{"c", "a", "a", "zz"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "c", items[1].ID)

	_, err = store.GetItem(ctx, "product", "zz")
	assert.ErrorIs(t, err, ErrNotFound)
}
