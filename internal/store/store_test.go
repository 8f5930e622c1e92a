// ABOUTME: Tests for SQLite session values and catalog items
// ABOUTME: Covers nested forget, sliding expiry, cleanup and batch item lookup

package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/recentviews/internal/session"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// withClock pins the store's clock and returns a function that advances it.
func withClock(store *SQLiteStore) func(time.Duration) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return func(d time.Duration) { now = now.Add(d) }
}

func TestSessionValues_PutGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	h := session.Bind(store, "s1")

	_, ok, err := h.Get(ctx, "rv.post")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, h.Put(ctx, "rv.post", []byte(`["1"]`)))
	require.NoError(t, h.Put(ctx, "rv.post", []byte(`["2","1"]`)))

	v, ok, err := h.Get(ctx, "rv.post")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["2","1"]`, string(v))

	_, ok, err = session.Bind(store, "s2").Get(ctx, "rv.post")
	require.NoError(t, err)
	assert.False(t, ok, "sessions are isolated")
}

func TestSessionValues_EmptySessionID(t *testing.T) {
	store := setupTestStore(t)
	err := store.PutValue(context.Background(), "", "a", []byte("1"))
	assert.ErrorIs(t, err, session.ErrEmptySessionID)
}

func TestSessionValues_ForgetNested(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	h := session.Bind(store, "s1")

	for _, k := range []string{"rv", "rv.post", "rv.vidéo", "rvx", "other.rv"} {
		require.NoError(t, h.Put(ctx, k, []byte(k)))
	}

	keys, err := h.Keys(ctx, "rv")
	require.NoError(t, err)
	assert.Equal(t, []string{"rv.post", "rv.vidéo"}, keys)

	require.NoError(t, h.Forget(ctx, "rv.post"))
	keys, err = h.Keys(ctx, "rv")
	require.NoError(t, err)
	assert.Equal(t, []string{"rv.vidéo"}, keys)

	require.NoError(t, h.Forget(ctx, "rv"))
	keys, err = h.Keys(ctx, "rv")
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, ok, _ := h.Get(ctx, "rv")
	assert.False(t, ok)
	_, ok, _ = h.Get(ctx, "rvx")
	assert.True(t, ok)
	_, ok, _ = h.Get(ctx, "other.rv")
	assert.True(t, ok)
}

func TestSessionValues_SlidingExpiry(t *testing.T) {
	store := setupTestStore(t)
	store.SetSessionTTL(time.Minute)
	advance := withClock(store)
	ctx := context.Background()

	require.NoError(t, store.PutValue(ctx, "s1", "a", []byte("1")))

	advance(45 * time.Second)
	_, ok, err := store.GetValue(ctx, "s1", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	advance(45 * time.Second)
	_, ok, err = store.GetValue(ctx, "s1", "a")
	require.NoError(t, err)
	assert.True(t, ok, "read refreshed the expiry")

	advance(2 * time.Minute)
	_, ok, err = store.GetValue(ctx, "s1", "a")
	require.NoError(t, err)
	assert.False(t, ok, "expired")

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM session_values`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestSessionValues_DeleteExpiredSessions(t *testing.T) {
	store := setupTestStore(t)
	store.SetSessionTTL(time.Minute)
	advance := withClock(store)
	ctx := context.Background()

	require.NoError(t, store.PutValue(ctx, "old", "a", []byte("1")))
	advance(45 * time.Second)
	require.NoError(t, store.PutValue(ctx, "new", "a", []byte("1")))
	advance(30 * time.Second)

	removed, err := store.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, ok, _ := store.GetValue(ctx, "new", "a")
	assert.True(t, ok)
}

func TestSessionValues_NoExpiryWhenTTLDisabled(t *testing.T) {
	store := setupTestStore(t)
	store.SetSessionTTL(0)
	advance := withClock(store)
	ctx := context.Background()

	require.NoError(t, store.PutValue(ctx, "s1", "a", []byte("1")))
	advance(365 * 24 * time.Hour)

	_, ok, err := store.GetValue(ctx, "s1", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := store.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSessionValues_DestroySession(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutValue(ctx, "s1", "a", []byte("1")))
	require.NoError(t, store.DestroySession(ctx, "s1"))

	_, ok, err := store.GetValue(ctx, "s1", "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalog_CreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	item := &Item{Kind: "product", ID: "p1", Title: "Lamp"}
	require.NoError(t, store.CreateItem(ctx, item))
	assert.False(t, item.CreatedAt.IsZero())

	got, err := store.GetItem(ctx, "product", "p1")
	require.NoError(t, err)
	assert.Equal(t, "Lamp", got.Title)
	assert.True(t, item.CreatedAt.Equal(got.CreatedAt))

	_, err = store.GetItem(ctx, "article", "p1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_GeneratesID(t *testing.T) {
	store := setupTestStore(t)
	item := &Item{Kind: "product", Title: "Chair"}
	require.NoError(t, store.CreateItem(context.Background(), item))
	assert.NotEmpty(t, item.ID)
}

func TestCatalog_Duplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateItem(ctx, &Item{Kind: "product", ID: "p1"}))
	err := store.CreateItem(ctx, &Item{Kind: "product", ID: "p1"})
	assert.ErrorIs(t, err, ErrDuplicateItem)

	// Same id under another kind is a different item.
	assert.NoError(t, store.CreateItem(ctx, &Item{Kind: "article", ID: "p1"}))
}

func TestCatalog_RequiresKind(t *testing.T) {
	store := setupTestStore(t)
	assert.Error(t, store.CreateItem(context.Background(), &Item{ID: "x"}))
}

func TestCatalog_GetItems(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		require.NoError(t, store.CreateItem(ctx, &Item{Kind: "product", ID: fmt.Sprintf("p%d", i)}))
	}
	require.NoError(t, store.CreateItem(ctx, &Item{Kind: "article", ID: "p5"}))

	items, err := store.GetItems(ctx, "product", []string{"p3", "p1", "missing", "p5"})
	require.NoError(t, err)

	var ids []string
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	assert.ElementsMatch(t, []string{"p3", "p1"}, ids)

	none, err := store.GetItems(ctx, "product", nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCatalog_ListItems(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateItem(ctx, &Item{
			Kind:      "product",
			ID:        fmt.Sprintf("p%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	items, err := store.ListItems(ctx, "product", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "p2", items[0].ID)
	assert.Equal(t, "p1", items[1].ID)

	all, err := store.ListItems(ctx, "product", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
