// ABOUTME: HTTP tests for the recently viewed API
// ABOUTME: Drives the full middleware chain with session cookies and bearer tokens

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/recentviews/internal/auth"
	"github.com/2389/recentviews/internal/catalog"
	"github.com/2389/recentviews/internal/recent"
	"github.com/2389/recentviews/internal/session"
	"github.com/2389/recentviews/internal/store"
)

const cookieName = "rv_test"

type testEnv struct {
	server   *Server
	store    *store.MockStore
	verifier *auth.JWTVerifier
	persist  *recent.Toggle
}

// client keeps the session cookie between requests like a browser would.
type client struct {
	t      *testing.T
	env    *testEnv
	cookie *http.Cookie
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.NewMockStore()
	for i := 1; i <= 4; i++ {
		require.NoError(t, st.CreateItem(context.Background(), &store.Item{
			Kind: catalog.KindProduct, ID: fmt.Sprintf("p-%d", i), Title: fmt.Sprintf("Product %d", i),
		}))
	}
	require.NoError(t, st.CreateItem(context.Background(), &store.Item{
		Kind: catalog.KindArticle, ID: "a-1", Title: "Article 1",
	}))

	registry := recent.NewRegistry()
	cat, err := catalog.Register(registry, st, map[string]int{catalog.KindProduct: 3})
	require.NoError(t, err)

	sessions := session.NewMemoryStore(time.Hour, 100)
	t.Cleanup(sessions.Close)

	verifier, err := auth.NewJWTVerifier([]byte("api-test-secret-that-is-32-bytes"))
	require.NoError(t, err)

	persist := recent.NewToggle(true)
	srv := New(Config{
		Cookie:   session.CookieOptions{Name: cookieName, TTL: time.Hour},
		Persist:  persist,
		Verifier: verifier,
	}, st, sessions, cat, registry)

	return &testEnv{server: srv, store: st, verifier: verifier, persist: persist}
}

func (e *testEnv) client(t *testing.T) *client {
	return &client{t: t, env: e}
}

func (c *client) login(viewerID string) {
	token, err := c.env.verifier.Generate(viewerID, time.Hour)
	require.NoError(c.t, err)
	c.token = token
}

func (c *client) do(method, path string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.env.server.Handler().ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == cookieName {
			c.cookie = ck
		}
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func itemIDs(resp ItemsResponse) []string {
	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.client(t).do(http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRecordAndGetViews(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	for _, id := range []string{"p-1", "p-2", "p-3", "p-1", "p-4"} {
		rec := c.do(http.MethodPost, "/api/views/product/"+id)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := c.do(http.MethodPost, "/api/views/product/p-2")
	views := decode[ViewsResponse](t, rec)
	assert.Equal(t, ViewsResponse{Type: "product", Keys: []string{"p-2", "p-4", "p-1"}}, views)

	rec = c.do(http.MethodGet, "/api/views/product")
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[ItemsResponse](t, rec)
	assert.Equal(t, []string{"p-2", "p-4", "p-1"}, itemIDs(items))
	assert.Equal(t, "Product 2", items.Items[0].Title)

	rec = c.do(http.MethodGet, "/api/views/product?limit=1")
	assert.Equal(t, []string{"p-2"}, itemIDs(decode[ItemsResponse](t, rec)))
}

func TestGetViews_EmptyAndBadLimit(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	rec := c.do(http.MethodGet, "/api/views/article")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[ItemsResponse](t, rec).Items)

	rec = c.do(http.MethodGet, "/api/views/article?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownTypeAndItem(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	rec := c.do(http.MethodPost, "/api/views/video/1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown entity type", decode[map[string]string](t, rec)["error"])

	rec = c.do(http.MethodPost, "/api/views/product/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "item not found", decode[map[string]string](t, rec)["error"])

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/views/video").Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodDelete, "/api/views/video").Code)
}

func TestSessionsAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := env.client(t), env.client(t)

	alice.do(http.MethodPost, "/api/views/product/p-1")
	bob.do(http.MethodPost, "/api/views/product/p-2")

	assert.Equal(t, []string{"p-1"}, itemIDs(decode[ItemsResponse](t, alice.do(http.MethodGet, "/api/views/product"))))
	assert.Equal(t, []string{"p-2"}, itemIDs(decode[ItemsResponse](t, bob.do(http.MethodGet, "/api/views/product"))))
}

func TestListAndClearViews(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	c.do(http.MethodPost, "/api/views/product/p-1")
	c.do(http.MethodPost, "/api/views/article/a-1")

	all := decode[AllViewsResponse](t, c.do(http.MethodGet, "/api/views"))
	assert.Equal(t, map[string][]string{"product": {"p-1"}, "article": {"a-1"}}, all.Views)

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, "/api/views/product").Code)
	all = decode[AllViewsResponse](t, c.do(http.MethodGet, "/api/views"))
	assert.Equal(t, map[string][]string{"article": {"a-1"}}, all.Views)

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, "/api/views").Code)
	all = decode[AllViewsResponse](t, c.do(http.MethodGet, "/api/views"))
	assert.Empty(t, all.Views)
}

func TestPersistence_MirrorsForViewer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	anon := env.client(t)
	anon.do(http.MethodPost, "/api/views/product/p-1")

	c := env.client(t)
	c.login("viewer-1")
	c.do(http.MethodPost, "/api/views/product/p-1")
	c.do(http.MethodPost, "/api/views/product/p-2")

	views, err := env.store.GetRecentViews(ctx, "viewer-1")
	require.NoError(t, err)
	assert.Equal(t, []recent.EntityKey{"p-2", "p-1"}, views["product"])

	env.persist.Set(false)
	c.do(http.MethodPost, "/api/views/product/p-3")
	views, _ = env.store.GetRecentViews(ctx, "viewer-1")
	assert.Equal(t, []recent.EntityKey{"p-2", "p-1"}, views["product"], "flag is read per request")

	env.persist.Set(true)
	c.do(http.MethodDelete, "/api/views")
	views, _ = env.store.GetRecentViews(ctx, "viewer-1")
	assert.Empty(t, views)
}

func TestMerge_RequiresViewer(t *testing.T) {
	env := newTestEnv(t)
	rec := env.client(t).do(http.MethodPost, "/api/session/merge")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMerge_CombinesSessionAndViewerHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.SyncRecentViews(ctx, "viewer-1", "product", []recent.EntityKey{"p-1", "p-2"}))
	require.NoError(t, env.store.SyncRecentViews(ctx, "viewer-1", "article", []recent.EntityKey{"a-1"}))

	// Browse anonymously, then log in and merge.
	env.persist.Set(false)
	c := env.client(t)
	c.do(http.MethodPost, "/api/views/product/p-3")
	c.do(http.MethodPost, "/api/views/product/p-2")
	c.login("viewer-1")

	rec := c.do(http.MethodPost, "/api/session/merge")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	want := map[string][]string{
		"product": {"p-2", "p-3", "p-1"},
		"article": {"a-1"},
	}
	assert.Equal(t, want, decode[AllViewsResponse](t, rec).Views)

	views, err := env.store.GetRecentViews(ctx, "viewer-1")
	require.NoError(t, err)
	assert.Equal(t, []recent.EntityKey{"p-2", "p-3", "p-1"}, views["product"])
	assert.Equal(t, []recent.EntityKey{"a-1"}, views["article"])

	items := decode[ItemsResponse](t, c.do(http.MethodGet, "/api/views/product"))
	assert.Equal(t, []string{"p-2", "p-3", "p-1"}, itemIDs(items))
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ln, err := newLocalListener()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func newLocalListener() (net.Listener, error) {
	return net.Listen("tcp", "127.0.0.1:0")
}
