// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/recentviews/internal/recent"
	"github.com/2389/recentviews/internal/session"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	views    map[string]map[recent.EntityType][]recent.EntityKey // keyed by viewer ID
	sessions map[string]map[string][]byte                        // keyed by session ID
	items    map[string]*Item                                    // keyed by "kind:id"
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		views:    make(map[string]map[recent.EntityType][]recent.EntityKey),
		sessions: make(map[string]map[string][]byte),
		items:    make(map[string]*Item),
	}
}

// Viewer returns the history of viewer id held in the mock.
func (m *MockStore) Viewer(id string) *ViewerHistory {
	return NewViewerHistory(m, id)
}

// SyncRecentViews replaces one list of a viewer.
func (m *MockStore) SyncRecentViews(ctx context.Context, viewerID string, entityType recent.EntityType, keys []recent.EntityKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byType, ok := m.views[viewerID]
	if !ok {
		byType = make(map[recent.EntityType][]recent.EntityKey)
		m.views[viewerID] = byType
	}
	byType[entityType] = append([]recent.EntityKey{}, keys...)
	return nil
}

// GetRecentViews returns a copy of every list of a viewer.
func (m *MockStore) GetRecentViews(ctx context.Context, viewerID string) (map[recent.EntityType][]recent.EntityKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[recent.EntityType][]recent.EntityKey, len(m.views[viewerID]))
	for t, keys := range m.views[viewerID] {
		out[t] = append([]recent.EntityKey{}, keys...)
	}
	return out, nil
}

// DeleteRecentViews deletes the listed types, or all when none are given.
func (m *MockStore) DeleteRecentViews(ctx context.Context, viewerID string, entityTypes ...recent.EntityType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(entityTypes) == 0 {
		delete(m.views, viewerID)
		return nil
	}
	for _, t := range entityTypes {
		delete(m.views[viewerID], t)
	}
	return nil
}

// ReplaceRecentViews swaps a viewer's whole history.
func (m *MockStore) ReplaceRecentViews(ctx context.Context, viewerID string, views map[recent.EntityType][]recent.EntityKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byType := make(map[recent.EntityType][]recent.EntityKey, len(views))
	for t, keys := range views {
		byType[t] = append([]recent.EntityKey{}, keys...)
	}
	m.views[viewerID] = byType
	return nil
}

// GetValue returns a copy of a session value.
func (m *MockStore) GetValue(ctx context.Context, sessionID, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.sessions[sessionID][key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte{}, v...), true, nil
}

// PutValue stores a copy of value.
func (m *MockStore) PutValue(ctx context.Context, sessionID, key string, value []byte) error {
	if sessionID == "" {
		return session.ErrEmptySessionID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	values, ok := m.sessions[sessionID]
	if !ok {
		values = make(map[string][]byte)
		m.sessions[sessionID] = values
	}
	values[key] = append([]byte{}, value...)
	return nil
}

// ForgetValue removes key and everything nested under it.
func (m *MockStore) ForgetValue(ctx context.Context, sessionID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range m.sessions[sessionID] {
		if session.Covers(key, k) {
			delete(m.sessions[sessionID], k)
		}
	}
	return nil
}

// ValueKeys lists the keys nested under prefix, sorted.
func (m *MockStore) ValueKeys(ctx context.Context, sessionID, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.sessions[sessionID] {
		if session.Nested(prefix, k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// CreateItem stores a copy of item.
func (m *MockStore) CreateItem(ctx context.Context, item *Item) error {
	if item.Kind == "" {
		return errors.New("item kind is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	key := item.Kind + ":" + item.ID
	if _, exists := m.items[key]; exists {
		return ErrDuplicateItem
	}
	i := *item
	m.items[key] = &i
	return nil
}

// GetItem retrieves a copy of one item.
func (m *MockStore) GetItem(ctx context.Context, kind, id string) (*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[kind+":"+id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *item
	return &result, nil
}

// GetItems returns copies of the matching items sorted by id, which is
// deliberately unrelated to the order of ids.
func (m *MockStore) GetItems(ctx context.Context, kind string, ids []string) ([]*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool, len(ids))
	var items []*Item
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if item, ok := m.items[kind+":"+id]; ok {
			result := *item
			items = append(items, &result)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// ListItems returns up to limit items of kind, newest first.
func (m *MockStore) ListItems(ctx context.Context, kind string, limit int) ([]*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []*Item
	for _, item := range m.items {
		if item.Kind == kind {
			result := *item
			items = append(items, &result)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}

// Ensure MockStore implements Store.
var _ Store = (*MockStore)(nil)
