// ABOUTME: Store interfaces and data types for recentviews persistence
// ABOUTME: Viewer histories, session values and catalog items behind one Store

package store

import (
	"context"
	"errors"
	"time"

	"github.com/2389/recentviews/internal/recent"
	"github.com/2389/recentviews/internal/session"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateItem is returned when creating an item whose kind and id already exist
var ErrDuplicateItem = errors.New("item already exists")

// Item is a record in the catalog that viewers can look at.
type Item struct {
	Kind      string
	ID        string
	Title     string
	CreatedAt time.Time
}

// ViewStore persists each viewer's recently viewed lists.
type ViewStore interface {
	// SyncRecentViews replaces the list of entityType for viewerID.
	SyncRecentViews(ctx context.Context, viewerID string, entityType recent.EntityType, keys []recent.EntityKey) error
	// GetRecentViews returns every list of viewerID keyed by type.
	GetRecentViews(ctx context.Context, viewerID string) (map[recent.EntityType][]recent.EntityKey, error)
	// DeleteRecentViews deletes the listed types, or all types when none are given.
	DeleteRecentViews(ctx context.Context, viewerID string, entityTypes ...recent.EntityType) error
	// ReplaceRecentViews atomically replaces the whole history of viewerID.
	ReplaceRecentViews(ctx context.Context, viewerID string, views map[recent.EntityType][]recent.EntityKey) error
}

// CatalogStore holds the items that histories point at.
type CatalogStore interface {
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, kind, id string) (*Item, error)
	// GetItems returns the items of kind with the given ids in no particular order.
	// Unknown ids are skipped.
	GetItems(ctx context.Context, kind string, ids []string) ([]*Item, error)
	ListItems(ctx context.Context, kind string, limit int) ([]*Item, error)
}

// Store is implemented by SQLiteStore and MockStore.
type Store interface {
	ViewStore
	CatalogStore
	session.Backend

	// Close releases any resources held by the store
	Close() error
}
