// ABOUTME: Capability interfaces for trackable entities, viewers and session storage
// ABOUTME: Defines EntityType/EntityKey and the Query descriptor used to resolve keys

package recent

import (
	"context"
	"sync/atomic"
)

// EntityType identifies a kind of trackable record. It partitions every list.
type EntityType string

// EntityKey identifies one record within an EntityType.
type EntityKey string

// Viewable is the minimum an entity needs to be recorded as viewed.
type Viewable interface {
	// RecentKey returns the entity's primary key.
	RecentKey() EntityKey
	// RecentlyViewsLimit is the capacity of the history for the entity's type.
	RecentlyViewsLimit() int
}

// Queryable is the full contract required to read a history back.
type Queryable interface {
	Viewable
	// WhereRecentlyViewedIn returns a query over the records with the given keys.
	WhereRecentlyViewedIn(keys []EntityKey) Query
}

// Typed lets an entity name its own EntityType instead of relying on its Go type.
type Typed interface {
	EntityType() EntityType
}

// Query resolves a key set back into records. Fetch may return records in any
// order; the tracker restores recency order.
type Query interface {
	Keys() []EntityKey
	Fetch(ctx context.Context) ([]Viewable, error)
}

// Viewer is an identified principal that owns a durable history.
type Viewer interface {
	// SyncRecentViews replaces the stored list for entityType with keys.
	SyncRecentViews(ctx context.Context, entityType EntityType, keys []EntityKey) error
	// GetRecentViews returns every stored list keyed by type.
	GetRecentViews(ctx context.Context) (map[EntityType][]EntityKey, error)
	// DeleteRecentViews deletes the listed types, or every type when none are given.
	DeleteRecentViews(ctx context.Context, entityTypes ...EntityType) error
}

// ViewerReplacer is implemented by viewers that can replace their whole
// history in one atomic step.
type ViewerReplacer interface {
	ReplaceRecentViews(ctx context.Context, views map[EntityType][]EntityKey) error
}

// ViewerFunc resolves the viewer for the current request. It returns nil when
// no principal is identified.
type ViewerFunc func(ctx context.Context) Viewer

// SessionStore is the transient key/value store of a single session.
// Keys use dot notation: forgetting "a" also forgets "a.b".
type SessionStore interface {
	// Get returns the raw value stored under key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores value under key.
	Put(ctx context.Context, key string, value []byte) error
	// Forget removes key and every key nested under it.
	Forget(ctx context.Context, key string) error
	// Keys lists the keys nested under prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Flag reports whether persistence is enabled. It is consulted on every
// operation so that it can change at runtime.
type Flag interface {
	Enabled(ctx context.Context) bool
}

// FlagFunc adapts a function to Flag.
type FlagFunc func(ctx context.Context) bool

// Enabled calls f(ctx).
func (f FlagFunc) Enabled(ctx context.Context) bool { return f(ctx) }

// Fixed flags.
var (
	Always Flag = FlagFunc(func(context.Context) bool { return true })
	Never  Flag = FlagFunc(func(context.Context) bool { return false })
)

// Toggle is a Flag that can be switched at runtime.
type Toggle struct {
	on atomic.Bool
}

// NewToggle creates a Toggle with the given initial state.
func NewToggle(on bool) *Toggle {
	t := &Toggle{}
	t.on.Store(on)
	return t
}

// Enabled reports the current state.
func (t *Toggle) Enabled(context.Context) bool { return t.on.Load() }

// Set switches the toggle.
func (t *Toggle) Set(on bool) { t.on.Store(on) }
