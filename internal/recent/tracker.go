// ABOUTME: Tracker records views and reads them back for one session and viewer
// ABOUTME: Mirrors session lists to the viewer's durable history when persistence is on

package recent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/2389/recentviews/internal/keylist"
)

// Options configures a Tracker.
type Options struct {
	// Prefix is the session namespace root. Defaults to DefaultPrefix.
	Prefix string
	// Viewer resolves the identified principal, if any.
	Viewer ViewerFunc
	// Persist toggles mirroring to the viewer's durable history. Defaults to Never.
	Persist Flag
	Logger  *slog.Logger
}

// Tracker maintains recently viewed lists for the session it was built with.
// It holds no locks; concurrent use relies on the session store.
type Tracker struct {
	session  *sessionHistory
	registry *Registry
	viewer   ViewerFunc
	persist  Flag
	logger   *slog.Logger
}

// New creates a Tracker over session using registry to resolve type tokens.
func New(session SessionStore, registry *Registry, opts Options) *Tracker {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Persist == nil {
		opts.Persist = Never
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "recent")
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Tracker{
		session:  &sessionHistory{store: session, prefix: opts.Prefix},
		registry: registry,
		viewer:   opts.Viewer,
		persist:  opts.Persist,
		logger:   opts.Logger,
	}
}

// Add records a view of v. Values that cannot produce a key, or whose type
// cannot be read back, are ignored.
func (t *Tracker) Add(ctx context.Context, v any) error {
	item, ok := v.(Viewable)
	if !ok {
		t.logger.Debug("ignoring view of non-viewable value", "type", fmt.Sprintf("%T", v))
		return nil
	}

	entityType, ok := t.registry.Resolve(v)
	if !ok {
		t.logger.Debug("ignoring view of unregistered entity type", "entity_type", entityType)
		return nil
	}
	current, err := t.session.get(ctx, entityType)
	if err != nil {
		return err
	}

	keys := keylist.InsertFront(current, item.RecentKey(), item.RecentlyViewsLimit())
	if err := t.session.put(ctx, entityType, keys); err != nil {
		return err
	}

	if viewer := t.persistentViewer(ctx); viewer != nil {
		if err := viewer.SyncRecentViews(ctx, entityType, keys); err != nil {
			return fmt.Errorf("syncing recent views for %s: %w", entityType, err)
		}
	}
	return nil
}

// Query returns a query over the session keys for target, which is either an
// EntityType token or an instance. It returns nil when there are no keys.
func (t *Tracker) Query(ctx context.Context, target any) (Query, error) {
	proto, entityType, err := t.resolve(target)
	if err != nil {
		return nil, err
	}

	keys, err := t.session.get(ctx, entityType)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	return proto.WhereRecentlyViewedIn(keys), nil
}

// Get returns the recently viewed records for target, most recent first.
// A limit of zero or less uses the type's own limit.
func (t *Tracker) Get(ctx context.Context, target any, limit int) ([]Viewable, error) {
	proto, entityType, err := t.resolve(target)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = proto.RecentlyViewsLimit()
	}

	keys, err := t.session.get(ctx, entityType)
	if err != nil {
		return nil, err
	}
	keys = keylist.Truncate(keys, limit)
	if len(keys) == 0 {
		return []Viewable{}, nil
	}

	q := proto.WhereRecentlyViewedIn(keys)
	if q == nil {
		return []Viewable{}, nil
	}
	records, err := q.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching recent %s: %w", entityType, err)
	}
	return orderByKeys(records, keys), nil
}

// Keys returns the session key list for target without resolving records.
func (t *Tracker) Keys(ctx context.Context, target any) ([]EntityKey, error) {
	_, entityType, err := t.resolve(target)
	if err != nil {
		return nil, err
	}
	keys, err := t.session.get(ctx, entityType)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []EntityKey{}
	}
	return keys, nil
}

// All returns every list in the session keyed by type.
func (t *Tracker) All(ctx context.Context) (map[EntityType][]EntityKey, error) {
	return t.session.all(ctx)
}

// Clear forgets the history for target's type.
func (t *Tracker) Clear(ctx context.Context, target any) error {
	_, entityType, err := t.resolve(target)
	if err != nil {
		return err
	}

	if err := t.session.forget(ctx, entityType); err != nil {
		return err
	}

	if viewer := t.persistentViewer(ctx); viewer != nil {
		if err := viewer.DeleteRecentViews(ctx, entityType); err != nil {
			return fmt.Errorf("deleting recent views for %s: %w", entityType, err)
		}
	}
	return nil
}

// ClearAll forgets every history in the session namespace.
func (t *Tracker) ClearAll(ctx context.Context) error {
	if err := t.session.forgetAll(ctx); err != nil {
		return err
	}

	if viewer := t.persistentViewer(ctx); viewer != nil {
		if err := viewer.DeleteRecentViews(ctx); err != nil {
			return fmt.Errorf("deleting recent views: %w", err)
		}
	}
	return nil
}

// resolve turns a type token or instance into its prototype and type.
func (t *Tracker) resolve(target any) (Queryable, EntityType, error) {
	switch v := target.(type) {
	case EntityType:
		proto, ok := t.registry.Lookup(v)
		if !ok {
			return nil, "", &NotViewableError{Target: v}
		}
		return proto, v, nil
	case Queryable:
		entityType, ok := t.registry.Resolve(v)
		if !ok {
			return nil, "", &NotViewableError{Target: target}
		}
		return v, entityType, nil
	default:
		return nil, "", &NotViewableError{Target: target}
	}
}

// currentViewer resolves the viewer, or nil when none is identified.
func (t *Tracker) currentViewer(ctx context.Context) Viewer {
	if t.viewer == nil {
		return nil
	}
	return t.viewer(ctx)
}

// persistentViewer returns the viewer only when persistence is enabled.
func (t *Tracker) persistentViewer(ctx context.Context) Viewer {
	if !t.persist.Enabled(ctx) {
		return nil
	}
	return t.currentViewer(ctx)
}
