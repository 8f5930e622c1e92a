// Package recent tracks recently viewed entities per session and per viewer.
//
// # Overview
//
// Every entity type has its own bounded list of keys, most recent first. The
// list lives in the session store for anonymous and identified users alike and
// is optionally mirrored to a durable per-viewer history. When an anonymous
// session becomes identified, MergePersistToCurrentSession folds the durable
// history into the session and writes the merged result back to both stores.
//
// # Capabilities
//
// Entities implement Viewable to be recorded and Queryable to be read back:
//
//	type Product struct{ ID string }
//
//	func (p *Product) RecentKey() recent.EntityKey { return recent.EntityKey(p.ID) }
//	func (p *Product) RecentlyViewsLimit() int     { return 10 }
//	func (p *Product) WhereRecentlyViewedIn(keys []recent.EntityKey) recent.Query {
//	    return recent.NewKeyQuery(keys, findProducts)
//	}
//
// Identified principals implement Viewer. The session is reached through
// SessionStore, a dot-notation key/value interface over one session.
//
// # Usage
//
//	registry := recent.NewRegistry()
//	registry.MustRegister("product", &Product{})
//
//	tracker := recent.New(sess, registry, recent.Options{
//	    Prefix:  "recently_viewed",
//	    Viewer:  viewerFromRequest,
//	    Persist: recent.NewToggle(true),
//	})
//	tracker.Add(ctx, product)
//	items, err := tracker.Get(ctx, recent.EntityType("product"), 0)
//
// # Errors
//
// Query, Get, Keys and Clear return a *NotViewableError (matching
// ErrNotViewable) for type tokens that are not registered and values that do
// not implement Queryable. Add ignores values that are not Viewable. Absent or
// malformed stored lists read as empty. A missing viewer turns persistence into
// a no-op. Storage errors are returned wrapped.
package recent
