// ABOUTME: KeyQuery, a Query backed by a finder function
// ABOUTME: Entity types use it to implement WhereRecentlyViewedIn

package recent

import (
	"context"
	"slices"
)

// Finder loads the records with the given keys, in any order.
type Finder func(ctx context.Context, keys []EntityKey) ([]Viewable, error)

// KeyQuery is a Query over a fixed key set.
type KeyQuery struct {
	keys []EntityKey
	find Finder
}

// NewKeyQuery returns a Query that loads keys with find.
func NewKeyQuery(keys []EntityKey, find Finder) *KeyQuery {
	return &KeyQuery{keys: slices.Clone(keys), find: find}
}

// Keys returns the key set in recency order.
func (q *KeyQuery) Keys() []EntityKey {
	return slices.Clone(q.keys)
}

// Fetch runs the finder.
func (q *KeyQuery) Fetch(ctx context.Context) ([]Viewable, error) {
	if len(q.keys) == 0 {
		return nil, nil
	}
	return q.find(ctx, slices.Clone(q.keys))
}

// orderByKeys returns records sorted to follow keys. Records whose key is not
// in keys, and repeated records, are dropped.
func orderByKeys(records []Viewable, keys []EntityKey) []Viewable {
	pos := make(map[EntityKey]int, len(keys))
	for i, k := range keys {
		pos[k] = i
	}

	slots := make([]Viewable, len(keys))
	for _, r := range records {
		if r == nil {
			continue
		}
		i, ok := pos[r.RecentKey()]
		if !ok || slots[i] != nil {
			continue
		}
		slots[i] = r
	}

	out := make([]Viewable, 0, len(records))
	for _, r := range slots {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
