// ABOUTME: Test doubles for the recent package: session store, viewer and entities
// ABOUTME: The entity finder returns records in reverse order to exercise re-ordering

package recent

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"
	"testing"
)

type memSession struct {
	mu     sync.Mutex
	values map[string][]byte
	putErr error
}

func newMemSession() *memSession {
	return &memSession{values: make(map[string][]byte)}
}

func (s *memSession) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memSession) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.values[key] = value
	return nil
}

func (s *memSession) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.values {
		if k == key || strings.HasPrefix(k, key+".") {
			delete(s.values, k)
		}
	}
	return nil
}

func (s *memSession) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k := range s.values {
		if strings.HasPrefix(k, prefix+".") {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out, nil
}

type call struct {
	op    string
	types []EntityType
	keys  []EntityKey
}

type fakeViewer struct {
	views  map[EntityType][]EntityKey
	calls  []call
	getErr error
}

func newFakeViewer(views map[EntityType][]EntityKey) *fakeViewer {
	if views == nil {
		views = map[EntityType][]EntityKey{}
	}
	return &fakeViewer{views: views}
}

func (v *fakeViewer) SyncRecentViews(_ context.Context, t EntityType, keys []EntityKey) error {
	v.calls = append(v.calls, call{op: "sync", types: []EntityType{t}, keys: slices.Clone(keys)})
	v.views[t] = slices.Clone(keys)
	return nil
}

func (v *fakeViewer) GetRecentViews(context.Context) (map[EntityType][]EntityKey, error) {
	v.calls = append(v.calls, call{op: "get"})
	if v.getErr != nil {
		return nil, v.getErr
	}
	return maps.Clone(v.views), nil
}

func (v *fakeViewer) DeleteRecentViews(_ context.Context, types ...EntityType) error {
	v.calls = append(v.calls, call{op: "delete", types: types})
	if len(types) == 0 {
		clear(v.views)
		return nil
	}
	for _, t := range types {
		delete(v.views, t)
	}
	return nil
}

func (v *fakeViewer) ops() []string {
	out := make([]string, len(v.calls))
	for i, c := range v.calls {
		out[i] = c.op
	}
	return out
}

// atomicViewer adds ReplaceRecentViews to fakeViewer.
type atomicViewer struct {
	*fakeViewer
}

func (v atomicViewer) ReplaceRecentViews(_ context.Context, views map[EntityType][]EntityKey) error {
	v.calls = append(v.calls, call{op: "replace"})
	clear(v.views)
	for t, keys := range views {
		v.views[t] = slices.Clone(keys)
	}
	return nil
}

// item is a trackable entity whose finder returns records in reverse key order.
type item struct {
	typ   EntityType
	key   EntityKey
	limit int
	db    map[EntityKey]*item
	err   error
}

func (i *item) EntityType() EntityType  { return i.typ }
func (i *item) RecentKey() EntityKey    { return i.key }
func (i *item) RecentlyViewsLimit() int { return i.limit }
func (i *item) WhereRecentlyViewedIn(keys []EntityKey) Query {
	return NewKeyQuery(keys, func(_ context.Context, keys []EntityKey) ([]Viewable, error) {
		if i.err != nil {
			return nil, i.err
		}
		var out []Viewable
		for _, k := range slices.Backward(keys) {
			if rec, ok := i.db[k]; ok {
				out = append(out, rec)
			}
		}
		return out, nil
	})
}

// catalog holds the records of one entity type.
type catalog struct {
	typ   EntityType
	limit int
	db    map[EntityKey]*item
}

func newCatalog(typ EntityType, limit int) *catalog {
	return &catalog{typ: typ, limit: limit, db: make(map[EntityKey]*item)}
}

func (c *catalog) item(key EntityKey) *item {
	if it, ok := c.db[key]; ok {
		return it
	}
	it := &item{typ: c.typ, key: key, limit: c.limit, db: c.db}
	c.db[key] = it
	return it
}

func (c *catalog) prototype() *item {
	return &item{typ: c.typ, limit: c.limit, db: c.db}
}

// keyOnly can produce a key but has no limit, so it is not Viewable.
type keyOnly struct{}

func (keyOnly) RecentKey() EntityKey { return "1" }

// plainViewable is Viewable but not Queryable.
type plainViewable struct{ key EntityKey }

func (p plainViewable) RecentKey() EntityKey    { return p.key }
func (p plainViewable) RecentlyViewsLimit() int { return 5 }

var errBoom = errors.New("boom")

func keysOf(records []Viewable) []EntityKey {
	out := make([]EntityKey, len(records))
	for i, r := range records {
		out[i] = r.RecentKey()
	}
	return out
}

func keys(ks ...string) []EntityKey {
	out := make([]EntityKey, len(ks))
	for i, k := range ks {
		out[i] = EntityKey(k)
	}
	return out
}

func viewerFunc(v Viewer) ViewerFunc {
	return func(context.Context) Viewer { return v }
}

func sessionKeys(t *testing.T, s *memSession, key string) []EntityKey {
	t.Helper()
	raw, ok, _ := s.Get(context.Background(), key)
	if !ok {
		return nil
	}
	return DecodeKeys(raw)
}
