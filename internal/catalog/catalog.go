// ABOUTME: Product and Article entities that the recently viewed tracker can record
// ABOUTME: Each resolves history keys through a batch catalog lookup

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/2389/recentviews/internal/recent"
	"github.com/2389/recentviews/internal/store"
)

// Entity kinds served by the catalog.
const (
	KindProduct = "product"
	KindArticle = "article"
)

// DefaultLimits are the history capacities used when configuration leaves a kind out.
var DefaultLimits = map[string]int{
	KindProduct: 10,
	KindArticle: 5,
}

// ErrUnknownKind is returned for kinds the catalog does not serve.
var ErrUnknownKind = errors.New("unknown entity kind")

// record is the shared behaviour of catalog entities.
type record struct {
	store.Item
	limit int
	items store.CatalogStore
	wrap  func(record) recent.Queryable
}

func (r record) RecentKey() recent.EntityKey { return recent.EntityKey(r.ID) }

func (r record) RecentlyViewsLimit() int { return r.limit }

func (r record) EntityType() recent.EntityType { return recent.EntityType(r.Kind) }

// CatalogItem returns the stored item behind the entity.
func (r record) CatalogItem() store.Item { return r.Item }

func (r record) WhereRecentlyViewedIn(keys []recent.EntityKey) recent.Query {
	return recent.NewKeyQuery(keys, r.find)
}

// find loads the items with keys. Results come back in storage order.
func (r record) find(ctx context.Context, keys []recent.EntityKey) ([]recent.Viewable, error) {
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = string(k)
	}

	items, err := r.items.GetItems(ctx, r.Kind, ids)
	if err != nil {
		return nil, fmt.Errorf("loading %s items: %w", r.Kind, err)
	}

	out := make([]recent.Viewable, 0, len(items))
	for _, item := range items {
		out = append(out, r.with(*item))
	}
	return out, nil
}

func (r record) with(item store.Item) recent.Queryable {
	next := r
	next.Item = item
	return r.wrap(next)
}

// Product is a catalog item of kind "product".
type Product struct{ record }

// Article is a catalog item of kind "article".
type Article struct{ record }

// Catalog builds entities of every served kind over one CatalogStore.
type Catalog struct {
	prototypes map[string]record
}

// New returns a catalog over items. limits overrides DefaultLimits per kind.
func New(items store.CatalogStore, limits map[string]int) *Catalog {
	c := &Catalog{prototypes: make(map[string]record)}
	add := func(kind string, wrap func(record) recent.Queryable) {
		limit := DefaultLimits[kind]
		if l, ok := limits[kind]; ok {
			limit = l
		}
		c.prototypes[kind] = record{
			Item:  store.Item{Kind: kind},
			limit: limit,
			items: items,
			wrap:  wrap,
		}
	}
	add(KindProduct, func(r record) recent.Queryable { return &Product{r} })
	add(KindArticle, func(r record) recent.Queryable { return &Article{r} })
	return c
}

// Register adds every kind of the catalog to registry.
func (c *Catalog) Register(registry *recent.Registry) error {
	for _, kind := range c.Kinds() {
		if err := registry.Register(recent.EntityType(kind), c.prototype(kind)); err != nil {
			return err
		}
	}
	return nil
}

// Register builds a catalog over items and registers its kinds in registry.
func Register(registry *recent.Registry, items store.CatalogStore, limits map[string]int) (*Catalog, error) {
	c := New(items, limits)
	if err := c.Register(registry); err != nil {
		return nil, err
	}
	return c, nil
}

// Kinds lists the served kinds, sorted.
func (c *Catalog) Kinds() []string {
	kinds := make([]string, 0, len(c.prototypes))
	for k := range c.prototypes {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Find loads one entity. It returns ErrUnknownKind for kinds the catalog does
// not serve and store.ErrNotFound for missing items.
func (c *Catalog) Find(ctx context.Context, kind, id string) (recent.Queryable, error) {
	proto, ok := c.prototypes[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	item, err := proto.items.GetItem(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return proto.with(*item), nil
}

func (c *Catalog) prototype(kind string) recent.Queryable {
	proto := c.prototypes[kind]
	return proto.wrap(proto)
}
