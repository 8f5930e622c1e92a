// Package catalog holds the entities served by recentviews: products and
// articles stored as store.Item rows. Both satisfy recent.Queryable, so the
// tracker can record them and resolve stored keys back into records.
package catalog
