// ABOUTME: Reconciliation of session and viewer histories after identification
// ABOUTME: Session lists win on overlap; both stores end up holding the merged result

package recent

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/2389/recentviews/internal/keylist"
)

// MergePersistToCurrentSession merges the viewer's durable history into the
// session and writes the result back to both. It does nothing when no viewer
// is identified. Types that are no longer registered are dropped.
func (t *Tracker) MergePersistToCurrentSession(ctx context.Context) error {
	viewer := t.currentViewer(ctx)
	if viewer == nil {
		return nil
	}

	persisted, err := viewer.GetRecentViews(ctx)
	if err != nil {
		return fmt.Errorf("loading persisted recent views: %w", err)
	}
	persisted = maps.Clone(persisted)
	if persisted == nil {
		persisted = map[EntityType][]EntityKey{}
	}

	current, err := t.session.all(ctx)
	if err != nil {
		return err
	}

	merged := make(map[EntityType][]EntityKey)
	for _, entityType := range sortedTypes(current) {
		proto, ok := t.registry.Lookup(entityType)
		if !ok {
			t.logger.Debug("skipping unknown session entity type", "entity_type", entityType)
			continue
		}

		keys := keylist.Merge(current[entityType], persisted[entityType], proto.RecentlyViewsLimit())
		if len(keys) > 0 {
			merged[entityType] = keys
		}
		delete(persisted, entityType)
	}

	for _, entityType := range sortedTypes(persisted) {
		proto, ok := t.registry.Lookup(entityType)
		if !ok {
			t.logger.Debug("skipping unknown persisted entity type", "entity_type", entityType)
			continue
		}

		keys := keylist.Truncate(persisted[entityType], proto.RecentlyViewsLimit())
		if len(keys) > 0 {
			merged[entityType] = keys
		}
	}

	if err := t.writeSession(ctx, merged); err != nil {
		return err
	}
	if err := writeViewer(ctx, viewer, merged); err != nil {
		return err
	}

	t.logger.Debug("merged recent views", "types", len(merged))
	return nil
}

func (t *Tracker) writeSession(ctx context.Context, views map[EntityType][]EntityKey) error {
	if err := t.session.forgetAll(ctx); err != nil {
		return err
	}
	for _, entityType := range sortedTypes(views) {
		if err := t.session.put(ctx, entityType, views[entityType]); err != nil {
			return err
		}
	}
	return nil
}

func writeViewer(ctx context.Context, viewer Viewer, views map[EntityType][]EntityKey) error {
	if r, ok := viewer.(ViewerReplacer); ok {
		if err := r.ReplaceRecentViews(ctx, views); err != nil {
			return fmt.Errorf("replacing persisted recent views: %w", err)
		}
		return nil
	}

	if err := viewer.DeleteRecentViews(ctx); err != nil {
		return fmt.Errorf("deleting persisted recent views: %w", err)
	}
	for _, entityType := range sortedTypes(views) {
		if err := viewer.SyncRecentViews(ctx, entityType, views[entityType]); err != nil {
			return fmt.Errorf("syncing recent views for %s: %w", entityType, err)
		}
	}
	return nil
}

func sortedTypes(m map[EntityType][]EntityKey) []EntityType {
	return slices.Sorted(maps.Keys(m))
}
