// ABOUTME: Durable per-viewer recently viewed lists in SQLite
// ABOUTME: One row per viewer and entity type holding the ordered keys as JSON

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/2389/recentviews/internal/recent"
)

// SyncRecentViews replaces the stored list of entityType for viewerID.
func (s *SQLiteStore) SyncRecentViews(ctx context.Context, viewerID string, entityType recent.EntityType, keys []recent.EntityKey) error {
	data, err := recent.EncodeKeys(keys)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recent_views (viewer_id, entity_type, keys_json, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(viewer_id, entity_type) DO UPDATE SET
			keys_json = excluded.keys_json,
			updated_at = excluded.updated_at
	`, viewerID, string(entityType), string(data), formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("syncing recent views: %w", err)
	}
	return nil
}

// GetRecentViews returns every stored list of viewerID. Rows whose JSON does
// not decode read as empty lists.
func (s *SQLiteStore) GetRecentViews(ctx context.Context, viewerID string) (map[recent.EntityType][]recent.EntityKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_type, keys_json FROM recent_views
		WHERE viewer_id = ?
	`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("querying recent views: %w", err)
	}
	defer rows.Close()

	views := make(map[recent.EntityType][]recent.EntityKey)
	for rows.Next() {
		var entityType, keysJSON string
		if err := rows.Scan(&entityType, &keysJSON); err != nil {
			return nil, fmt.Errorf("scanning recent views: %w", err)
		}
		keys := recent.DecodeKeys([]byte(keysJSON))
		if keys == nil {
			s.logger.Debug("stored history unreadable, treating as empty",
				"viewer_id", viewerID, "entity_type", entityType)
			keys = []recent.EntityKey{}
		}
		views[recent.EntityType(entityType)] = keys
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent views: %w", err)
	}
	return views, nil
}

// DeleteRecentViews deletes the listed types of viewerID, or all of them when
// no type is given.
func (s *SQLiteStore) DeleteRecentViews(ctx context.Context, viewerID string, entityTypes ...recent.EntityType) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return deleteRecentViewsTx(ctx, tx, viewerID, entityTypes)
	})
}

// ReplaceRecentViews swaps the whole history of viewerID for views in one transaction.
func (s *SQLiteStore) ReplaceRecentViews(ctx context.Context, viewerID string, views map[recent.EntityType][]recent.EntityKey) error {
	now := formatTime(s.now())
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := deleteRecentViewsTx(ctx, tx, viewerID, nil); err != nil {
			return err
		}
		for entityType, keys := range views {
			data, err := recent.EncodeKeys(keys)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO recent_views (viewer_id, entity_type, keys_json, updated_at)
				VALUES (?, ?, ?, ?)
			`, viewerID, string(entityType), string(data), now); err != nil {
				return fmt.Errorf("inserting recent views: %w", err)
			}
		}
		return nil
	})
}

func deleteRecentViewsTx(ctx context.Context, tx *sql.Tx, viewerID string, entityTypes []recent.EntityType) error {
	if len(entityTypes) == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM recent_views WHERE viewer_id = ?`, viewerID); err != nil {
			return fmt.Errorf("deleting recent views: %w", err)
		}
		return nil
	}

	placeholders := make([]string, len(entityTypes))
	args := make([]any, 0, len(entityTypes)+1)
	args = append(args, viewerID)
	for i, t := range entityTypes {
		placeholders[i] = "?"
		args = append(args, string(t))
	}
	query := `DELETE FROM recent_views WHERE viewer_id = ? AND entity_type IN (` +
		strings.Join(placeholders, ", ") + `)`
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting recent views: %w", err)
	}
	return nil
}

// ViewerHistory binds a ViewStore to one viewer so it satisfies recent.Viewer
// and recent.ViewerReplacer.
type ViewerHistory struct {
	store ViewStore
	id    string
}

// NewViewerHistory returns the history of viewer id held in vs.
func NewViewerHistory(vs ViewStore, id string) *ViewerHistory {
	return &ViewerHistory{store: vs, id: id}
}

// Viewer returns the durable history of viewer id.
func (s *SQLiteStore) Viewer(id string) *ViewerHistory {
	return NewViewerHistory(s, id)
}

// ID returns the viewer id.
func (v *ViewerHistory) ID() string { return v.id }

func (v *ViewerHistory) SyncRecentViews(ctx context.Context, entityType recent.EntityType, keys []recent.EntityKey) error {
	return v.store.SyncRecentViews(ctx, v.id, entityType, keys)
}

func (v *ViewerHistory) GetRecentViews(ctx context.Context) (map[recent.EntityType][]recent.EntityKey, error) {
	return v.store.GetRecentViews(ctx, v.id)
}

func (v *ViewerHistory) DeleteRecentViews(ctx context.Context, entityTypes ...recent.EntityType) error {
	return v.store.DeleteRecentViews(ctx, v.id, entityTypes...)
}

func (v *ViewerHistory) ReplaceRecentViews(ctx context.Context, views map[recent.EntityType][]recent.EntityKey) error {
	return v.store.ReplaceRecentViews(ctx, v.id, views)
}
