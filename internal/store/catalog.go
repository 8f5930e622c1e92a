// ABOUTME: Catalog items that recently viewed lists point at
// ABOUTME: Batch lookup by id backs the entity queries of the catalog package

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateItem inserts item. An empty ID is filled with a new uuid and a zero
// CreatedAt with the current time.
func (s *SQLiteStore) CreateItem(ctx context.Context, item *Item) error {
	if item.Kind == "" {
		return errors.New("item kind is required")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO catalog_items (kind, id, title, created_at)
		VALUES (?, ?, ?, ?)
	`, item.Kind, item.ID, item.Title, formatTime(item.CreatedAt))
	if isConstraintViolation(err) {
		return ErrDuplicateItem
	}
	if err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}

// GetItem retrieves one item, returning ErrNotFound when it does not exist.
func (s *SQLiteStore) GetItem(ctx context.Context, kind, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT kind, id, title, created_at FROM catalog_items
		WHERE kind = ? AND id = ?
	`, kind, id)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying item: %w", err)
	}
	return item, nil
}

// GetItems returns the items of kind whose id is in ids, in storage order.
func (s *SQLiteStore) GetItems(ctx context.Context, kind string, ids []string) ([]*Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, kind)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, id, title, created_at FROM catalog_items
		WHERE kind = ? AND id IN (`+strings.Join(placeholders, ", ")+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// ListItems returns up to limit items of kind, newest first. A limit of zero
// or less returns all of them.
func (s *SQLiteStore) ListItems(ctx context.Context, kind string, limit int) ([]*Item, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, id, title, created_at FROM catalog_items
		WHERE kind = ?
		ORDER BY created_at DESC, id
		LIMIT ?
	`, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var item Item
	var createdAt string
	if err := row.Scan(&item.Kind, &item.ID, &item.Title, &createdAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	item.CreatedAt = t
	return &item, nil
}

func scanItems(rows *sql.Rows) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}
