// ABOUTME: SQLite session backend with sliding expiry
// ABOUTME: Stores dot-notation session values so sessions survive restarts and span processes

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/2389/recentviews/internal/session"
)

// timeFormat sorts lexically in the same order as the instants it encodes.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// GetValue returns the value stored under key for sessionID and refreshes the
// session's expiry. Expired sessions are deleted and read as empty.
func (s *SQLiteStore) GetValue(ctx context.Context, sessionID, key string) ([]byte, bool, error) {
	live, err := s.touchSession(ctx, sessionID)
	if err != nil || !live {
		return nil, false, err
	}

	var value []byte
	err = s.db.QueryRowContext(ctx, `
		SELECT value FROM session_values WHERE session_id = ? AND key = ?
	`, sessionID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading session value: %w", err)
	}
	return value, true, nil
}

// PutValue stores value under key for sessionID, creating the session if needed.
func (s *SQLiteStore) PutValue(ctx context.Context, sessionID, key string, value []byte) error {
	if sessionID == "" {
		return session.ErrEmptySessionID
	}
	if value == nil {
		value = []byte{}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (session_id, expires_at) VALUES (?, ?)
			ON CONFLICT(session_id) DO UPDATE SET expires_at = excluded.expires_at
		`, sessionID, s.expiresAt()); err != nil {
			return fmt.Errorf("upserting session: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session_values (session_id, key, value) VALUES (?, ?, ?)
			ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value
		`, sessionID, key, value); err != nil {
			return fmt.Errorf("writing session value: %w", err)
		}
		return nil
	})
}

// ForgetValue removes key and every key nested under it.
func (s *SQLiteStore) ForgetValue(ctx context.Context, sessionID, key string) error {
	nested := key + "."
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM session_values
		WHERE session_id = ? AND (key = ? OR substr(key, 1, ?) = ?)
	`, sessionID, key, utf8.RuneCountInString(nested), nested)
	if err != nil {
		return fmt.Errorf("forgetting session value: %w", err)
	}
	return nil
}

// ValueKeys lists the keys of sessionID nested under prefix, sorted.
func (s *SQLiteStore) ValueKeys(ctx context.Context, sessionID, prefix string) ([]string, error) {
	live, err := s.touchSession(ctx, sessionID)
	if err != nil || !live {
		return nil, err
	}

	nested := prefix + "."
	rows, err := s.db.QueryContext(ctx, `
		SELECT key FROM session_values
		WHERE session_id = ? AND substr(key, 1, ?) = ?
		ORDER BY key
	`, sessionID, utf8.RuneCountInString(nested), nested)
	if err != nil {
		return nil, fmt.Errorf("listing session keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning session key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// DestroySession removes a session and all its values.
func (s *SQLiteStore) DestroySession(ctx context.Context, sessionID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return deleteSessionTx(ctx, tx, sessionID)
	})
}

// DeleteExpiredSessions removes every session whose expiry has passed and
// returns how many were removed.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	if s.sessionTTL <= 0 {
		return 0, nil
	}
	now := formatTime(s.now())

	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM session_values WHERE session_id IN (
				SELECT session_id FROM sessions WHERE expires_at <= ?
			)
		`, now); err != nil {
			return fmt.Errorf("deleting expired values: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
		if err != nil {
			return fmt.Errorf("deleting expired sessions: %w", err)
		}
		removed, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Debug("expired sessions removed", "count", removed)
	}
	return removed, nil
}

// touchSession reports whether sessionID exists and has not expired, sliding
// its expiry forward when it is live.
func (s *SQLiteStore) touchSession(ctx context.Context, sessionID string) (bool, error) {
	var expiresAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT expires_at FROM sessions WHERE session_id = ?
	`, sessionID).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading session: %w", err)
	}

	if s.sessionTTL > 0 && expiresAt <= formatTime(s.now()) {
		if err := s.DestroySession(ctx, sessionID); err != nil {
			return false, err
		}
		return false, nil
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET expires_at = ? WHERE session_id = ?
	`, s.expiresAt(), sessionID); err != nil {
		return false, fmt.Errorf("refreshing session: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) expiresAt() string {
	if s.sessionTTL <= 0 {
		return "9999-12-31T23:59:59.000000000Z"
	}
	return formatTime(s.now().Add(s.sessionTTL))
}

func deleteSessionTx(ctx context.Context, tx *sql.Tx, sessionID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_values WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting session values: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
