// Package store provides persistent storage for recentviews using SQLite.
//
// # Architecture
//
// Store groups three narrower interfaces:
//
//   - ViewStore: durable recently viewed lists, one per viewer and entity type
//   - CatalogStore: the items those lists point at
//   - session.Backend: dot-notation session values with sliding expiry
//
// SQLiteStore implements all of them in a single struct. ViewerHistory binds a
// ViewStore to one viewer id so it can be handed to the recent tracker as its
// persistent viewer.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	busy_timeout=5000 (set through the DSN)
//
// Two drivers are linked in. NewSQLiteStore uses the pure Go modernc.org/sqlite
// driver ("sqlite"); NewSQLiteStoreWithDriver accepts "sqlite3" for
// github.com/mattn/go-sqlite3 when the binary is built with cgo.
//
// # Stored Histories
//
// Lists are stored as JSON arrays of keys. A row whose JSON cannot be decoded
// reads as an empty list rather than failing the request.
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrDuplicateItem: Catalog item already exists
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests:
//
//	store := store.NewMockStore()
//	// store implements Store
//
// Use NewSQLiteStore with a path under t.TempDir() for integration tests.
package store
