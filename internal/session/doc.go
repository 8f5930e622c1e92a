// Package session provides the transient per-session key/value storage used
// by the recently viewed tracker.
//
// A Backend stores values for many sessions; Bind (or MemoryStore.Session)
// narrows it to one session id, producing a Handle that satisfies
// recent.SessionStore. Keys use dot notation so that forgetting a namespace
// also forgets every key nested below it.
//
// Backends:
//
//   - MemoryStore: in-process, sliding TTL, capped session count
//   - store.SQLiteStore: shared across processes, see the store package
//
// Middleware reads the session cookie (issuing a uuid when absent) and puts the
// bound Handle in the request context for FromContext.
package session
