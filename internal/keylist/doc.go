// Package keylist implements the bounded key list rules behind recently viewed
// histories.
//
// A list is ordered most recent first, holds each key at most once, and never
// exceeds its capacity. All functions are pure: inputs are never modified and
// the same inputs always produce the same output.
//
//	keys = keylist.InsertFront(keys, "42", 10)     // "42" moves to the front
//	merged := keylist.Merge(session, persisted, 10) // session keys take priority
package keylist
