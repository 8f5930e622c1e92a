// ABOUTME: Session handles binding a backend to one session id
// ABOUTME: Handle implements the tracker's SessionStore over any Backend

package session

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptySessionID is returned by backends asked to store under an empty id.
var ErrEmptySessionID = errors.New("empty session id")

// Backend stores key/value pairs for many sessions. Keys use dot notation:
// forgetting "a" also forgets "a.b".
type Backend interface {
	GetValue(ctx context.Context, sessionID, key string) ([]byte, bool, error)
	PutValue(ctx context.Context, sessionID, key string, value []byte) error
	ForgetValue(ctx context.Context, sessionID, key string) error
	ValueKeys(ctx context.Context, sessionID, prefix string) ([]string, error)
}

// Handle is a Backend bound to one session id.
type Handle struct {
	backend Backend
	id      string
}

// Bind returns a handle for session id on backend.
func Bind(backend Backend, id string) *Handle {
	return &Handle{backend: backend, id: id}
}

// ID returns the session id.
func (h *Handle) ID() string { return h.id }

// Get returns the value stored under key.
func (h *Handle) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return h.backend.GetValue(ctx, h.id, key)
}

// Put stores value under key.
func (h *Handle) Put(ctx context.Context, key string, value []byte) error {
	return h.backend.PutValue(ctx, h.id, key, value)
}

// Forget removes key and every key nested under it.
func (h *Handle) Forget(ctx context.Context, key string) error {
	return h.backend.ForgetValue(ctx, h.id, key)
}

// Keys lists the keys nested under prefix.
func (h *Handle) Keys(ctx context.Context, prefix string) ([]string, error) {
	return h.backend.ValueKeys(ctx, h.id, prefix)
}

// Covers reports whether key is parent itself or nested under it.
func Covers(parent, key string) bool {
	return key == parent || strings.HasPrefix(key, parent+".")
}

// Nested reports whether key is nested under prefix.
func Nested(prefix, key string) bool {
	return strings.HasPrefix(key, prefix+".")
}
