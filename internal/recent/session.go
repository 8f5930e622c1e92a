// ABOUTME: Session history adapter over a SessionStore
// ABOUTME: Namespaces lists as {prefix}.{type} and reads malformed values as empty

package recent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultPrefix is the session namespace used when none is configured.
const DefaultPrefix = "recently_viewed"

type sessionHistory struct {
	store  SessionStore
	prefix string
}

func (h *sessionHistory) key(t EntityType) string {
	return h.prefix + "." + string(t)
}

// get returns the stored keys for t. Absent or malformed values read as empty.
func (h *sessionHistory) get(ctx context.Context, t EntityType) ([]EntityKey, error) {
	raw, ok, err := h.store.Get(ctx, h.key(t))
	if err != nil {
		return nil, fmt.Errorf("reading session history for %s: %w", t, err)
	}
	if !ok {
		return nil, nil
	}
	return DecodeKeys(raw), nil
}

func (h *sessionHistory) put(ctx context.Context, t EntityType, keys []EntityKey) error {
	raw, err := EncodeKeys(keys)
	if err != nil {
		return err
	}
	if err := h.store.Put(ctx, h.key(t), raw); err != nil {
		return fmt.Errorf("writing session history for %s: %w", t, err)
	}
	return nil
}

func (h *sessionHistory) forget(ctx context.Context, t EntityType) error {
	if err := h.store.Forget(ctx, h.key(t)); err != nil {
		return fmt.Errorf("forgetting session history for %s: %w", t, err)
	}
	return nil
}

func (h *sessionHistory) forgetAll(ctx context.Context) error {
	if err := h.store.Forget(ctx, h.prefix); err != nil {
		return fmt.Errorf("forgetting session history: %w", err)
	}
	return nil
}

// all returns every type stored under the prefix.
func (h *sessionHistory) all(ctx context.Context) (map[EntityType][]EntityKey, error) {
	keys, err := h.store.Keys(ctx, h.prefix)
	if err != nil {
		return nil, fmt.Errorf("listing session history: %w", err)
	}

	out := make(map[EntityType][]EntityKey, len(keys))
	for _, k := range keys {
		name, ok := strings.CutPrefix(k, h.prefix+".")
		if !ok || name == "" {
			continue
		}
		t := EntityType(name)
		list, err := h.get(ctx, t)
		if err != nil {
			return nil, err
		}
		out[t] = list
	}
	return out, nil
}

// EncodeKeys serializes a key list as a JSON array of strings.
func EncodeKeys(keys []EntityKey) ([]byte, error) {
	if keys == nil {
		keys = []EntityKey{}
	}
	raw, err := json.Marshal(keys)
	if err != nil {
		return nil, fmt.Errorf("encoding keys: %w", err)
	}
	return raw, nil
}

// DecodeKeys parses a JSON array of keys. Numbers are accepted and kept in
// their literal form. Anything else yields an empty list.
func DecodeKeys(raw []byte) []EntityKey {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil
	}

	keys := make([]EntityKey, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			keys = append(keys, EntityKey(v))
		case json.Number:
			keys = append(keys, EntityKey(v.String()))
		default:
			return nil
		}
	}
	return keys
}
