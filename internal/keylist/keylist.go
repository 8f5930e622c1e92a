// ABOUTME: Bounded, recency-ordered key lists with stable deduplication
// ABOUTME: Pure functions used by the tracker for inserts and session/viewer merges

package keylist

// InsertFront returns a new list with key at the front, any earlier occurrence
// of key removed, and the result truncated to limit. existing is not modified.
func InsertFront[K comparable](existing []K, key K, limit int) []K {
	if limit <= 0 {
		return []K{}
	}

	out := make([]K, 0, min(len(existing)+1, limit))
	out = append(out, key)
	seen := map[K]struct{}{key: {}}
	for _, k := range existing {
		if len(out) == limit {
			break
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Merge combines a primary list a with a secondary list b.
// When a already holds limit or more keys, a wins outright and b is discarded.
// Otherwise the result is a followed by the keys of b not already present,
// truncated to limit.
func Merge[K comparable](a, b []K, limit int) []K {
	if limit <= 0 {
		return []K{}
	}
	if len(a) >= limit {
		return Truncate(a, limit)
	}

	combined := make([]K, 0, len(a)+len(b))
	combined = append(combined, a...)
	combined = append(combined, b...)
	return Truncate(Unique(combined), limit)
}

// Unique removes duplicates, keeping the first occurrence of each key.
func Unique[K comparable](keys []K) []K {
	out := make([]K, 0, len(keys))
	seen := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Truncate returns a copy of keys holding at most limit elements.
func Truncate[K comparable](keys []K, limit int) []K {
	if limit < 0 {
		limit = 0
	}
	n := min(len(keys), limit)
	out := make([]K, n)
	copy(out, keys[:n])
	return out
}
