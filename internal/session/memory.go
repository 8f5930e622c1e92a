// ABOUTME: In-memory session backend with sliding TTL and a session cap
// ABOUTME: Oldest sessions are evicted first; a background goroutine sweeps expired ones

package session

import (
	"container/list"
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// memEntry holds the values of one session.
type memEntry struct {
	values  map[string][]byte
	touched time.Time
	element *list.Element
}

// MemoryStore is a thread-safe, TTL-based, size-limited session backend.
// Sessions idle for longer than ttl read as empty. The order list keeps
// sessions by last access (oldest at front) for O(1) eviction.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]*memEntry
	order       *list.List
	ttl         time.Duration
	maxSessions int
	now         func() time.Time
	done        chan struct{}
	closed      bool
}

// NewMemoryStore creates a memory backend. A background goroutine
// periodically removes expired sessions until Close is called.
func NewMemoryStore(ttl time.Duration, maxSessions int) *MemoryStore {
	s := &MemoryStore{
		sessions:    make(map[string]*memEntry),
		order:       list.New(),
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
		done:        make(chan struct{}),
	}
	go s.cleanup()
	return s
}

// Session returns a handle bound to id.
func (s *MemoryStore) Session(id string) *Handle {
	return Bind(s, id)
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// GetValue returns the value stored under key for a live session.
func (s *MemoryStore) GetValue(_ context.Context, sessionID, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.liveLocked(sessionID)
	if e == nil {
		return nil, false, nil
	}
	v, ok := e.values[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

// PutValue stores value under key, creating the session if needed.
func (s *MemoryStore) PutValue(_ context.Context, sessionID, key string, value []byte) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.liveLocked(sessionID)
	if e == nil {
		e = s.createLocked(sessionID)
	}
	e.values[key] = slices.Clone(value)
	return nil
}

// ForgetValue removes key and everything nested under it.
func (s *MemoryStore) ForgetValue(_ context.Context, sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.liveLocked(sessionID)
	if e == nil {
		return nil
	}
	maps.DeleteFunc(e.values, func(k string, _ []byte) bool {
		return Covers(key, k)
	})
	return nil
}

// ValueKeys lists the keys nested under prefix, sorted.
func (s *MemoryStore) ValueKeys(_ context.Context, sessionID, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.liveLocked(sessionID)
	if e == nil {
		return nil, nil
	}
	var out []string
	for k := range e.values {
		if Nested(prefix, k) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Destroy drops a session and all of its values.
func (s *MemoryStore) Destroy(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[sessionID]; ok {
		s.removeLocked(sessionID, e)
	}
}

// liveLocked returns the session if present and not expired, refreshing its
// access time. Expired sessions are removed. Must be called with mu held.
func (s *MemoryStore) liveLocked(sessionID string) *memEntry {
	e, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	now := s.now()
	if s.ttl > 0 && now.Sub(e.touched) >= s.ttl {
		s.removeLocked(sessionID, e)
		return nil
	}
	e.touched = now
	s.order.MoveToBack(e.element)
	return e
}

// createLocked adds a session, evicting the oldest if at capacity.
// Must be called with mu held.
func (s *MemoryStore) createLocked(sessionID string) *memEntry {
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		s.evictOldest()
	}
	e := &memEntry{
		values:  make(map[string][]byte),
		touched: s.now(),
		element: s.order.PushBack(sessionID),
	}
	s.sessions[sessionID] = e
	return e
}

// evictOldest removes the least recently used session.
// Must be called with mu held. O(1) operation using linked list.
func (s *MemoryStore) evictOldest() {
	front := s.order.Front()
	if front == nil {
		return
	}
	id, _ := front.Value.(string)
	s.order.Remove(front)
	delete(s.sessions, id)
}

func (s *MemoryStore) removeLocked(sessionID string, e *memEntry) {
	s.order.Remove(e.element)
	delete(s.sessions, sessionID)
}

// cleanup runs in a background goroutine, periodically removing expired sessions.
func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runCleanup()
		case <-s.done:
			return
		}
	}
}

// runCleanup removes all expired sessions.
func (s *MemoryStore) runCleanup() {
	if s.ttl <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.sessions {
		if now.Sub(e.touched) >= s.ttl {
			s.removeLocked(id, e)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (s *MemoryStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.done)
		s.closed = true
	}
}
