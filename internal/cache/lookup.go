// Package cache holds the in-memory lookup cache: a session-scoped map from
// normalized query key to a previously fetched record. Only successful
// fetches are stored and nothing is ever evicted; entries are small and die
// with the session.
package cache

import "sync"

// LookupCache maps lookup keys to fetched records. Keys are normalized by
// the caller; the cache performs no normalization itself.
type LookupCache[T any] struct {
	mu      sync.RWMutex
	entries map[string]*T
}

func NewLookupCache[T any]() *LookupCache[T] {
	return &LookupCache[T]{
		entries: make(map[string]*T),
	}
}

// Get returns the cached record for key, if any.
func (c *LookupCache[T]) Get(key string) (*T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	record, ok := c.entries[key]
	return record, ok
}

// Put stores record under key, replacing any previous entry wholesale.
// Nil records are rejected: failed lookups are never cached.
func (c *LookupCache[T]) Put(key string, record *T) {
	if record == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = record
}

// Len returns the number of cached entries.
func (c *LookupCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
