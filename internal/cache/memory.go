package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// entry is one in-memory cached fragment.
type entry struct {
	fragment  string
	createdAt time.Time
}

// Memory is the in-process tier: a cheap map with no I/O. It is shared by
// concurrent requests in a long-lived process, so access is guarded.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry

	hits   int64
	misses int64
}

// NewMemory returns an empty in-memory tier.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry)}
}

// Get returns the fragment cached under key.
func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		atomic.AddInt64(&m.misses, 1)
		return "", false
	}
	atomic.AddInt64(&m.hits, 1)
	return e.fragment, true
}

// Set stores fragment under key, superseding any previous entry.
func (m *Memory) Set(key, fragment string) {
	m.mu.Lock()
	m.entries[key] = entry{fragment: fragment, createdAt: time.Now()}
	m.mu.Unlock()
}

// InvalidatePrefix removes every entry whose key starts with prefix and
// returns the number removed.
func (m *Memory) InvalidatePrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key := range m.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Clear drops every entry and returns the number removed.
func (m *Memory) Clear() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.entries)
	m.entries = make(map[string]entry)
	return n
}

// Len returns the current entry count.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Hits returns the number of memory-tier hits.
func (m *Memory) Hits() int64 { return atomic.LoadInt64(&m.hits) }

// Misses returns the number of memory-tier misses.
func (m *Memory) Misses() int64 { return atomic.LoadInt64(&m.misses) }
