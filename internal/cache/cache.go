// Package cache stores compiled fragments under content-addressed keys in
// two tiers: an in-process map and a persistent file-per-entry store with
// atomic-rename writes.
//
// The key is (template identity, content hash); a template edit changes the
// hash and therefore misses, superseding the old entry. No locking spans
// the tiers: concurrent writers of the same key race harmlessly because a
// given hash always maps to identical content.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Tier identifies which tier satisfied a lookup.
type Tier int

const (
	TierNone Tier = iota
	TierMemory
	TierDisk
)

// String returns the tier name used in logs and stats.
func (t Tier) String() string {
	switch t {
	case TierMemory:
		return "memory"
	case TierDisk:
		return "disk"
	default:
		return "none"
	}
}

// Cache is the two-tier fragment cache. The disk tier may be nil, in which
// case only the in-process tier is used (cache persistence disabled).
type Cache struct {
	mem  *Memory
	disk *Disk
}

// New assembles the cache. disk may be nil.
func New(mem *Memory, disk *Disk) *Cache {
	if mem == nil {
		mem = NewMemory()
	}
	return &Cache{mem: mem, disk: disk}
}

// ContentHash digests template text for use as the cache key component
// that changes whenever the text changes.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get looks the key up in the memory tier first, then the persistent tier.
// A persistent hit is promoted into the memory tier.
func (c *Cache) Get(identity, hash string) (string, Tier, bool) {
	key := Key(identity, hash)

	if fragment, ok := c.mem.Get(key); ok {
		return fragment, TierMemory, true
	}
	if c.disk == nil {
		return "", TierNone, false
	}
	fragment, ok := c.disk.Get(key)
	if !ok {
		return "", TierNone, false
	}
	c.mem.Set(key, fragment)
	return fragment, TierDisk, true
}

// Set stores the fragment in both tiers. A persistent-tier failure is
// returned but the memory tier keeps the entry either way.
func (c *Cache) Set(identity, hash, fragment string) error {
	key := Key(identity, hash)
	c.mem.Set(key, fragment)
	if c.disk == nil {
		return nil
	}
	return c.disk.Set(key, fragment)
}

// Invalidate drops every entry for a template identity from both tiers and
// returns the total removed.
func (c *Cache) Invalidate(identity string) int {
	prefix := Sanitize(identity) + "_"
	n := c.mem.InvalidatePrefix(prefix)
	if c.disk != nil {
		n += c.disk.InvalidateIdentity(identity)
	}
	return n
}

// Clear empties both tiers and returns the total number of entries removed.
func (c *Cache) Clear() int {
	n := c.mem.Clear()
	if c.disk != nil {
		n += c.disk.Clear()
	}
	return n
}

// Stats describes the cache for operator tooling.
type Stats struct {
	MemoryEntries int
	MemoryHits    int64
	MemoryMisses  int64
	DiskEntries   int
	DiskRoot      string
	DiskWritable  bool
	Persistent    bool
}

// Stats snapshots both tiers.
func (c *Cache) Stats() Stats {
	s := Stats{
		MemoryEntries: c.mem.Len(),
		MemoryHits:    c.mem.Hits(),
		MemoryMisses:  c.mem.Misses(),
	}
	if c.disk != nil {
		s.Persistent = true
		s.DiskEntries = c.disk.Len()
		s.DiskRoot = c.disk.Root()
		s.DiskWritable = c.disk.Writable()
	}
	return s
}
