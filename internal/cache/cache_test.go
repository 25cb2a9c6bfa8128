package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	disk, err := NewDisk(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	return New(NewMemory(), disk)
}

func TestContentHashChangesWithText(t *testing.T) {
	a := ContentHash("one")
	b := ContentHash("two")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, ContentHash("one"), "hash is deterministic")
	assert.Len(t, a, 64)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "headermain", Sanitize("header/main"))
	assert.Equal(t, "a_b-c", Sanitize("a_b-c"))
	assert.Equal(t, "", Sanitize("../../"))
	assert.Equal(t, "forumindex", Sanitize("forum index!"))
}

func TestGetSetRoundTrip(t *testing.T) {
	c := newTestCache(t)
	hash := ContentHash("body")

	_, tier, ok := c.Get("page", hash)
	assert.False(t, ok)
	assert.Equal(t, TierNone, tier)

	require.NoError(t, c.Set("page", hash, "fragment"))

	got, tier, ok := c.Get("page", hash)
	require.True(t, ok)
	assert.Equal(t, "fragment", got)
	assert.Equal(t, TierMemory, tier, "memory tier answers first")
}

func TestDiskHitPromotesToMemory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	disk, err := NewDisk(dir)
	require.NoError(t, err)

	hash := ContentHash("body")
	require.NoError(t, New(NewMemory(), disk).Set("page", hash, "fragment"))

	// Fresh memory tier, same disk: simulates a process restart.
	c := New(NewMemory(), disk)

	got, tier, ok := c.Get("page", hash)
	require.True(t, ok)
	assert.Equal(t, "fragment", got)
	assert.Equal(t, TierDisk, tier)

	_, tier, ok = c.Get("page", hash)
	require.True(t, ok)
	assert.Equal(t, TierMemory, tier, "disk hit was promoted")
}

func TestDifferentHashMisses(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Set("page", ContentHash("v1"), "f1"))

	_, _, ok := c.Get("page", ContentHash("v2"))
	assert.False(t, ok, "edited content must not serve the old fragment")
}

func TestInvalidateIdentity(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Set("page", ContentHash("v1"), "f1"))
	require.NoError(t, c.Set("page", ContentHash("v2"), "f2"))
	require.NoError(t, c.Set("other", ContentHash("v1"), "f3"))

	removed := c.Invalidate("page")
	assert.Equal(t, 4, removed, "two entries in each tier")

	_, _, ok := c.Get("page", ContentHash("v1"))
	assert.False(t, ok)
	_, _, ok = c.Get("other", ContentHash("v1"))
	assert.True(t, ok, "other identities untouched")
}

func TestInvalidateDoesNotCrossIdentityPrefixes(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Set("head", ContentHash("x"), "f1"))
	require.NoError(t, c.Set("header", ContentHash("x"), "f2"))

	c.Invalidate("head")

	_, _, ok := c.Get("header", ContentHash("x"))
	assert.True(t, ok, `invalidating "head" must not remove "header" entries`)
}

func TestClear(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Set("a", ContentHash("1"), "f1"))
	require.NoError(t, c.Set("b", ContentHash("2"), "f2"))

	assert.Equal(t, 4, c.Clear())
	_, _, ok := c.Get("a", ContentHash("1"))
	assert.False(t, ok)
}

func TestMemoryOnlyCache(t *testing.T) {
	c := New(NewMemory(), nil)
	hash := ContentHash("x")

	require.NoError(t, c.Set("page", hash, "fragment"))
	got, tier, ok := c.Get("page", hash)
	require.True(t, ok)
	assert.Equal(t, "fragment", got)
	assert.Equal(t, TierMemory, tier)

	stats := c.Stats()
	assert.False(t, stats.Persistent)
}

func TestDiskAutoCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "cache")
	disk, err := NewDisk(root)
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.True(t, disk.Writable())
}

func TestDiskWriteIsAtomic(t *testing.T) {
	root := filepath.Join(t.TempDir(), "cache")
	disk, err := NewDisk(root)
	require.NoError(t, err)

	require.NoError(t, disk.Set(Key("page", "h1"), "fragment"))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, de := range entries {
		assert.False(t, strings.Contains(de.Name(), ".tmp-"),
			"no temp files left behind after publish")
	}

	got, ok := disk.Get(Key("page", "h1"))
	require.True(t, ok)
	assert.Equal(t, "fragment", got)
}

func TestStats(t *testing.T) {
	c := newTestCache(t)
	hash := ContentHash("x")
	require.NoError(t, c.Set("page", hash, "fragment"))

	c.Get("page", hash)
	c.Get("page", ContentHash("miss"))

	stats := c.Stats()
	assert.Equal(t, 1, stats.MemoryEntries)
	assert.Equal(t, int64(1), stats.MemoryHits)
	assert.True(t, stats.Persistent)
	assert.Equal(t, 1, stats.DiskEntries)
	assert.True(t, stats.DiskWritable)
}
