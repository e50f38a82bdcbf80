package artwork

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCache returns a cache with a controllable clock.
func newTestCache(maxSize int) (*Cache, *time.Time) {
	c := NewCache(maxSize, discardLogger())
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }
	return c, &current
}

func testEntry(url string, createdAt time.Time, ttl time.Duration) CacheEntry {
	return CacheEntry{
		URL:       url,
		Source:    "test",
		CreatedAt: createdAt,
		TTL:       ttl,
	}
}

func TestCacheSetAndGet(t *testing.T) {
	t.Parallel()

	c, now := newTestCache(10)
	c.Set("k1", testEntry("http://example.com/1.jpg", *now, time.Hour))

	entry, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "http://example.com/1.jpg", entry.URL)
	assert.Equal(t, "k1", entry.Key)
	assert.Equal(t, int64(1), entry.HitCount)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, 1, stats.Size)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
}

func TestCacheTTLExpiry(t *testing.T) {
	t.Parallel()

	c, now := newTestCache(10)
	c.Set("k1", testEntry("http://example.com/1.jpg", *now, 100*time.Millisecond))

	_, ok := c.Get("k1")
	require.True(t, ok, "entry should be live before TTL elapses")

	*now = now.Add(150 * time.Millisecond)

	_, ok = c.Get("k1")
	assert.False(t, ok, "entry should expire after TTL")
	assert.Equal(t, 0, c.Stats().Size, "expired entry should be removed on read")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses, "expired read counts as a miss")
}

func TestCacheLRUEviction(t *testing.T) {
	t.Parallel()

	c, now := newTestCache(3)
	for i := 1; i <= 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), testEntry(fmt.Sprintf("http://example.com/%d.jpg", i), *now, time.Hour))
	}

	// Touch k1 so k2 becomes the least recently used.
	_, ok := c.Get("k1")
	require.True(t, ok)

	c.Set("k4", testEntry("http://example.com/4.jpg", *now, time.Hour))

	_, ok = c.Get("k2")
	assert.False(t, ok, "least recently used entry should be evicted")
	for _, key := range []string{"k1", "k3", "k4"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "entry %s should survive eviction", key)
	}

	assert.Equal(t, int64(1), c.Stats().Evictions)
	assert.Equal(t, 3, c.Stats().Size)
}

func TestCacheSetExistingKeyDoesNotEvict(t *testing.T) {
	t.Parallel()

	c, now := newTestCache(2)
	c.Set("k1", testEntry("http://example.com/1.jpg", *now, time.Hour))
	c.Set("k2", testEntry("http://example.com/2.jpg", *now, time.Hour))

	// Updating an existing key at capacity must not evict anything.
	c.Set("k1", testEntry("http://example.com/1-updated.jpg", *now, time.Hour))

	assert.Equal(t, int64(0), c.Stats().Evictions)
	entry, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "http://example.com/1-updated.jpg", entry.URL)

	// k2 is now the LRU entry; inserting k3 should evict it.
	c.Set("k3", testEntry("http://example.com/3.jpg", *now, time.Hour))
	_, ok = c.Get("k2")
	assert.False(t, ok)
}

func TestCacheInvalidate(t *testing.T) {
	t.Parallel()

	c, now := newTestCache(10)
	c.Set("k1", testEntry("http://example.com/1.jpg", *now, time.Hour))

	assert.True(t, c.Invalidate("k1"))
	assert.False(t, c.Invalidate("k1"), "second invalidation should report absence")

	_, ok := c.Get("k1")
	assert.False(t, ok)
}

func TestCacheClearPreservesCounters(t *testing.T) {
	t.Parallel()

	c, now := newTestCache(10)
	c.Set("k1", testEntry("http://example.com/1.jpg", *now, time.Hour))
	c.Get("k1")

	c.Clear()

	stats := c.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, int64(1), stats.Hits, "cumulative counters survive Clear")
	assert.Equal(t, int64(1), stats.Sets)
}

func TestCacheCleanup(t *testing.T) {
	t.Parallel()

	c, now := newTestCache(10)
	c.Set("short", testEntry("http://example.com/s.jpg", *now, time.Minute))
	c.Set("long", testEntry("http://example.com/l.jpg", *now, time.Hour))

	*now = now.Add(10 * time.Minute)

	assert.Equal(t, 1, c.Cleanup())
	assert.Equal(t, 1, c.Stats().Size)
	assert.Equal(t, int64(1), c.Stats().Evictions)

	_, ok := c.Get("long")
	assert.True(t, ok)
}

func TestCacheEntriesSkipsExpired(t *testing.T) {
	t.Parallel()

	c, now := newTestCache(10)
	c.Set("live", testEntry("http://example.com/live.jpg", *now, time.Hour))
	c.Set("dead", testEntry("http://example.com/dead.jpg", *now, time.Minute))

	*now = now.Add(30 * time.Minute)

	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.Contains(t, entries, "live")
}
