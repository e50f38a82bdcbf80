package artwork

import (
	"container/list"
	"log/slog"
	"sync"
	"time"
)

// CacheEntry is a cached resolution result. The entry is valid only while
// now < CreatedAt+TTL; expiry is checked lazily on read.
type CacheEntry struct {
	Key       string        `json:"key"`
	URL       string        `json:"url"`
	ItemID    string        `json:"item_id"`
	ItemName  string        `json:"item_name"`
	Source    string        `json:"source"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
	HitCount  int64         `json:"hit_count"`
}

// expired reports whether the entry's TTL has elapsed at now.
func (e *CacheEntry) expired(now time.Time) bool {
	return !now.Before(e.CreatedAt.Add(e.TTL))
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Sets      int64   `json:"sets"`
	Evictions int64   `json:"evictions"`
	Size      int     `json:"size"`
	HitRate   float64 `json:"hit_rate"`
}

// Cache is a TTL-expiring, capacity-bounded, LRU-evicting store of resolution
// results. Recency order lives in a doubly linked list with the most recently
// used entry at the back; both Get hits and Set refresh an entry's position.
// All methods are safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	maxSize   int
	entries   map[string]*list.Element
	order     *list.List // of *CacheEntry
	hits      int64
	misses    int64
	sets      int64
	evictions int64

	logger   *slog.Logger
	now      func() time.Time
	onMutate func() // persistence hook, called after any state change
}

// NewCache creates a cache bounded to maxSize entries.
func NewCache(maxSize int, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = discardLogger()
	}
	return &Cache{
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the live entry for key, refreshing its recency and
// incrementing its hit count. An expired entry is removed and counted as a
// miss, not a hit.
func (c *Cache) Get(key string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return CacheEntry{}, false
	}

	entry := elem.Value.(*CacheEntry)
	if entry.expired(c.now()) {
		c.removeLocked(key, elem)
		c.misses++
		c.notifyMutate()
		return CacheEntry{}, false
	}

	entry.HitCount++
	c.order.MoveToBack(elem)
	c.hits++
	return *entry, true
}

// Set stores an entry under key, evicting the least recently used entry if a
// new key would exceed capacity. Setting an existing key updates it in place
// and refreshes its recency.
func (c *Cache) Set(key string, entry CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.Key = key
	if elem, ok := c.entries[key]; ok {
		*elem.Value.(*CacheEntry) = entry
		c.order.MoveToBack(elem)
		c.sets++
		c.notifyMutate()
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}

	c.entries[key] = c.order.PushBack(&entry)
	c.sets++
	c.notifyMutate()
}

// Invalidate removes the entry for key, reporting whether it existed.
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(key, elem)
	c.notifyMutate()
	return true
}

// Clear removes every entry. Counters other than size are preserved.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.notifyMutate()
}

// Cleanup eagerly removes all expired entries and returns how many were
// evicted.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for key, elem := range c.entries {
		entry := elem.Value.(*CacheEntry)
		if entry.expired(now) {
			c.removeLocked(key, elem)
			c.evictions++
			evicted++
		}
	}
	if evicted > 0 {
		c.logger.Debug("Evicted expired cache entries", "count", evicted)
		c.notifyMutate()
	}
	return evicted
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Sets:      c.sets,
		Evictions: c.evictions,
		Size:      len(c.entries),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// Entries returns a copy of every live entry, keyed by cache key.
// Expired entries are skipped but not removed.
func (c *Cache) Entries() map[string]CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make(map[string]CacheEntry, len(c.entries))
	for key, elem := range c.entries {
		entry := elem.Value.(*CacheEntry)
		if entry.expired(now) {
			continue
		}
		out[key] = *entry
	}
	return out
}

// restore replaces the cache contents and cumulative counters, used when
// loading a persisted snapshot at startup.
func (c *Cache) restore(entries map[string]CacheEntry, sets, evictions int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element, len(entries))
	c.order.Init()
	for key, entry := range entries {
		e := entry
		c.entries[key] = c.order.PushBack(&e)
	}
	c.sets = sets
	c.evictions = evictions
}

// setOnMutate installs the persistence hook. Must be called before the cache
// is shared between goroutines.
func (c *Cache) setOnMutate(fn func()) {
	c.onMutate = fn
}

func (c *Cache) notifyMutate() {
	if c.onMutate != nil {
		c.onMutate()
	}
}

// evictOldestLocked removes the least recently used entry.
// Caller must hold the lock.
func (c *Cache) evictOldestLocked() {
	oldest := c.order.Front()
	if oldest == nil {
		return
	}
	entry := oldest.Value.(*CacheEntry)
	c.removeLocked(entry.Key, oldest)
	c.evictions++
	c.logger.Debug("Evicted LRU cache entry", "key", entry.Key)
}

func (c *Cache) removeLocked(key string, elem *list.Element) {
	delete(c.entries, key)
	c.order.Remove(elem)
}
