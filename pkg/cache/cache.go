// Package cache provides the bounded LRU cache with per-entry TTL used by the
// P3IF store for memoized queries and metrics snapshots.
//
// Features:
// - LRU eviction for bounded memory
// - Per-entry TTL with a cache-wide default
// - Expired entries are purged on every write and evicted lazily on read
// - Thread-safe operations
// - Hit/miss statistics and an estimated byte size
//
// Two instances are used in practice: a general query cache and a metrics
// cache, each with its own capacity and default TTL.
//
// Usage:
//
//	queries := cache.New(cache.DefaultQueryCapacity, cache.DefaultQueryTTL)
//
//	key := cache.Key("search", query, limit)
//	if v, ok := queries.Get(key); ok {
//		return v.([]*model.Pattern)
//	}
//
//	results := search(query, limit)
//	queries.Put(key, results)
package cache

import (
	"container/list"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Default sizes for the two cache instances.
const (
	DefaultQueryCapacity   = 500
	DefaultQueryTTL        = 10 * time.Minute
	DefaultMetricsCapacity = 200
	DefaultMetricsTTL      = 5 * time.Minute

	defaultCapacity = 1000

	// defaultEntryBytes is the size estimate for values that are neither
	// strings, byte slices nor Sizers.
	defaultEntryBytes = 64
)

// Sizer is implemented by values that can report their approximate size.
type Sizer interface {
	SizeBytes() int
}

// Cache is a thread-safe LRU cache with per-entry TTL.
//
// The cache uses:
// - Hash map for O(1) lookups
// - Doubly-linked list for LRU ordering
// - TTL stored on each entry
//
// Get mutates recency, so a plain Mutex guards everything.
type Cache struct {
	mu sync.Mutex

	capacity   int
	defaultTTL time.Duration
	enabled    bool

	list  *list.List
	items map[string]*list.Element

	hits       uint64
	misses     uint64
	totalBytes int64
}

// entry holds a cached value with its bookkeeping.
type entry struct {
	key         string
	value       any
	createdAt   time.Time
	lastAccess  time.Time
	accessCount uint64
	ttl         time.Duration
	bytes       int
}

func (e *entry) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.createdAt) > e.ttl
}

// New creates a cache.
//
// Parameters:
//   - capacity: Maximum number of entries (LRU eviction when reached); <= 0 uses 1000
//   - defaultTTL: TTL for entries stored with Put (0 = no expiration)
//
// Example:
//
//	metrics := cache.New(cache.DefaultMetricsCapacity, cache.DefaultMetricsTTL)
func New(capacity int, defaultTTL time.Duration) *Cache {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Cache{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		enabled:    true,
		list:       list.New(),
		items:      make(map[string]*list.Element, capacity),
	}
}

// Key joins a prefix and parts into a cache key: "prefix:part1:part2".
func Key(prefix string, parts ...any) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteByte(':')
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// Get returns the value for key if present and not expired.
//
// An expired entry is removed and counted as a miss. A hit moves the entry to
// the front of the LRU list and bumps its access count.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		c.misses++
		return nil, false
	}

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}

	e := elem.Value.(*entry)
	now := time.Now()
	if e.expired(now) {
		c.removeElement(elem)
		c.misses++
		return nil, false
	}

	e.lastAccess = now
	e.accessCount++
	c.list.MoveToFront(elem)
	c.hits++
	return e.value, true
}

// Put stores value under key with the default TTL.
func (c *Cache) Put(key string, value any) {
	c.PutWithTTL(key, value, c.defaultTTL)
}

// PutWithTTL stores value under key with its own TTL (0 = no expiration).
//
// Every expired entry is purged first. If the key is new and the cache is at
// capacity, the least recently used entry is evicted.
func (c *Cache) PutWithTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}

	now := time.Now()
	c.purgeExpired(now)

	size := estimateSize(key, value)

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry)
		c.totalBytes += int64(size - e.bytes)
		e.value = value
		e.createdAt = now
		e.lastAccess = now
		e.ttl = ttl
		e.bytes = size
		c.list.MoveToFront(elem)
		return
	}

	if c.list.Len() >= c.capacity {
		c.evictOldest()
	}

	e := &entry{
		key:        key,
		value:      value,
		createdAt:  now,
		lastAccess: now,
		ttl:        ttl,
		bytes:      size,
	}
	c.items[key] = c.list.PushFront(e)
	c.totalBytes += int64(size)
}

// Remove deletes key from the cache.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes every entry and resets the hit/miss counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.list.Init()
	c.items = make(map[string]*list.Element, c.capacity)
	c.hits = 0
	c.misses = 0
	c.totalBytes = 0
}

// Purge removes every entry but keeps the hit/miss counters. The store calls
// it on each mutation so statistics survive invalidation.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.list.Init()
	c.items = make(map[string]*list.Element, c.capacity)
	c.totalBytes = 0
}

// Len returns the number of entries, including expired ones not yet purged.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Len()
}

// Keys returns the cached keys from most to least recently used.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.list.Len())
	for elem := c.list.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*entry).key)
	}
	return keys
}

// Stats holds cache performance statistics.
type Stats struct {
	Size       int     `json:"size"`        // Current number of entries
	Capacity   int     `json:"capacity"`    // Maximum entries
	Hits       uint64  `json:"hits"`        // Number of cache hits
	Misses     uint64  `json:"misses"`      // Number of cache misses
	HitRate    float64 `json:"hit_rate"`    // Hit rate percentage (0-100)
	TotalBytes int64   `json:"total_bytes"` // Estimated size of keys and values
}

// Stats returns a snapshot of cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
	}

	return Stats{
		Size:       c.list.Len(),
		Capacity:   c.capacity,
		Hits:       c.hits,
		Misses:     c.misses,
		HitRate:    hitRate,
		TotalBytes: c.totalBytes,
	}
}

// SetEnabled enables or disables the cache. Disabling drops every entry.
func (c *Cache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled

	if !enabled {
		c.list.Init()
		c.items = make(map[string]*list.Element, c.capacity)
		c.totalBytes = 0
	}
}

// purgeExpired removes every expired entry.
// Caller must hold the lock.
func (c *Cache) purgeExpired(now time.Time) {
	for elem := c.list.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*entry).expired(now) {
			c.removeElement(elem)
		}
		elem = prev
	}
}

// evictOldest removes the least recently used entry.
// Caller must hold the lock.
func (c *Cache) evictOldest() {
	if elem := c.list.Back(); elem != nil {
		c.removeElement(elem)
	}
}

// removeElement removes an element from the cache.
// Caller must hold the lock.
func (c *Cache) removeElement(elem *list.Element) {
	c.list.Remove(elem)
	e := elem.Value.(*entry)
	delete(c.items, e.key)
	c.totalBytes -= int64(e.bytes)
}

func estimateSize(key string, value any) int {
	size := len(key)
	switch v := value.(type) {
	case Sizer:
		size += v.SizeBytes()
	case string:
		size += len(v)
	case []byte:
		size += len(v)
	default:
		size += defaultEntryBytes
	}
	return size
}
