package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// New Tests
// =============================================================================

func TestNew(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		c := New(100, 5*time.Minute)
		assert.Equal(t, 100, c.capacity)
		assert.Equal(t, 5*time.Minute, c.defaultTTL)
		assert.True(t, c.enabled, "cache should be enabled by default")
	})

	t.Run("zero capacity uses default", func(t *testing.T) {
		assert.Equal(t, 1000, New(0, time.Minute).capacity)
	})

	t.Run("negative capacity uses default", func(t *testing.T) {
		assert.Equal(t, 1000, New(-10, time.Minute).capacity)
	})
}

func TestKey(t *testing.T) {
	assert.Equal(t, "search:graph:10", Key("search", "graph", 10))
	assert.Equal(t, "metrics", Key("metrics"))
	assert.NotEqual(t, Key("search", "a", 1), Key("search", "a", 2))
}

// =============================================================================
// Get/Put Tests
// =============================================================================

func TestCache_GetPut(t *testing.T) {
	c := New(10, time.Minute)

	t.Run("miss on empty cache", func(t *testing.T) {
		_, ok := c.Get("missing")
		assert.False(t, ok)
	})

	t.Run("hit after put", func(t *testing.T) {
		c.Put("k", "value")
		v, ok := c.Get("k")
		require.True(t, ok)
		assert.Equal(t, "value", v)
	})

	t.Run("overwrite keeps single entry", func(t *testing.T) {
		c.Put("k", "other")
		v, ok := c.Get("k")
		require.True(t, ok)
		assert.Equal(t, "other", v)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("hit bumps access count", func(t *testing.T) {
		c.Put("counted", 1)
		c.Get("counted")
		c.Get("counted")
		e := c.items["counted"].Value.(*entry)
		assert.Equal(t, uint64(2), e.accessCount)
	})
}

// =============================================================================
// TTL Tests
// =============================================================================

func TestCache_TTL(t *testing.T) {
	t.Run("expired entry is a miss and is removed", func(t *testing.T) {
		c := New(10, 20*time.Millisecond)
		c.Put("k", "v")
		time.Sleep(40 * time.Millisecond)

		_, ok := c.Get("k")
		assert.False(t, ok)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("zero TTL never expires", func(t *testing.T) {
		c := New(10, 0)
		c.Put("k", "v")
		time.Sleep(10 * time.Millisecond)
		_, ok := c.Get("k")
		assert.True(t, ok)
	})

	t.Run("per entry TTL overrides default", func(t *testing.T) {
		c := New(10, time.Hour)
		c.PutWithTTL("short", "v", 20*time.Millisecond)
		c.Put("long", "v")
		time.Sleep(40 * time.Millisecond)

		_, ok := c.Get("short")
		assert.False(t, ok)
		_, ok = c.Get("long")
		assert.True(t, ok)
	})

	t.Run("put purges every expired entry", func(t *testing.T) {
		c := New(10, time.Hour)
		c.PutWithTTL("a", 1, 10*time.Millisecond)
		c.PutWithTTL("b", 2, 10*time.Millisecond)
		c.Put("keep", 3)
		time.Sleep(30 * time.Millisecond)

		c.Put("new", 4)
		assert.ElementsMatch(t, []string{"keep", "new"}, c.Keys())
	})
}

// =============================================================================
// LRU Eviction Tests
// =============================================================================

func TestCache_LRUEviction(t *testing.T) {
	t.Run("evicts least recently used at capacity", func(t *testing.T) {
		c := New(3, time.Minute)
		c.Put("a", 1)
		c.Put("b", 2)
		c.Put("c", 3)
		c.Put("d", 4)

		_, ok := c.Get("a")
		assert.False(t, ok, "oldest entry should be evicted")
		assert.Equal(t, 3, c.Len())
	})

	t.Run("get refreshes recency", func(t *testing.T) {
		c := New(3, time.Minute)
		c.Put("a", 1)
		c.Put("b", 2)
		c.Put("c", 3)
		c.Get("a")
		c.Put("d", 4)

		_, ok := c.Get("a")
		assert.True(t, ok)
		_, ok = c.Get("b")
		assert.False(t, ok, "b was least recently used")
	})

	t.Run("overwrite at capacity does not evict", func(t *testing.T) {
		c := New(2, time.Minute)
		c.Put("a", 1)
		c.Put("b", 2)
		c.Put("a", 10)
		assert.Equal(t, []string{"a", "b"}, c.Keys())
	})
}

func TestCache_Remove(t *testing.T) {
	c := New(10, time.Minute)
	c.Put("k", "v")
	c.Remove("k")
	c.Remove("never-there")

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Stats().TotalBytes)
}

func TestCache_Clear(t *testing.T) {
	c := New(10, time.Minute)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a")
	c.Get("missing")

	c.Clear()

	stats := c.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)
	assert.Zero(t, stats.TotalBytes)
}

func TestCache_PurgeKeepsCounters(t *testing.T) {
	c := New(10, time.Minute)
	c.Put("a", 1)
	c.Get("a")
	c.Get("missing")

	c.Purge()

	stats := c.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Zero(t, stats.TotalBytes)
}

// =============================================================================
// Stats Tests
// =============================================================================

type sized struct{ n int }

func (s sized) SizeBytes() int { return s.n }

func TestCache_Stats(t *testing.T) {
	c := New(10, time.Minute)
	c.Put("k1", "abcd")
	c.Put("k2", []byte("xy"))
	c.Put("k3", sized{n: 100})
	c.Put("k4", 42)

	c.Get("k1")
	c.Get("k2")
	c.Get("k3")
	c.Get("missing")

	stats := c.Stats()
	assert.Equal(t, 4, stats.Size)
	assert.Equal(t, 10, stats.Capacity)
	assert.Equal(t, uint64(3), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 75.0, stats.HitRate, 0.001)
	assert.Equal(t, int64(2+4+2+2+2+100+2+defaultEntryBytes), stats.TotalBytes)
}

func TestCache_StatsZeroTotal(t *testing.T) {
	stats := New(10, time.Minute).Stats()
	assert.Zero(t, stats.HitRate)
}

func TestCache_SetEnabled(t *testing.T) {
	c := New(10, time.Minute)
	c.Put("k", "v")

	c.SetEnabled(false)
	assert.Equal(t, 0, c.Len(), "disabling should drop entries")

	c.Put("k2", "v")
	_, ok := c.Get("k2")
	assert.False(t, ok, "disabled cache should not store")

	c.SetEnabled(true)
	c.Put("k3", "v")
	_, ok = c.Get("k3")
	assert.True(t, ok)
}

// =============================================================================
// Concurrency Tests
// =============================================================================

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(100, time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := Key("worker", id, j%20)
				c.Put(key, j)
				c.Get(key)
				if j%10 == 0 {
					c.Remove(key)
				}
			}
		}(i)
	}
	wg.Wait()

	stats := c.Stats()
	assert.LessOrEqual(t, stats.Size, 100)
	assert.Positive(t, stats.Hits)
}

func TestCache_ConcurrentEviction(t *testing.T) {
	c := New(10, time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Put(fmt.Sprintf("%d-%d", id, j), j)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, c.Len())
	assert.Len(t, c.Keys(), 10)
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkCache_Put(b *testing.B) {
	c := New(1000, time.Minute)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Put(Key("bench", i%1000), i)
	}
}

func BenchmarkCache_Get_Hit(b *testing.B) {
	c := New(1000, time.Minute)
	c.Put("hot", 1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get("hot")
	}
}

func BenchmarkCache_WithEviction(b *testing.B) {
	c := New(100, time.Minute)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Put(Key("evict", i), i)
	}
}
