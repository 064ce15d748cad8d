package storage

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/p3if/pkg/model"
)

func setupTestRedis(t *testing.T) (*RedisPersistence, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	r := NewRedisPersistenceWithClient(client, RedisConfig{Prefix: "test:", Timeout: time.Second})
	t.Cleanup(func() { r.Close() })
	return r, mr
}

func TestNewRedisPersistence(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	r, err := NewRedisPersistence(RedisConfig{Addr: mr.Addr(), Prefix: "p3if:"})
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, DefaultRedisConfig().Timeout, r.timeout)

	t.Run("unreachable server", func(t *testing.T) {
		_, err := NewRedisPersistence(RedisConfig{Addr: "127.0.0.1:1", Timeout: 200 * time.Millisecond})
		assert.Error(t, err)
	})
}

func TestRedisPersistence_SaveLoad(t *testing.T) {
	r, mr := setupTestRedis(t)

	z := model.NewPerspective("Zeta")
	z.ID = "z"
	a := model.NewProperty("Alpha")
	a.ID = "a"
	rel, err := model.NewRelationship("a", "", "z", 0.2, 0.3)
	require.NoError(t, err)

	require.NoError(t, r.SavePattern(z))
	require.NoError(t, r.SavePattern(a))
	require.NoError(t, r.SaveRelationship(rel))
	z.Name = "Zeta v2"
	require.NoError(t, r.SavePattern(z))

	assert.True(t, mr.Exists("test:pattern:z"))
	assert.True(t, mr.Exists("test:relationship:"+rel.ID))

	patterns, rels, err := r.LoadAll()
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, "z", patterns[0].ID)
	assert.Equal(t, "Zeta v2", patterns[0].Name)
	assert.Equal(t, "a", patterns[1].ID)
	require.Len(t, rels, 1)
	assert.Equal(t, "z", rels[0].PerspectiveID)
}

func TestRedisPersistence_DeleteAndClear(t *testing.T) {
	r, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("other:key", "untouched"))

	p := model.NewProperty("P")
	require.NoError(t, r.SavePattern(p))
	require.NoError(t, r.DeletePattern(p.ID))
	assert.False(t, mr.Exists("test:pattern:"+p.ID))

	require.NoError(t, r.SavePattern(model.NewProcess("C")))
	require.NoError(t, r.Clear())

	patterns, rels, err := r.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, patterns)
	assert.Empty(t, rels)
	assert.True(t, mr.Exists("other:key"), "clear only touches the prefix")
}

func TestRedisPersistence_BackendDown(t *testing.T) {
	r, mr := setupTestRedis(t)
	s := NewStore(Options{Persistence: r})

	mr.Close()

	p := model.NewProperty("P")
	_, err := s.AddPattern(p)
	require.NoError(t, err, "backend failure does not fail the mutation")
	_, ok := s.GetPattern(p.ID)
	assert.True(t, ok)
}
