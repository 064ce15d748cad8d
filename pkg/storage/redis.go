package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/orneryd/p3if/pkg/model"
)

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Prefix namespaces every key, e.g. "p3if:"
	Prefix string
	// Timeout bounds each backend call
	Timeout time.Duration
}

// DefaultRedisConfig returns a default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:    "localhost:6379",
		Prefix:  "p3if:",
		Timeout: 5 * time.Second,
	}
}

// RedisPersistence mirrors the store into a Redis keyspace.
//
// Keys:
//   - <prefix>pattern:<id> -> JSON(storedPattern)
//   - <prefix>relationship:<id> -> JSON(storedRelationship)
//   - <prefix>seq -> insertion counter
type RedisPersistence struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisPersistence connects to Redis and verifies the connection.
func NewRedisPersistence(config RedisConfig) (*RedisPersistence, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	r := NewRedisPersistenceWithClient(client, config)

	// Test connection
	ctx, cancel := r.context()
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", config.Addr, err)
	}
	return r, nil
}

// NewRedisPersistenceWithClient wraps an existing client.
func NewRedisPersistenceWithClient(client *redis.Client, config RedisConfig) *RedisPersistence {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultRedisConfig().Timeout
	}
	return &RedisPersistence{
		client:  client,
		prefix:  config.Prefix,
		timeout: timeout,
	}
}

func (r *RedisPersistence) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

func (r *RedisPersistence) patternKey(id string) string {
	return r.prefix + "pattern:" + id
}

func (r *RedisPersistence) relationshipKey(id string) string {
	return r.prefix + "relationship:" + id
}

func (r *RedisPersistence) seqKey() string {
	return r.prefix + "seq"
}

// SavePattern writes p, keeping the sequence number of an earlier save.
func (r *RedisPersistence) SavePattern(p *model.Pattern) error {
	ctx, cancel := r.context()
	defer cancel()

	key := r.patternKey(p.ID)
	seq, err := r.sequenceFor(ctx, key, func(val []byte) (uint64, error) {
		sp, err := deserializePattern(val)
		if err != nil {
			return 0, err
		}
		return sp.Seq, nil
	})
	if err != nil {
		return err
	}

	data, err := serializePattern(seq, p)
	if err != nil {
		return fmt.Errorf("failed to encode pattern: %w", err)
	}
	return r.client.Set(ctx, key, data, 0).Err()
}

// SaveRelationship writes rel, keeping the sequence number of an earlier
// save.
func (r *RedisPersistence) SaveRelationship(rel *model.Relationship) error {
	ctx, cancel := r.context()
	defer cancel()

	key := r.relationshipKey(rel.ID)
	seq, err := r.sequenceFor(ctx, key, func(val []byte) (uint64, error) {
		sr, err := deserializeRelationship(val)
		if err != nil {
			return 0, err
		}
		return sr.Seq, nil
	})
	if err != nil {
		return err
	}

	data, err := serializeRelationship(seq, rel)
	if err != nil {
		return fmt.Errorf("failed to encode relationship: %w", err)
	}
	return r.client.Set(ctx, key, data, 0).Err()
}

// DeletePattern removes a pattern.
func (r *RedisPersistence) DeletePattern(id string) error {
	ctx, cancel := r.context()
	defer cancel()
	return r.client.Del(ctx, r.patternKey(id)).Err()
}

// DeleteRelationship removes a relationship.
func (r *RedisPersistence) DeleteRelationship(id string) error {
	ctx, cancel := r.context()
	defer cancel()
	return r.client.Del(ctx, r.relationshipKey(id)).Err()
}

// Clear removes every key under the prefix.
func (r *RedisPersistence) Clear() error {
	ctx, cancel := r.context()
	defer cancel()

	// Use SCAN to find all keys with our prefix
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// LoadAll returns every stored pattern and relationship in insertion order.
func (r *RedisPersistence) LoadAll() ([]*model.Pattern, []*model.Relationship, error) {
	ctx, cancel := r.context()
	defer cancel()

	var patterns []*storedPattern
	err := r.scanValues(ctx, r.patternKey("*"), func(val []byte) error {
		sp, err := deserializePattern(val)
		if err != nil {
			return err
		}
		patterns = append(patterns, sp)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var rels []*storedRelationship
	err = r.scanValues(ctx, r.relationshipKey("*"), func(val []byte) error {
		sr, err := deserializeRelationship(val)
		if err != nil {
			return err
		}
		rels = append(rels, sr)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return materialize(patterns, rels)
}

// Close closes the Redis connection
func (r *RedisPersistence) Close() error {
	return r.client.Close()
}

func (r *RedisPersistence) scanValues(ctx context.Context, match string, fn func([]byte) error) error {
	iter := r.client.Scan(ctx, 0, match, 0).Iterator()
	for iter.Next(ctx) {
		val, err := r.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			// Deleted between SCAN and GET.
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(val); err != nil {
			return err
		}
	}
	return iter.Err()
}

// sequenceFor returns the sequence stored under key, or takes the next value
// of the insertion counter when the key is absent.
func (r *RedisPersistence) sequenceFor(ctx context.Context, key string, decode func([]byte) (uint64, error)) (uint64, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		n, err := r.client.Incr(ctx, r.seqKey()).Uint64()
		if err != nil {
			return 0, fmt.Errorf("incrementing sequence: %w", err)
		}
		return n, nil
	}
	if err != nil {
		return 0, err
	}
	return decode(val)
}
