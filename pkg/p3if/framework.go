// Package p3if provides the main API for embedded P3IF usage.
//
// A Framework wires the pattern store to its configured persistence
// backend, caches, analytics engine, worker pool and Prometheus collector.
// Opening a framework over an existing Badger directory or Redis keyspace
// rehydrates the store from it.
//
// Example Usage:
//
//	cfg, err := config.Load("")
//	if err != nil {
//		log.Fatal(err)
//	}
//	logger, _ := logging.New(cfg.Logging)
//
//	fw, err := p3if.Open(cfg, logger, prometheus.DefaultRegisterer)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer fw.Close()
//
//	id, err := fw.Store().AddPattern(model.NewProperty("Temperature"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	m := fw.Analytics().Metrics()
//	fmt.Printf("%d patterns, %d domains\n", m.TotalPatterns, m.DomainCount)
//
// Storage Backends:
//
//   - memory: nothing is persisted (default)
//   - badger: embedded BadgerDB under storage.data_dir
//   - redis: a Redis keyspace under storage.redis.prefix
package p3if

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/orneryd/p3if/pkg/analytics"
	"github.com/orneryd/p3if/pkg/cache"
	"github.com/orneryd/p3if/pkg/config"
	"github.com/orneryd/p3if/pkg/logging"
	"github.com/orneryd/p3if/pkg/pool"
	"github.com/orneryd/p3if/pkg/storage"
	"github.com/orneryd/p3if/pkg/telemetry"
)

// ErrClosed is returned by operations on a closed framework.
var ErrClosed = errors.New("framework is closed")

// Framework is an opened P3IF instance.
type Framework struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *storage.Store
	analytics *analytics.Engine
	workers   *pool.Pool
	telemetry *telemetry.Collector
	backend   storage.Persistence

	mu     sync.Mutex
	closed bool
}

// Open builds a framework from cfg. A nil cfg uses config.Default(), a nil
// logger discards output, and a nil reg registers metrics on a private
// registry. Metrics are only collected when cfg.Telemetry.Enabled is set.
//
// Rehydration follows storage.Store.Restore: patterns that fail validation
// are skipped and logged, relationships are loaded as stored. Neither fails
// Open.
func Open(cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*Framework, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger = logging.OrNop(logger)

	fw := &Framework{cfg: cfg, logger: logger}

	if cfg.Telemetry.Enabled {
		collector, err := telemetry.NewCollector(reg)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		fw.telemetry = collector
	}

	backend, err := openBackend(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	fw.backend = backend

	fw.store = storage.NewStore(storage.Options{
		Persistence:  backend,
		QueryCache:   cache.New(cfg.Cache.QueryCapacity, cfg.Cache.QueryTTL),
		MetricsCache: cache.New(cfg.Cache.MetricsCapacity, cfg.Cache.MetricsTTL),
		Logger:       logger,
		Telemetry:    fw.telemetry,
	})

	if loader, ok := backend.(storage.Loader); ok {
		if err := fw.rehydrate(loader); err != nil {
			fw.closeBackend()
			return nil, err
		}
	}

	fw.analytics = analytics.NewEngine(fw.store, analytics.Options{
		SnapshotTTL: cfg.Cache.SnapshotTTL,
		Logger:      logger,
	})
	fw.workers = pool.New(pool.Config{Workers: cfg.Pool.Workers})

	logger.Info("framework opened",
		zap.String("backend", cfg.Storage.Backend),
		zap.Int("patterns", fw.store.PatternCount()),
		zap.Int("relationships", fw.store.RelationshipCount()))
	return fw, nil
}

func openBackend(cfg config.StorageConfig, logger *zap.Logger) (storage.Persistence, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return nil, nil
	case config.BackendBadger:
		b, err := storage.NewBadgerPersistence(storage.BadgerOptions{
			DataDir:    cfg.DataDir,
			InMemory:   cfg.InMemory,
			SyncWrites: cfg.SyncWrites,
			Logger:     storage.ZapBadgerLogger(logger),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open persistent storage: %w", err)
		}
		return b, nil
	case config.BackendRedis:
		r, err := storage.NewRedisPersistence(storage.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			Timeout:  cfg.Redis.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open persistent storage: %w", err)
		}
		return r, nil
	}
	return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
}

func (fw *Framework) rehydrate(loader storage.Loader) error {
	patterns, rels, err := loader.LoadAll()
	if err != nil {
		return fmt.Errorf("failed to load persisted framework: %w", err)
	}

	res := fw.store.Restore(patterns, rels)
	for _, e := range res.Errors {
		fw.logger.Warn("skipping persisted record",
			zap.String("item", e.Item),
			zap.String("error", e.Message))
	}
	fw.logger.Debug("rehydrated store",
		zap.Int("restored", res.Successful),
		zap.Int("skipped", res.Failed))
	return nil
}

// Store returns the pattern store.
func (fw *Framework) Store() *storage.Store { return fw.store }

// Analytics returns the analytics engine.
func (fw *Framework) Analytics() *analytics.Engine { return fw.analytics }

// Telemetry returns the metrics collector, or nil when telemetry is
// disabled.
func (fw *Framework) Telemetry() *telemetry.Collector { return fw.telemetry }

// Config returns the configuration the framework was opened with.
func (fw *Framework) Config() *config.Config { return fw.cfg }

// PoolStats reports the background worker pool counters.
func (fw *Framework) PoolStats() pool.Stats { return fw.workers.Stats() }

// Prewarm computes metrics and the similarity matrices on the worker pool
// so the first reads hit the caches.
func (fw *Framework) Prewarm(ctx context.Context) error {
	fw.mu.Lock()
	closed := fw.closed
	fw.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return fw.analytics.Prewarm(ctx, fw.workers)
}

// Close closes the persistence backend. The in-memory store stays readable;
// later mutations fail to persist and are logged. Closing twice is a no-op.
func (fw *Framework) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.closed {
		return nil
	}
	fw.closed = true
	if err := fw.closeBackend(); err != nil {
		return fmt.Errorf("closing storage: %w", err)
	}
	fw.logger.Debug("framework closed")
	return nil
}

func (fw *Framework) closeBackend() error {
	if c, ok := fw.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
