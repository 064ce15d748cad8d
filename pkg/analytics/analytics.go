// Package analytics derives aggregate views from a P3IF store: framework
// metrics, co-occurrence similarity matrices per dimension, domain Jaccard
// matrices and cross-domain relationship statistics.
//
// The Engine only reads the store. Derived values are written through the
// store's caches, which the store purges on every mutation.
//
// Example:
//
//	engine := analytics.NewEngine(store, analytics.Options{})
//
//	m := engine.Metrics()
//	fmt.Printf("%d patterns, %d orphaned\n", m.TotalPatterns, m.OrphanedPatterns)
//
//	props, _ := engine.SimilarityMatrix(model.DimensionProperty)
//	domains := engine.DomainSimilarity()
package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/orneryd/p3if/pkg/cache"
	"github.com/orneryd/p3if/pkg/model"
	"github.com/orneryd/p3if/pkg/pool"
	"github.com/orneryd/p3if/pkg/storage"
)

// DefaultSnapshotTTL is how long a metrics snapshot is served from cache
// when nothing mutates the store.
const DefaultSnapshotTTL = 30 * time.Second

// Options configures an Engine.
type Options struct {
	// SnapshotTTL overrides DefaultSnapshotTTL.
	SnapshotTTL time.Duration
	Logger      *zap.Logger
}

// Engine computes analytics over a store.
type Engine struct {
	store       *storage.Store
	snapshotTTL time.Duration
	logger      *zap.Logger
}

// NewEngine creates an engine reading from store.
func NewEngine(store *storage.Store, opts Options) *Engine {
	e := &Engine{
		store:       store,
		snapshotTTL: opts.SnapshotTTL,
		logger:      opts.Logger,
	}
	if e.snapshotTTL <= 0 {
		e.snapshotTTL = DefaultSnapshotTTL
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// FrameworkMetrics is a point-in-time aggregate of the store.
type FrameworkMetrics struct {
	TotalPatterns       int                            `json:"total_patterns" yaml:"total_patterns"`
	TotalRelationships  int                            `json:"total_relationships" yaml:"total_relationships"`
	PatternsByType      map[model.Dimension]int        `json:"patterns_by_type" yaml:"patterns_by_type"`
	RelationshipsByType map[model.RelationshipType]int `json:"relationships_by_type" yaml:"relationships_by_type"`
	AverageStrength     float64                        `json:"average_strength" yaml:"average_strength"`
	AverageConfidence   float64                        `json:"average_confidence" yaml:"average_confidence"`
	DomainCount         int                            `json:"domain_count" yaml:"domain_count"`
	OrphanedPatterns    int                            `json:"orphaned_patterns" yaml:"orphaned_patterns"`
	DeprecatedPatterns  int                            `json:"deprecated_patterns" yaml:"deprecated_patterns"`
	ValidationIssues    int                            `json:"validation_issues" yaml:"validation_issues"`
	ComputedAt          time.Time                      `json:"computed_at" yaml:"computed_at"`
}

func (m FrameworkMetrics) clone() FrameworkMetrics {
	c := m
	c.PatternsByType = make(map[model.Dimension]int, len(m.PatternsByType))
	for k, v := range m.PatternsByType {
		c.PatternsByType[k] = v
	}
	c.RelationshipsByType = make(map[model.RelationshipType]int, len(m.RelationshipsByType))
	for k, v := range m.RelationshipsByType {
		c.RelationshipsByType[k] = v
	}
	return c
}

// Metrics returns the framework metrics, served from the metrics cache while
// the store is unchanged and the snapshot TTL has not elapsed.
//
// The cache key carries the store generation of the snapshot the metrics
// were computed from, so a result that races a mutation is stored under a
// key no later lookup uses.
func (e *Engine) Metrics() FrameworkMetrics {
	mc := e.store.MetricsCache()
	if v, ok := mc.Get(metricsKey(e.store.Generation())); ok {
		return v.(FrameworkMetrics).clone()
	}

	snap := e.store.ValidatedSnapshot()
	m := computeMetrics(snap, *snap.Validation)
	mc.PutWithTTL(metricsKey(snap.Generation), m, e.snapshotTTL)

	e.logger.Debug("metrics computed",
		zap.Int("patterns", m.TotalPatterns),
		zap.Int("relationships", m.TotalRelationships))
	return m.clone()
}

// ComputeMetrics computes the metrics without touching the cache.
func (e *Engine) ComputeMetrics() FrameworkMetrics {
	snap := e.store.ValidatedSnapshot()
	return computeMetrics(snap, *snap.Validation)
}

func metricsKey(generation uint64) string {
	return cache.Key("metrics", generation)
}

func computeMetrics(snap storage.Snapshot, report storage.ValidationReport) FrameworkMetrics {
	m := FrameworkMetrics{
		TotalPatterns:       len(snap.Patterns),
		TotalRelationships:  len(snap.Relationships),
		PatternsByType:      make(map[model.Dimension]int, 3),
		RelationshipsByType: make(map[model.RelationshipType]int),
		ValidationIssues:    len(report.Errors),
		ComputedAt:          time.Now().UTC(),
	}

	referenced := make(map[string]struct{}, len(snap.Patterns))
	var strength, confidence float64
	for _, r := range snap.Relationships {
		m.RelationshipsByType[r.Type]++
		strength += r.Strength
		confidence += r.Confidence
		for _, id := range r.Participants() {
			referenced[id] = struct{}{}
		}
	}
	if n := len(snap.Relationships); n > 0 {
		m.AverageStrength = strength / float64(n)
		m.AverageConfidence = confidence / float64(n)
	}

	domains := make(map[string]struct{})
	for _, p := range snap.Patterns {
		m.PatternsByType[p.Type()]++
		if p.Domain != "" {
			domains[p.Domain] = struct{}{}
		}
		if p.Status == model.StatusDeprecated {
			m.DeprecatedPatterns++
		}
		if _, ok := referenced[p.ID]; !ok {
			m.OrphanedPatterns++
		}
	}
	m.DomainCount = len(domains)
	return m
}

// Prewarm computes the metrics, the three similarity matrices and the domain
// matrix on the worker pool so later calls hit the caches. Results that race
// a concurrent mutation are cached under the generation they were computed
// at and are never served afterwards.
func (e *Engine) Prewarm(ctx context.Context, workers *pool.Pool) error {
	tasks := []pool.Task{
		func(ctx context.Context) error {
			e.Metrics()
			return nil
		},
		func(ctx context.Context) error {
			e.DomainSimilarity()
			return nil
		},
	}
	for _, d := range model.Dimensions() {
		tasks = append(tasks, func(ctx context.Context) error {
			_, err := e.SimilarityMatrix(d)
			return err
		})
	}

	start := time.Now()
	err := workers.Run(ctx, tasks...)
	e.logger.Debug("analytics prewarm finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	return err
}
