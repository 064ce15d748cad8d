package storage

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orneryd/p3if/pkg/cache"
	"github.com/orneryd/p3if/pkg/index"
	"github.com/orneryd/p3if/pkg/model"
	"github.com/orneryd/p3if/pkg/telemetry"
)

// Cache names used for telemetry labels.
const (
	QueryCacheName   = "query"
	MetricsCacheName = "metrics"
)

// Options configures a Store. Every field is optional.
type Options struct {
	// Persistence mirrors every mutation. Nil keeps the store purely in memory.
	Persistence Persistence

	// QueryCache memoizes searches and derived matrices. Nil uses
	// cache.DefaultQueryCapacity / cache.DefaultQueryTTL.
	QueryCache *cache.Cache

	// MetricsCache holds metrics snapshots. Nil uses
	// cache.DefaultMetricsCapacity / cache.DefaultMetricsTTL.
	MetricsCache *cache.Cache

	Logger    *zap.Logger
	Telemetry *telemetry.Collector
}

// Store is the thread-safe in-memory pattern/relationship store.
//
// Features:
//   - Primary collections keyed by id, iterated in insertion order
//   - Secondary indexes by domain, type, tag and status (patterns) and by
//     participant, type and status (relationships)
//   - Referential integrity on relationship insert
//   - Cascading delete: removing a pattern removes every relationship that
//     references it
//   - Deep copies: callers never share memory with stored entities
//
// Thread Safety:
//
//	One store-wide mutex guards the collections and indexes. Readers and
//	writers serialize with each other. Batches take the lock once. Helpers
//	named *Locked assume the lock is held, so composite operations never
//	re-acquire it.
//
// Persistence calls run synchronously inside the critical section: a slow
// backend stalls every other consumer. There is no lock timeout and no way
// to cancel a rebuild or batch in flight.
//
// Example:
//
//	store := storage.NewStore(storage.Options{Logger: logger})
//
//	p := model.NewProperty("Pressure")
//	p.Tags = []string{"Sensor"}
//	id, err := store.AddPattern(p)
//
//	sensors := store.GetPatternsByTag("sensor")
//	matches := store.SearchPatterns("press", 10)
type Store struct {
	mu sync.Mutex

	patterns      map[string]*model.Pattern
	patternOrder  []string
	relationships map[string]*model.Relationship
	relOrder      []string

	indexes      *index.Manager
	queryCache   *cache.Cache
	metricsCache *cache.Cache

	// generation counts invalidations; values derived outside the lock
	// are cached under keys that carry it.
	generation uint64

	persistence Persistence
	logger      *zap.Logger
	telemetry   *telemetry.Collector
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	s := &Store{
		patterns:      make(map[string]*model.Pattern),
		relationships: make(map[string]*model.Relationship),
		indexes:       index.NewManager(),
		queryCache:    opts.QueryCache,
		metricsCache:  opts.MetricsCache,
		persistence:   opts.Persistence,
		logger:        opts.Logger,
		telemetry:     opts.Telemetry,
	}
	if s.queryCache == nil {
		s.queryCache = cache.New(cache.DefaultQueryCapacity, cache.DefaultQueryTTL)
	}
	if s.metricsCache == nil {
		s.metricsCache = cache.New(cache.DefaultMetricsCapacity, cache.DefaultMetricsTTL)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// ============================================================================
// Pattern operations
// ============================================================================

// AddPattern normalizes, validates and inserts a copy of p.
//
// An empty id is replaced with a fresh one. Returns the stored id.
//
// Errors:
//   - *model.InvariantViolationError for a blank name, a quality score
//     outside [0,1], an unknown status or missing attributes
//   - *DuplicateIDError when the id is already taken by any pattern
//
// A deprecated pattern is accepted with a warning.
func (s *Store) AddPattern(p *model.Pattern) (string, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.addPatternLocked(p, true)
	s.telemetry.ObserveMutation("add_pattern", time.Since(start), err)
	return id, err
}

func (s *Store) addPatternLocked(p *model.Pattern, persist bool) (string, error) {
	if p == nil {
		return "", &model.InvariantViolationError{Entity: KindPattern, Field: "pattern", Reason: "must not be nil"}
	}

	stored := p.Clone()
	stored.Normalize()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if err := stored.Validate(); err != nil {
		return "", err
	}
	if _, exists := s.patterns[stored.ID]; exists {
		return "", &DuplicateIDError{Kind: KindPattern, ID: stored.ID}
	}

	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	if stored.Status == model.StatusDeprecated {
		s.logger.Warn("adding deprecated pattern",
			zap.String("pattern_id", stored.ID),
			zap.String("name", stored.Name))
	}

	s.patterns[stored.ID] = stored
	s.patternOrder = append(s.patternOrder, stored.ID)
	s.indexes.UpdatePattern(stored)

	if persist {
		s.persistLocked("save_pattern", func(b Persistence) error { return b.SavePattern(stored) })
	}
	s.invalidateLocked()

	s.logger.Debug("pattern added",
		zap.String("pattern_id", stored.ID),
		zap.String("type", string(stored.Type())))
	return stored.ID, nil
}

// UpdatePattern replaces the stored pattern with the same id.
//
// CreatedAt is kept from the stored pattern and UpdatedAt is bumped. The
// dimension cannot change because relationships reference the pattern
// through a dimension slot. Returns ErrNotFound for an unknown id.
func (s *Store) UpdatePattern(p *model.Pattern) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.updatePatternLocked(p)
	s.telemetry.ObserveMutation("update_pattern", time.Since(start), err)
	return err
}

func (s *Store) updatePatternLocked(p *model.Pattern) error {
	if p == nil {
		return &model.InvariantViolationError{Entity: KindPattern, Field: "pattern", Reason: "must not be nil"}
	}
	existing, ok := s.patterns[p.ID]
	if !ok {
		return ErrNotFound
	}

	updated := p.Clone()
	updated.Normalize()
	if err := updated.Validate(); err != nil {
		return err
	}
	if updated.Type() != existing.Type() {
		return typeChangeError(p.ID, existing.Type(), updated.Type())
	}

	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	s.patterns[updated.ID] = updated
	s.rebuildLocked()

	s.persistLocked("save_pattern", func(b Persistence) error { return b.SavePattern(updated) })
	s.invalidateLocked()
	return nil
}

// GetPattern returns a copy of the pattern, or false if absent.
func (s *Store) GetPattern(id string) (*model.Pattern, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patterns[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// GetPatternsByType returns the patterns of one dimension in insertion order.
func (s *Store) GetPatternsByType(d model.Dimension) []*model.Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patternsLocked(s.indexes.PatternsByType(d))
}

// GetPatternsByDomain returns the patterns of a domain in insertion order.
func (s *Store) GetPatternsByDomain(domain string) []*model.Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patternsLocked(s.indexes.PatternsByDomain(domain))
}

// GetPatternsByTag returns the patterns carrying tag. The tag is normalized
// before lookup, so "Sensor " finds patterns tagged "sensor".
func (s *Store) GetPatternsByTag(tag string) []*model.Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patternsLocked(s.indexes.PatternsByTag(tag))
}

// GetPatternsByStatus returns the patterns with the given validation status.
func (s *Store) GetPatternsByStatus(status model.ValidationStatus) []*model.Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patternsLocked(s.indexes.PatternsByStatus(status))
}

// SearchPatterns scans patterns in insertion order and returns those whose
// name, description or tags contain query, case-insensitively. The scan
// stops after limit matches; limit <= 0 means no limit.
//
// Results are memoized in the query cache until the next mutation.
func (s *Store) SearchPatterns(query string, limit int) []*model.Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	key := cache.Key("search", needle, limit)
	if v, ok := s.queryCache.Get(key); ok {
		return s.patternsLocked(v.([]string))
	}

	var ids []string
	for _, id := range s.patternOrder {
		if limit > 0 && len(ids) >= limit {
			break
		}
		if strings.Contains(s.patterns[id].SearchText(), needle) {
			ids = append(ids, id)
		}
	}

	s.queryCache.Put(key, ids)
	return s.patternsLocked(ids)
}

// RemovePattern deletes a pattern and every relationship referencing it.
//
// Returns false if the pattern does not exist. Relationships are removed
// first, then the pattern, then the indexes are rebuilt in full. Backend
// deletions are best-effort: failures are logged and never roll back the
// in-memory delete.
func (s *Store) RemovePattern(id string) bool {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.patterns[id]; !ok {
		return false
	}

	relIDs := s.indexes.RelationshipsByPattern(id)
	if len(relIDs) > 0 {
		removed := make(map[string]struct{}, len(relIDs))
		for _, relID := range relIDs {
			delete(s.relationships, relID)
			removed[relID] = struct{}{}
			s.persistLocked("delete_relationship", func(b Persistence) error { return b.DeleteRelationship(relID) })
		}
		s.relOrder = filterOrder(s.relOrder, removed)
	}

	delete(s.patterns, id)
	s.patternOrder = filterOrder(s.patternOrder, map[string]struct{}{id: {}})
	s.rebuildLocked()

	s.persistLocked("delete_pattern", func(b Persistence) error { return b.DeletePattern(id) })
	s.invalidateLocked()

	s.logger.Debug("pattern removed",
		zap.String("pattern_id", id),
		zap.Int("cascaded_relationships", len(relIDs)))
	s.telemetry.ObserveMutation("remove_pattern", time.Since(start), nil)
	return true
}

// ============================================================================
// Relationship operations
// ============================================================================

// AddRelationship validates and inserts a copy of r.
//
// Errors:
//   - *model.InvariantViolationError for fewer than two connected slots,
//     scores outside [0,1] or unknown enum values
//   - *DuplicateIDError when the id is taken
//   - *ReferentialIntegrityError naming the first slot (in dimension order)
//     whose pattern is not stored
func (s *Store) AddRelationship(r *model.Relationship) (string, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.addRelationshipLocked(r, true)
	s.telemetry.ObserveMutation("add_relationship", time.Since(start), err)
	return id, err
}

func (s *Store) addRelationshipLocked(r *model.Relationship, persist bool) (string, error) {
	if r == nil {
		return "", &model.InvariantViolationError{Entity: KindRelationship, Field: "relationship", Reason: "must not be nil"}
	}

	stored := r.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if err := stored.Validate(); err != nil {
		return "", err
	}
	if _, exists := s.relationships[stored.ID]; exists {
		return "", &DuplicateIDError{Kind: KindRelationship, ID: stored.ID}
	}
	for _, d := range model.Dimensions() {
		pid := stored.Slot(d)
		if pid == "" {
			continue
		}
		if _, ok := s.patterns[pid]; !ok {
			return "", &ReferentialIntegrityError{RelationshipID: stored.ID, Slot: d, PatternID: pid}
		}
	}

	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}

	s.relationships[stored.ID] = stored
	s.relOrder = append(s.relOrder, stored.ID)
	s.indexes.UpdateRelationship(stored)

	if persist {
		s.persistLocked("save_relationship", func(b Persistence) error { return b.SaveRelationship(stored) })
	}
	s.invalidateLocked()
	return stored.ID, nil
}

// GetRelationship returns a copy of the relationship, or false if absent.
func (s *Store) GetRelationship(id string) (*model.Relationship, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.relationships[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// GetRelationshipsByPattern returns every relationship with patternID in
// any slot.
func (s *Store) GetRelationshipsByPattern(patternID string) []*model.Relationship {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relationshipsLocked(s.indexes.RelationshipsByPattern(patternID))
}

// GetRelationshipsByType returns the relationships of one type.
func (s *Store) GetRelationshipsByType(t model.RelationshipType) []*model.Relationship {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relationshipsLocked(s.indexes.RelationshipsByType(t))
}

// GetRelationshipsByStatus returns the relationships with one status.
func (s *Store) GetRelationshipsByStatus(status model.RelationshipStatus) []*model.Relationship {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relationshipsLocked(s.indexes.RelationshipsByStatus(status))
}

// RemoveRelationship deletes one relationship. Patterns are untouched.
func (s *Store) RemoveRelationship(id string) bool {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.relationships[id]; !ok {
		return false
	}

	delete(s.relationships, id)
	s.relOrder = filterOrder(s.relOrder, map[string]struct{}{id: {}})
	s.rebuildLocked()

	s.persistLocked("delete_relationship", func(b Persistence) error { return b.DeleteRelationship(id) })
	s.invalidateLocked()
	s.telemetry.ObserveMutation("remove_relationship", time.Since(start), nil)
	return true
}

// ============================================================================
// Bulk operations
// ============================================================================

// AddPatternsBatch adds every pattern it can. The lock is taken once; a
// failing item is recorded and the loop moves on.
func (s *Store) AddPatternsBatch(patterns []*model.Pattern) BatchResult {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var res BatchResult
	for _, p := range patterns {
		_, err := s.addPatternLocked(p, true)
		res.record(patternItem(p), err)
	}
	s.telemetry.ObserveMutation("add_patterns_batch", time.Since(start), nil)
	return res
}

// AddRelationshipsBatch adds every relationship it can, with the same
// partial-failure semantics as AddPatternsBatch.
func (s *Store) AddRelationshipsBatch(relationships []*model.Relationship) BatchResult {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var res BatchResult
	for _, r := range relationships {
		_, err := s.addRelationshipLocked(r, true)
		res.record(relationshipItem(r), err)
	}
	s.telemetry.ObserveMutation("add_relationships_batch", time.Since(start), nil)
	return res
}

// Restore loads patterns and then relationships without writing them back
// to persistence. It is used to rehydrate a store from its own backend.
//
// Patterns are validated as on AddPattern. Relationships are only checked
// for duplicate ids: a stored relationship that a hot swap left with fewer
// than two slots, or with a slot naming a missing pattern, is loaded as is
// so ValidateFramework can report it.
func (s *Store) Restore(patterns []*model.Pattern, relationships []*model.Relationship) BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res BatchResult
	for _, p := range patterns {
		_, err := s.addPatternLocked(p, false)
		res.record(patternItem(p), err)
	}
	for _, r := range relationships {
		res.record(relationshipItem(r), s.restoreRelationshipLocked(r))
	}
	if len(relationships) > 0 {
		s.invalidateLocked()
	}
	return res
}

func (s *Store) restoreRelationshipLocked(r *model.Relationship) error {
	if r == nil {
		return &model.InvariantViolationError{Entity: KindRelationship, Field: "relationship", Reason: "must not be nil"}
	}
	if r.ID == "" {
		return &model.InvariantViolationError{Entity: KindRelationship, Field: "id", Reason: "must not be empty"}
	}
	if _, exists := s.relationships[r.ID]; exists {
		return &DuplicateIDError{Kind: KindRelationship, ID: r.ID}
	}
	stored := r.Clone()
	s.relationships[stored.ID] = stored
	s.relOrder = append(s.relOrder, stored.ID)
	s.indexes.UpdateRelationship(stored)
	return nil
}

// HotSwapDimension relabels relationship slots: for every relationship with
// a non-empty old slot, the id moves into the new slot and the old slot is
// cleared. Relationships with an empty old slot are left alone.
//
// A non-empty new slot is overwritten, which can leave a relationship with
// fewer than two connected dimensions; ValidateFramework reports that.
// Indexes are rebuilt once at the end if anything changed. Returns the
// number of relationships changed.
func (s *Store) HotSwapDimension(oldDim, newDim model.Dimension) (int, error) {
	if !oldDim.Valid() || !newDim.Valid() {
		return 0, &model.InvariantViolationError{
			Entity: "dimension",
			Field:  "name",
			Reason: "unknown dimension " + string(oldDim) + " or " + string(newDim),
		}
	}
	if oldDim == newDim {
		return 0, &model.InvariantViolationError{
			Entity: "dimension",
			Field:  "name",
			Reason: "source and target dimension are both " + string(oldDim),
		}
	}

	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	changed := 0
	for _, id := range s.relOrder {
		r := s.relationships[id]
		pid := r.Slot(oldDim)
		if pid == "" {
			continue
		}
		if prev := r.Slot(newDim); prev != "" {
			s.logger.Warn("hot swap overwrites occupied slot",
				zap.String("relationship_id", id),
				zap.String("slot", string(newDim)),
				zap.String("previous_pattern_id", prev))
		}
		r.SetSlot(newDim, pid)
		r.SetSlot(oldDim, "")
		r.UpdatedAt = now
		changed++
		s.persistLocked("save_relationship", func(b Persistence) error { return b.SaveRelationship(r) })
	}

	if changed > 0 {
		s.rebuildLocked()
		s.invalidateLocked()
	}

	s.logger.Info("dimension hot swap",
		zap.String("from", string(oldDim)),
		zap.String("to", string(newDim)),
		zap.Int("changed", changed))
	s.telemetry.ObserveMutation("hot_swap_dimension", time.Since(start), nil)
	return changed, nil
}

// Clear empties the collections, the indexes and both caches, and forwards
// the clear to persistence.
func (s *Store) Clear() {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.patterns = make(map[string]*model.Pattern)
	s.patternOrder = nil
	s.relationships = make(map[string]*model.Relationship)
	s.relOrder = nil
	s.indexes.Clear()
	s.queryCache.Clear()
	s.metricsCache.Clear()
	s.generation++

	s.persistLocked("clear", func(b Persistence) error { return b.Clear() })
	s.telemetry.ObserveMutation("clear", time.Since(start), nil)
}

// ============================================================================
// Read helpers
// ============================================================================

// Snapshot is a consistent copy of both collections taken under one lock.
// Generation is the store generation the copy was taken at; Validation is
// only set by ValidatedSnapshot.
type Snapshot struct {
	Patterns      []*model.Pattern
	Relationships []*model.Relationship
	Generation    uint64
	Validation    *ValidationReport
}

// Snapshot returns deep copies of every pattern and relationship in
// insertion order.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ValidatedSnapshot is Snapshot plus the ValidateFramework report of the
// same state.
func (s *Store) ValidatedSnapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshotLocked()
	report := s.validateLocked()
	snap.Validation = &report
	return snap
}

// Generation returns a counter that changes on every mutation. A value
// computed from a Snapshot and cached under a key that includes
// snap.Generation can never be served after a later mutation, because
// lookups use the current Generation.
//
// Example:
//
//	key := cache.Key("report", store.Generation())
//	if v, ok := qc.Get(key); ok {
//		return v
//	}
//	snap := store.Snapshot()
//	qc.Put(cache.Key("report", snap.Generation), build(snap))
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Patterns:      s.patternsLocked(s.patternOrder),
		Relationships: s.relationshipsLocked(s.relOrder),
		Generation:    s.generation,
	}
}

// Patterns returns copies of every pattern in insertion order.
func (s *Store) Patterns() []*model.Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patternsLocked(s.patternOrder)
}

// Relationships returns copies of every relationship in insertion order.
func (s *Store) Relationships() []*model.Relationship {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relationshipsLocked(s.relOrder)
}

// PatternCount returns the number of stored patterns.
func (s *Store) PatternCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patterns)
}

// RelationshipCount returns the number of stored relationships.
func (s *Store) RelationshipCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.relationships)
}

// Domains returns the sorted non-empty domains.
func (s *Store) Domains() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexes.Domains()
}

// QueryCache returns the cache used for memoized queries.
func (s *Store) QueryCache() *cache.Cache { return s.queryCache }

// MetricsCache returns the cache used for metrics snapshots.
func (s *Store) MetricsCache() *cache.Cache { return s.metricsCache }

// ============================================================================
// Internal helpers (caller must hold s.mu)
// ============================================================================

func (s *Store) patternsLocked(ids []string) []*model.Pattern {
	out := make([]*model.Pattern, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.patterns[id]; ok {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (s *Store) relationshipsLocked(ids []string) []*model.Relationship {
	out := make([]*model.Relationship, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.relationships[id]; ok {
			out = append(out, r.Clone())
		}
	}
	return out
}

// rebuildLocked re-derives every index from the primary collections.
func (s *Store) rebuildLocked() {
	patterns := make([]*model.Pattern, 0, len(s.patternOrder))
	for _, id := range s.patternOrder {
		patterns = append(patterns, s.patterns[id])
	}
	rels := make([]*model.Relationship, 0, len(s.relOrder))
	for _, id := range s.relOrder {
		rels = append(rels, s.relationships[id])
	}
	s.indexes.Rebuild(patterns, rels)
	s.telemetry.IndexRebuild()
}

// invalidateLocked drops every derived value after a mutation.
func (s *Store) invalidateLocked() {
	s.generation++
	s.queryCache.Purge()
	s.metricsCache.Purge()
	s.telemetry.ObserveCache(QueryCacheName, s.queryCache.Stats())
	s.telemetry.ObserveCache(MetricsCacheName, s.metricsCache.Stats())
}

// persistLocked forwards one call to the backend. Failures are logged and
// counted but never returned.
func (s *Store) persistLocked(op string, fn func(Persistence) error) {
	if s.persistence == nil {
		return
	}
	if err := fn(s.persistence); err != nil {
		s.logger.Error("persistence call failed", zap.String("op", op), zap.Error(err))
		s.telemetry.PersistenceError(op)
	}
}

// filterOrder returns order without the ids in removed, reusing the backing
// array.
func typeChangeError(id string, from, to model.Dimension) error {
	return &model.InvariantViolationError{
		Entity: KindPattern,
		ID:     id,
		Field:  "type",
		Reason: "cannot change from " + string(from) + " to " + string(to),
	}
}

func filterOrder(order []string, removed map[string]struct{}) []string {
	kept := order[:0]
	for _, id := range order {
		if _, gone := removed[id]; !gone {
			kept = append(kept, id)
		}
	}
	return kept
}
