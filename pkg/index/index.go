// Package index provides the secondary lookup structures for the P3IF store.
//
// Every index is a Bucket: a map from a key (domain, dimension, tag, status or
// participant pattern id) to an ordered list of entity ids. Insertion order is
// preserved and a (key, id) pair is stored at most once.
//
// The Manager groups the pattern-side buckets (domain, type, tag, status) and
// the relationship-side buckets (one per dimension slot, type, status).
// Appends are amortized O(1); deletes are handled by Rebuild, which re-derives
// every bucket from the primary collections in O(n+r).
//
// Example:
//
//	idx := index.NewManager()
//	idx.UpdatePattern(p)
//	idx.UpdateRelationship(r)
//
//	ids := idx.PatternsByDomain("Manufacturing")
//	rels := idx.RelationshipsByPattern(p.ID)
//
//	// After any delete:
//	idx.Rebuild(allPatterns, allRelationships)
//
// Thread Safety:
//
//	Manager is NOT safe for concurrent use. The owning store serializes every
//	read and write behind its own lock and is the only writer.
package index

import (
	"sort"

	"github.com/orneryd/p3if/pkg/model"
)

// Bucket maps keys to insertion-ordered, duplicate-free id lists.
type Bucket struct {
	ids     map[string][]string
	members map[string]map[string]struct{}
}

// NewBucket creates an empty bucket.
func NewBucket() *Bucket {
	return &Bucket{
		ids:     make(map[string][]string),
		members: make(map[string]map[string]struct{}),
	}
}

// Add appends id under key unless the pair is already present.
// Empty keys and ids are ignored.
func (b *Bucket) Add(key, id string) {
	if key == "" || id == "" {
		return
	}
	set := b.members[key]
	if set == nil {
		set = make(map[string]struct{})
		b.members[key] = set
	}
	if _, ok := set[id]; ok {
		return
	}
	set[id] = struct{}{}
	b.ids[key] = append(b.ids[key], id)
}

// Get returns a copy of the ids stored under key, in insertion order.
// A missing key yields an empty, non-nil slice.
func (b *Bucket) Get(key string) []string {
	ids := b.ids[key]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Contains reports whether id is stored under key.
func (b *Bucket) Contains(key, id string) bool {
	_, ok := b.members[key][id]
	return ok
}

// Keys returns every key with at least one id, sorted.
func (b *Bucket) Keys() []string {
	keys := make([]string, 0, len(b.ids))
	for k := range b.ids {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (b *Bucket) Len() int {
	return len(b.ids)
}

// Reset empties the bucket.
func (b *Bucket) Reset() {
	b.ids = make(map[string][]string)
	b.members = make(map[string]map[string]struct{})
}

// Manager holds all pattern and relationship indexes.
type Manager struct {
	patternsByDomain *Bucket
	patternsByType   *Bucket
	patternsByTag    *Bucket
	patternsByStatus *Bucket

	relsBySlot   map[model.Dimension]*Bucket
	relsByType   *Bucket
	relsByStatus *Bucket
}

// NewManager creates a Manager with empty buckets.
func NewManager() *Manager {
	m := &Manager{}
	m.reset()
	return m
}

func (m *Manager) reset() {
	m.patternsByDomain = NewBucket()
	m.patternsByType = NewBucket()
	m.patternsByTag = NewBucket()
	m.patternsByStatus = NewBucket()
	m.relsBySlot = map[model.Dimension]*Bucket{
		model.DimensionProperty:    NewBucket(),
		model.DimensionProcess:     NewBucket(),
		model.DimensionPerspective: NewBucket(),
	}
	m.relsByType = NewBucket()
	m.relsByStatus = NewBucket()
}

// UpdatePattern appends p to the domain, type, tag and status buckets.
// Tags are expected to be normalized already.
func (m *Manager) UpdatePattern(p *model.Pattern) {
	if p == nil {
		return
	}
	m.patternsByDomain.Add(p.Domain, p.ID)
	m.patternsByType.Add(string(p.Type()), p.ID)
	for _, tag := range p.Tags {
		m.patternsByTag.Add(tag, p.ID)
	}
	m.patternsByStatus.Add(string(p.Status), p.ID)
}

// UpdateRelationship appends r to its participant, type and status buckets.
func (m *Manager) UpdateRelationship(r *model.Relationship) {
	if r == nil {
		return
	}
	for _, d := range model.Dimensions() {
		m.relsBySlot[d].Add(r.Slot(d), r.ID)
	}
	m.relsByType.Add(string(r.Type), r.ID)
	m.relsByStatus.Add(string(r.Status), r.ID)
}

// Rebuild clears every bucket and re-derives it from the given collections.
// Callers pass the collections in insertion order so bucket order matches.
func (m *Manager) Rebuild(patterns []*model.Pattern, relationships []*model.Relationship) {
	m.reset()
	for _, p := range patterns {
		m.UpdatePattern(p)
	}
	for _, r := range relationships {
		m.UpdateRelationship(r)
	}
}

// Clear empties every bucket.
func (m *Manager) Clear() {
	m.reset()
}

// PatternsByDomain returns ids of patterns in domain.
func (m *Manager) PatternsByDomain(domain string) []string {
	return m.patternsByDomain.Get(domain)
}

// PatternsByType returns ids of patterns in dimension d.
func (m *Manager) PatternsByType(d model.Dimension) []string {
	return m.patternsByType.Get(string(d))
}

// PatternsByTag returns ids of patterns carrying tag.
func (m *Manager) PatternsByTag(tag string) []string {
	return m.patternsByTag.Get(model.NormalizeTag(tag))
}

// PatternsByStatus returns ids of patterns with the given validation status.
func (m *Manager) PatternsByStatus(status model.ValidationStatus) []string {
	return m.patternsByStatus.Get(string(status))
}

// RelationshipsByDimension returns ids of relationships whose d slot holds patternID.
func (m *Manager) RelationshipsByDimension(d model.Dimension, patternID string) []string {
	b, ok := m.relsBySlot[d]
	if !ok {
		return []string{}
	}
	return b.Get(patternID)
}

// RelationshipsByPattern returns ids of relationships referencing patternID in
// any slot, de-duplicated, in dimension order then insertion order.
func (m *Manager) RelationshipsByPattern(patternID string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, d := range model.Dimensions() {
		for _, id := range m.relsBySlot[d].Get(patternID) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// RelationshipsByType returns ids of relationships of type t.
func (m *Manager) RelationshipsByType(t model.RelationshipType) []string {
	return m.relsByType.Get(string(t))
}

// RelationshipsByStatus returns ids of relationships with status s.
func (m *Manager) RelationshipsByStatus(s model.RelationshipStatus) []string {
	return m.relsByStatus.Get(string(s))
}

// Domains returns every domain with at least one pattern, sorted.
func (m *Manager) Domains() []string {
	return m.patternsByDomain.Keys()
}

// Tags returns every tag in use, sorted.
func (m *Manager) Tags() []string {
	return m.patternsByTag.Keys()
}

// HasPatternInType reports whether id is indexed under dimension d.
func (m *Manager) HasPatternInType(d model.Dimension, id string) bool {
	return m.patternsByType.Contains(string(d), id)
}
