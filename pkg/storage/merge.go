package storage

import (
	"time"

	"github.com/orneryd/p3if/pkg/model"
)

// MergeResult reports what Merge did.
type MergeResult struct {
	PatternsAdded      int          `json:"patterns_added" yaml:"patterns_added"`
	PatternsMerged     int          `json:"patterns_merged" yaml:"patterns_merged"`
	RelationshipsAdded int          `json:"relationships_added" yaml:"relationships_added"`
	Errors             []BatchError `json:"errors" yaml:"errors"`
}

// Merge copies the contents of other into s.
//
// A pattern whose name and domain both equal those of a stored pattern is
// treated as the same pattern: the stored pattern keeps its id and
// CreatedAt and takes every other field from the incoming one. A match of a
// different dimension is reported as an error and skipped, as UpdatePattern
// would reject it; relationships naming the skipped pattern fail too. Other
// patterns are added under their own id. Relationships have their slots
// remapped to the surviving ids and are then added. Failures are collected
// per item; the merge never stops early.
//
// Matching on name and domain alone can conflate distinct patterns that
// happen to share a name.
func (s *Store) Merge(other *Store) MergeResult {
	snap := other.Snapshot()

	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	res := MergeResult{Errors: []BatchError{}}

	byKey := make(map[string]string, len(s.patterns))
	for _, id := range s.patternOrder {
		p := s.patterns[id]
		k := mergeKey(p.Name, p.Domain)
		if _, seen := byKey[k]; !seen {
			byKey[k] = id
		}
	}

	idMap := make(map[string]string, len(snap.Patterns))
	overwritten := false
	now := time.Now().UTC()

	for _, p := range snap.Patterns {
		k := mergeKey(p.Name, p.Domain)
		if existingID, ok := byKey[k]; ok {
			existing := s.patterns[existingID]
			if p.Type() != existing.Type() {
				res.Errors = append(res.Errors, BatchError{
					Item:    patternItem(p),
					Message: typeChangeError(existingID, existing.Type(), p.Type()).Error(),
				})
				continue
			}
			merged := p.Clone()
			merged.ID = existingID
			merged.CreatedAt = existing.CreatedAt
			merged.UpdatedAt = now
			s.patterns[existingID] = merged
			idMap[p.ID] = existingID
			overwritten = true
			res.PatternsMerged++
			s.persistLocked("save_pattern", func(b Persistence) error { return b.SavePattern(merged) })
			continue
		}

		id, err := s.addPatternLocked(p, true)
		if err != nil {
			res.Errors = append(res.Errors, BatchError{Item: patternItem(p), Message: err.Error()})
			continue
		}
		byKey[k] = id
		idMap[p.ID] = id
		res.PatternsAdded++
	}

	if overwritten {
		s.rebuildLocked()
		s.invalidateLocked()
	}

	for _, r := range snap.Relationships {
		for _, d := range model.Dimensions() {
			if mapped, ok := idMap[r.Slot(d)]; ok {
				r.SetSlot(d, mapped)
			}
		}
		if _, err := s.addRelationshipLocked(r, true); err != nil {
			res.Errors = append(res.Errors, BatchError{Item: relationshipItem(r), Message: err.Error()})
			continue
		}
		res.RelationshipsAdded++
	}

	s.telemetry.ObserveMutation("merge", time.Since(start), nil)
	return res
}

func mergeKey(name, domain string) string {
	return name + "\x00" + domain
}
