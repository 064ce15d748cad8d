// Package storage - Serialization helpers shared by the persistence backends.
package storage

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/orneryd/p3if/pkg/model"
)

// storedPattern is the value written by the backends for a pattern. Seq
// records first-insertion order so LoadAll can hand patterns back in the
// order the store originally saw them.
type storedPattern struct {
	Seq    uint64              `json:"seq"`
	Record model.PatternRecord `json:"record"`
}

type storedRelationship struct {
	Seq    uint64                   `json:"seq"`
	Record model.RelationshipRecord `json:"record"`
}

// serializePattern converts a pattern to JSON bytes for a backend.
func serializePattern(seq uint64, p *model.Pattern) ([]byte, error) {
	return json.Marshal(storedPattern{Seq: seq, Record: p.ToRecord()})
}

// deserializePattern converts JSON bytes back to a stored pattern.
func deserializePattern(data []byte) (*storedPattern, error) {
	var sp storedPattern
	if err := json.Unmarshal(data, &sp); err != nil {
		return nil, fmt.Errorf("unmarshaling pattern: %w", err)
	}
	return &sp, nil
}

// serializeRelationship converts a relationship to JSON bytes for a backend.
func serializeRelationship(seq uint64, r *model.Relationship) ([]byte, error) {
	return json.Marshal(storedRelationship{Seq: seq, Record: r.ToRecord()})
}

// deserializeRelationship converts JSON bytes back to a stored relationship.
func deserializeRelationship(data []byte) (*storedRelationship, error) {
	var sr storedRelationship
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, fmt.Errorf("unmarshaling relationship: %w", err)
	}
	return &sr, nil
}

// materialize sorts stored entries by sequence and converts them back to
// entities. Patterns whose type cannot be decoded are reported as an error.
func materialize(patterns []*storedPattern, rels []*storedRelationship) ([]*model.Pattern, []*model.Relationship, error) {
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].Seq < patterns[j].Seq })
	sort.Slice(rels, func(i, j int) bool { return rels[i].Seq < rels[j].Seq })

	outPatterns := make([]*model.Pattern, 0, len(patterns))
	for _, sp := range patterns {
		p, err := model.PatternFromRecord(sp.Record)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding pattern %s: %w", sp.Record.ID, err)
		}
		outPatterns = append(outPatterns, p)
	}

	outRels := make([]*model.Relationship, 0, len(rels))
	for _, sr := range rels {
		outRels = append(outRels, model.RelationshipFromRecord(sr.Record))
	}
	return outPatterns, outRels, nil
}
