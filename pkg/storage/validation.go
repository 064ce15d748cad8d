package storage

import (
	"fmt"

	"github.com/orneryd/p3if/pkg/model"
)

// Issue is one finding of ValidateFramework.
type Issue struct {
	Entity  string `json:"entity" yaml:"entity"`
	ID      string `json:"id" yaml:"id"`
	Message string `json:"message" yaml:"message"`
}

// ValidationReport is the result of ValidateFramework. Valid is true when
// there are no errors; warnings do not affect it.
type ValidationReport struct {
	Valid    bool    `json:"valid" yaml:"valid"`
	Errors   []Issue `json:"errors" yaml:"errors"`
	Warnings []Issue `json:"warnings" yaml:"warnings"`
}

// ValidateFramework re-checks every stored entity.
//
// Errors:
//   - a pattern failing its field validation
//   - a relationship failing its field validation, including fewer than two
//     connected dimensions (possible after HotSwapDimension)
//   - a relationship slot naming a pattern that is not stored
//
// Warnings:
//   - an active relationship referencing a deprecated pattern
//   - a pattern referenced by no relationship
func (s *Store) ValidateFramework() ValidationReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateLocked()
}

func (s *Store) validateLocked() ValidationReport {
	report := ValidationReport{Errors: []Issue{}, Warnings: []Issue{}}
	referenced := make(map[string]struct{}, len(s.patterns))

	for _, id := range s.patternOrder {
		if err := s.patterns[id].Validate(); err != nil {
			report.Errors = append(report.Errors, Issue{Entity: KindPattern, ID: id, Message: err.Error()})
		}
	}

	for _, id := range s.relOrder {
		r := s.relationships[id]
		if err := r.Validate(); err != nil {
			report.Errors = append(report.Errors, Issue{Entity: KindRelationship, ID: id, Message: err.Error()})
		}
		for _, d := range model.Dimensions() {
			pid := r.Slot(d)
			if pid == "" {
				continue
			}
			referenced[pid] = struct{}{}
			p, ok := s.patterns[pid]
			if !ok {
				report.Errors = append(report.Errors, Issue{
					Entity:  KindRelationship,
					ID:      id,
					Message: fmt.Sprintf("%s slot references unknown pattern %s", d, pid),
				})
				continue
			}
			if r.Status == model.RelationshipActive && p.Status == model.StatusDeprecated {
				report.Warnings = append(report.Warnings, Issue{
					Entity:  KindRelationship,
					ID:      id,
					Message: fmt.Sprintf("active relationship references deprecated pattern %s", pid),
				})
			}
		}
	}

	for _, id := range s.patternOrder {
		if _, ok := referenced[id]; !ok {
			report.Warnings = append(report.Warnings, Issue{
				Entity:  KindPattern,
				ID:      id,
				Message: "pattern is not referenced by any relationship",
			})
		}
	}

	report.Valid = len(report.Errors) == 0
	return report
}
