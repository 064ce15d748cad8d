// Package model defines the P3IF entities: patterns in three dimensions
// (Property, Process, Perspective) and the n-ary relationships that connect them.
//
// Patterns are a single struct with a sealed Attributes sum type carrying the
// variant-specific fields. Common operations treat every pattern the same way;
// code that needs variant fields switches exhaustively on the Attributes type.
//
// Example:
//
//	temp := model.NewProperty("Temperature")
//	temp.Domain = "Manufacturing"
//	temp.Tags = []string{"Sensor", " physical "}
//
//	heat := model.NewProcess("Heat Treatment")
//
//	rel, err := model.NewRelationship(temp.ID, heat.ID, "", 0.8, 0.9)
//	if err != nil {
//		var inv *model.InvariantViolationError
//		errors.As(err, &inv)
//	}
package model

import (
	"fmt"
	"strings"
)

// Dimension is one of the three pattern kinds. Every relationship slot is
// tied to exactly one dimension.
type Dimension string

const (
	DimensionProperty    Dimension = "property"
	DimensionProcess     Dimension = "process"
	DimensionPerspective Dimension = "perspective"
)

// Dimensions returns the three dimensions in slot order.
func Dimensions() []Dimension {
	return []Dimension{DimensionProperty, DimensionProcess, DimensionPerspective}
}

// Valid reports whether d is a known dimension.
func (d Dimension) Valid() bool {
	switch d {
	case DimensionProperty, DimensionProcess, DimensionPerspective:
		return true
	}
	return false
}

// ParseDimension converts a case-insensitive name to a Dimension.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", &InvariantViolationError{
			Entity: "dimension",
			Field:  "name",
			Reason: fmt.Sprintf("unknown dimension %q", s),
		}
	}
	return d, nil
}

// ValidationStatus tracks the review state of a pattern.
type ValidationStatus string

const (
	StatusDraft      ValidationStatus = "draft"
	StatusValidated  ValidationStatus = "validated"
	StatusDeprecated ValidationStatus = "deprecated"
)

// RelationshipType classifies the semantics of a relationship.
type RelationshipType string

const (
	RelationshipGeneral        RelationshipType = "general"
	RelationshipCausal         RelationshipType = "causal"
	RelationshipDependency     RelationshipType = "dependency"
	RelationshipComposition    RelationshipType = "composition"
	RelationshipAggregation    RelationshipType = "aggregation"
	RelationshipSpecialization RelationshipType = "specialization"
)

// RelationshipTypes returns every relationship type in declaration order.
func RelationshipTypes() []RelationshipType {
	return []RelationshipType{
		RelationshipGeneral,
		RelationshipCausal,
		RelationshipDependency,
		RelationshipComposition,
		RelationshipAggregation,
		RelationshipSpecialization,
	}
}

// RelationshipStatus is the lifecycle state of a relationship.
//
// No transition rules are enforced; callers assign any value directly.
type RelationshipStatus string

const (
	RelationshipActive       RelationshipStatus = "active"
	RelationshipDeprecated   RelationshipStatus = "deprecated"
	RelationshipExperimental RelationshipStatus = "experimental"
)

// normalizeTags lower-cases and trims tags, dropping empties and duplicates
// while keeping first-occurrence order.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = NormalizeTag(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// NormalizeTag returns the canonical form of a tag used for storage and lookup.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
