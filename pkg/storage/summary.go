package storage

import (
	"github.com/orneryd/p3if/pkg/cache"
	"github.com/orneryd/p3if/pkg/model"
)

// Summary holds descriptive statistics over the whole store.
type Summary struct {
	TotalPatterns         int                              `json:"total_patterns" yaml:"total_patterns"`
	TotalRelationships    int                              `json:"total_relationships" yaml:"total_relationships"`
	PatternsByType        map[model.Dimension]int          `json:"patterns_by_type" yaml:"patterns_by_type"`
	PatternsByDomain      map[string]int                   `json:"patterns_by_domain" yaml:"patterns_by_domain"`
	PatternsByStatus      map[model.ValidationStatus]int   `json:"patterns_by_status" yaml:"patterns_by_status"`
	TagCount              int                              `json:"tag_count" yaml:"tag_count"`
	AverageQuality        float64                          `json:"average_quality" yaml:"average_quality"`
	RelationshipsByType   map[model.RelationshipType]int   `json:"relationships_by_type" yaml:"relationships_by_type"`
	RelationshipsByStatus map[model.RelationshipStatus]int `json:"relationships_by_status" yaml:"relationships_by_status"`
	AverageStrength       float64                          `json:"average_strength" yaml:"average_strength"`
	AverageConfidence     float64                          `json:"average_confidence" yaml:"average_confidence"`
	Bidirectional         int                              `json:"bidirectional" yaml:"bidirectional"`
	QueryCache            cache.Stats                      `json:"query_cache" yaml:"query_cache"`
	MetricsCache          cache.Stats                      `json:"metrics_cache" yaml:"metrics_cache"`
}

// SummaryStatistics counts patterns and relationships along every indexed
// axis and reports both cache statistics. Patterns without a domain are not
// counted in PatternsByDomain.
func (s *Store) SummaryStatistics() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := Summary{
		TotalPatterns:         len(s.patterns),
		TotalRelationships:    len(s.relationships),
		PatternsByType:        make(map[model.Dimension]int, 3),
		PatternsByDomain:      make(map[string]int),
		PatternsByStatus:      make(map[model.ValidationStatus]int, 3),
		TagCount:              len(s.indexes.Tags()),
		RelationshipsByType:   make(map[model.RelationshipType]int),
		RelationshipsByStatus: make(map[model.RelationshipStatus]int, 3),
		QueryCache:            s.queryCache.Stats(),
		MetricsCache:          s.metricsCache.Stats(),
	}

	var quality float64
	for _, p := range s.patterns {
		sum.PatternsByType[p.Type()]++
		sum.PatternsByStatus[p.Status]++
		if p.Domain != "" {
			sum.PatternsByDomain[p.Domain]++
		}
		quality += p.QualityScore
	}
	if n := len(s.patterns); n > 0 {
		sum.AverageQuality = quality / float64(n)
	}

	var strength, confidence float64
	for _, r := range s.relationships {
		sum.RelationshipsByType[r.Type]++
		sum.RelationshipsByStatus[r.Status]++
		if r.Bidirectional {
			sum.Bidirectional++
		}
		strength += r.Strength
		confidence += r.Confidence
	}
	if n := len(s.relationships); n > 0 {
		sum.AverageStrength = strength / float64(n)
		sum.AverageConfidence = confidence / float64(n)
	}
	return sum
}
