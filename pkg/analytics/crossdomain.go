package analytics

import (
	"sort"

	"github.com/orneryd/p3if/pkg/storage"
)

// DomainPairStats aggregates the strength of relationships spanning one
// unordered pair of domains. DomainA sorts before DomainB.
type DomainPairStats struct {
	DomainA         string  `json:"domain_a" yaml:"domain_a"`
	DomainB         string  `json:"domain_b" yaml:"domain_b"`
	Count           int     `json:"count" yaml:"count"`
	AverageStrength float64 `json:"average_strength" yaml:"average_strength"`
	MinStrength     float64 `json:"min_strength" yaml:"min_strength"`
	MaxStrength     float64 `json:"max_strength" yaml:"max_strength"`
}

// CrossDomainReport lists cross-domain relationships and per-pair statistics.
type CrossDomainReport struct {
	Relationships []string          `json:"relationships" yaml:"relationships"`
	Pairs         []DomainPairStats `json:"pairs" yaml:"pairs"`
}

// CrossDomain finds relationships whose participants span more than one
// domain. Patterns without a domain do not count. A relationship touching
// three domains contributes to all three pairs.
func (e *Engine) CrossDomain() CrossDomainReport {
	return crossDomain(e.store.Snapshot())
}

func crossDomain(snap storage.Snapshot) CrossDomainReport {
	domainOf := make(map[string]string, len(snap.Patterns))
	for _, p := range snap.Patterns {
		domainOf[p.ID] = p.Domain
	}

	type pairKey struct{ a, b string }
	stats := make(map[pairKey]*DomainPairStats)
	report := CrossDomainReport{Relationships: []string{}, Pairs: []DomainPairStats{}}

	for _, r := range snap.Relationships {
		seen := make(map[string]struct{}, 3)
		var domains []string
		for _, id := range r.Participants() {
			d := domainOf[id]
			if d == "" {
				continue
			}
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			domains = append(domains, d)
		}
		if len(domains) < 2 {
			continue
		}

		report.Relationships = append(report.Relationships, r.ID)
		sort.Strings(domains)
		for i := 0; i < len(domains); i++ {
			for j := i + 1; j < len(domains); j++ {
				k := pairKey{domains[i], domains[j]}
				st, ok := stats[k]
				if !ok {
					st = &DomainPairStats{
						DomainA:     k.a,
						DomainB:     k.b,
						MinStrength: r.Strength,
						MaxStrength: r.Strength,
					}
					stats[k] = st
				}
				st.Count++
				st.AverageStrength += r.Strength
				st.MinStrength = min(st.MinStrength, r.Strength)
				st.MaxStrength = max(st.MaxStrength, r.Strength)
			}
		}
	}

	for _, st := range stats {
		st.AverageStrength /= float64(st.Count)
		report.Pairs = append(report.Pairs, *st)
	}
	sort.Slice(report.Pairs, func(i, j int) bool {
		if report.Pairs[i].DomainA != report.Pairs[j].DomainA {
			return report.Pairs[i].DomainA < report.Pairs[j].DomainA
		}
		return report.Pairs[i].DomainB < report.Pairs[j].DomainB
	})
	return report
}
