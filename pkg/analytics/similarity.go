package analytics

import (
	"sort"
	"strings"

	"github.com/orneryd/p3if/pkg/cache"
	"github.com/orneryd/p3if/pkg/model"
	"github.com/orneryd/p3if/pkg/storage"
)

// Matrix is a row-normalized co-occurrence matrix over the patterns of one
// dimension. Row and column i both refer to PatternIDs[i].
type Matrix struct {
	Dimension  model.Dimension `json:"dimension" yaml:"dimension"`
	PatternIDs []string        `json:"pattern_ids" yaml:"pattern_ids"`
	Values     [][]float64     `json:"values" yaml:"values"`
}

func (m *Matrix) clone() *Matrix {
	c := &Matrix{
		Dimension:  m.Dimension,
		PatternIDs: append([]string(nil), m.PatternIDs...),
		Values:     cloneRows(m.Values),
	}
	return c
}

// SimilarityMatrix builds the co-occurrence matrix for dimension d.
//
// Patterns appear in insertion order. For every relationship whose d slot
// names a pattern of the set, the diagonal cell of that pattern is
// incremented, and so is the symmetric pair of cells shared with every other
// participant that also belongs to the set. Rows are then divided by their
// sum; a pattern with no relationships keeps an all-zero row.
//
// The result is memoized in the query cache until the next mutation.
func (e *Engine) SimilarityMatrix(d model.Dimension) (*Matrix, error) {
	if !d.Valid() {
		return nil, &model.InvariantViolationError{
			Entity: "dimension",
			Field:  "name",
			Reason: "unknown dimension " + string(d),
		}
	}

	qc := e.store.QueryCache()
	if v, ok := qc.Get(similarityKey(d, e.store.Generation())); ok {
		return v.(*Matrix).clone(), nil
	}

	snap := e.store.Snapshot()
	m := similarityMatrix(snap, d)
	qc.Put(similarityKey(d, snap.Generation), m)
	return m.clone(), nil
}

func similarityKey(d model.Dimension, generation uint64) string {
	return cache.Key("similarity", d, generation)
}

func similarityMatrix(snap storage.Snapshot, d model.Dimension) *Matrix {
	m := &Matrix{Dimension: d, PatternIDs: []string{}}
	pos := make(map[string]int)
	for _, p := range snap.Patterns {
		if p.Type() != d {
			continue
		}
		pos[p.ID] = len(m.PatternIDs)
		m.PatternIDs = append(m.PatternIDs, p.ID)
	}

	n := len(m.PatternIDs)
	m.Values = make([][]float64, n)
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
	}

	for _, r := range snap.Relationships {
		i, ok := pos[r.Slot(d)]
		if !ok {
			continue
		}
		m.Values[i][i]++
		for _, other := range r.Participants() {
			if other == m.PatternIDs[i] {
				continue
			}
			if j, ok := pos[other]; ok {
				m.Values[i][j]++
				m.Values[j][i]++
			}
		}
	}

	for _, row := range m.Values {
		var sum float64
		for _, v := range row {
			sum += v
		}
		if sum == 0 {
			continue
		}
		for j := range row {
			row[j] /= sum
		}
	}
	return m
}

// DomainMatrix holds Jaccard similarities between domains. Rows and columns
// follow Domains, which is sorted.
type DomainMatrix struct {
	Domains     []string                        `json:"domains" yaml:"domains"`
	ByDimension map[model.Dimension][][]float64 `json:"by_dimension" yaml:"by_dimension"`
	Overall     [][]float64                     `json:"overall" yaml:"overall"`
}

func (m *DomainMatrix) clone() *DomainMatrix {
	c := &DomainMatrix{
		Domains:     append([]string(nil), m.Domains...),
		ByDimension: make(map[model.Dimension][][]float64, len(m.ByDimension)),
		Overall:     cloneRows(m.Overall),
	}
	for d, rows := range m.ByDimension {
		c.ByDimension[d] = cloneRows(rows)
	}
	return c
}

// DomainSimilarity compares domains by the lower-cased names of their
// patterns: per dimension, and over all dimensions together. The diagonal is
// 1.0; a pair whose name sets are both empty scores 0.0.
//
// The result is memoized in the query cache until the next mutation.
func (e *Engine) DomainSimilarity() *DomainMatrix {
	qc := e.store.QueryCache()
	if v, ok := qc.Get(domainKey(e.store.Generation())); ok {
		return v.(*DomainMatrix).clone()
	}

	snap := e.store.Snapshot()
	m := domainSimilarity(snap)
	qc.Put(domainKey(snap.Generation), m)
	return m.clone()
}

func domainKey(generation uint64) string {
	return cache.Key("domain-similarity", generation)
}

type nameSet map[string]struct{}

func domainSimilarity(snap storage.Snapshot) *DomainMatrix {
	byDim := make(map[model.Dimension]map[string]nameSet, 3)
	for _, d := range model.Dimensions() {
		byDim[d] = make(map[string]nameSet)
	}
	overall := make(map[string]nameSet)

	for _, p := range snap.Patterns {
		if p.Domain == "" {
			continue
		}
		name := strings.ToLower(p.Name)
		addName(overall, p.Domain, name)
		if sets, ok := byDim[p.Type()]; ok {
			addName(sets, p.Domain, name)
		}
	}

	domains := make([]string, 0, len(overall))
	for d := range overall {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	m := &DomainMatrix{
		Domains:     domains,
		ByDimension: make(map[model.Dimension][][]float64, 3),
		Overall:     jaccardMatrix(domains, overall),
	}
	for _, d := range model.Dimensions() {
		m.ByDimension[d] = jaccardMatrix(domains, byDim[d])
	}
	return m
}

func addName(sets map[string]nameSet, domain, name string) {
	s, ok := sets[domain]
	if !ok {
		s = make(nameSet)
		sets[domain] = s
	}
	s[name] = struct{}{}
}

func jaccardMatrix(domains []string, sets map[string]nameSet) [][]float64 {
	n := len(domains)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		out[i][i] = 1.0
		for j := i + 1; j < n; j++ {
			v := Jaccard(sets[domains[i]], sets[domains[j]])
			out[i][j] = v
			out[j][i] = v
		}
	}
	return out
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func cloneRows(rows [][]float64) [][]float64 {
	if rows == nil {
		return nil
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
