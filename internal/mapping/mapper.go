package mapping

import (
	"sort"
	"strings"
	"unicode"

	"climateprep/domain/schema"

	"github.com/pmezard/go-difflib/difflib"
)

// Config holds the scoring constants of the mapper
type Config struct {
	// Threshold is the minimum combined score for a mapping to be accepted
	Threshold float64
	// TokenBonus is added per token shared by field and column names
	TokenBonus float64
}

// DefaultConfig returns the standard mapping constants
func DefaultConfig() Config {
	return Config{Threshold: 0.6, TokenBonus: 0.2}
}

// Mapper maps source column names onto schema fields by name similarity
type Mapper struct {
	config Config
}

// NewMapper creates a mapper
func NewMapper(config Config) *Mapper {
	return &Mapper{config: config}
}

// Candidate is one scored field/column pair
type Candidate struct {
	Field  string  `json:"field"`
	Column string  `json:"column"`
	Score  float64 `json:"score"`
}

// Score combines sequence similarity of the lowercased names with a bonus per shared token
func (m *Mapper) Score(field, column string) float64 {
	f, c := strings.ToLower(field), strings.ToLower(column)
	return sequenceRatio(f, c) + m.config.TokenBonus*float64(sharedTokens(f, c))
}

// Map assigns each schema field, in declaration order, its best unclaimed
// column. A column is claimed at most once; the first column in source order
// wins ties.
func (m *Mapper) Map(columns []string, s schema.DomainSchema) schema.ColumnMapping {
	mapping := schema.NewColumnMapping()
	claimed := make(map[string]bool, len(columns))

	for _, field := range s.Fields() {
		bestColumn, bestScore := "", 0.0
		for _, column := range columns {
			if claimed[column] {
				continue
			}
			if score := m.Score(field, column); bestColumn == "" || score > bestScore {
				bestColumn, bestScore = column, score
			}
		}
		if bestColumn == "" || bestScore < m.config.Threshold {
			continue
		}
		claimed[bestColumn] = true
		mapping.Fields[field] = bestColumn
		mapping.Scores[field] = bestScore
		mapping.Order = append(mapping.Order, field)
	}

	for _, field := range s.RequiredFields {
		if !mapping.IsMapped(field) {
			mapping.MissingRequiredFields = append(mapping.MissingRequiredFields, field)
		}
	}
	return mapping
}

// Candidates scores every field against every column, best first. It is a
// diagnostic view and ignores claiming.
func (m *Mapper) Candidates(columns []string, s schema.DomainSchema) []Candidate {
	var out []Candidate
	for _, field := range s.Fields() {
		for _, column := range columns {
			out = append(out, Candidate{Field: field, Column: column, Score: m.Score(field, column)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// sequenceRatio is the matching-blocks ratio 2*M/T over characters
func sequenceRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}

// tokens splits a name on separators and at letter/digit boundaries, so
// "ghg_scope1" yields ghg, scope and 1.
func tokens(name string) map[string]bool {
	out := make(map[string]bool)
	var (
		cur  []rune
		prev rune
	)
	flush := func() {
		if len(cur) > 0 {
			out[string(cur)] = true
			cur = cur[:0]
		}
	}
	for _, r := range name {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
		case len(cur) > 0 && unicode.IsDigit(r) != unicode.IsDigit(prev):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
		prev = r
	}
	flush()
	return out
}

func sharedTokens(a, b string) int {
	ta, tb := tokens(a), tokens(b)
	n := 0
	for t := range ta {
		if tb[t] {
			n++
		}
	}
	return n
}
