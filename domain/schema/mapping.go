package schema

import "sort"

// ColumnMapping maps schema fields onto source columns
type ColumnMapping struct {
	// Fields maps schema field -> source column
	Fields map[string]string `json:"fields"`
	// Scores holds the accepted similarity score per mapped field
	Scores map[string]float64 `json:"scores"`
	// Order lists mapped fields in the order they were claimed
	Order                 []string `json:"order"`
	MissingRequiredFields []string `json:"missing_required_fields"`
}

// NewColumnMapping returns an empty mapping
func NewColumnMapping() ColumnMapping {
	return ColumnMapping{
		Fields:                map[string]string{},
		Scores:                map[string]float64{},
		Order:                 []string{},
		MissingRequiredFields: []string{},
	}
}

// SourceFor returns the source column mapped to field
func (m ColumnMapping) SourceFor(field string) (string, bool) {
	c, ok := m.Fields[field]
	return c, ok
}

// IsMapped reports whether field has a source column
func (m ColumnMapping) IsMapped(field string) bool {
	_, ok := m.Fields[field]
	return ok
}

// AllMapped reports whether every field is mapped
func (m ColumnMapping) AllMapped(fields ...string) bool {
	for _, f := range fields {
		if !m.IsMapped(f) {
			return false
		}
	}
	return true
}

// MappedFields returns mapped fields in claim order; fields set without an
// Order entry follow in name order.
func (m ColumnMapping) MappedFields() []string {
	out := make([]string, 0, len(m.Fields))
	listed := make(map[string]bool, len(m.Order))
	for _, f := range m.Order {
		if _, ok := m.Fields[f]; ok && !listed[f] {
			out = append(out, f)
			listed[f] = true
		}
	}
	var rest []string
	for f := range m.Fields {
		if !listed[f] {
			rest = append(rest, f)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Len returns the number of mapped fields
func (m ColumnMapping) Len() int {
	return len(m.Fields)
}
