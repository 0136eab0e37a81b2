package schema

import (
	"fmt"

	"climateprep/domain/core"
)

// FieldType is the declared type of a schema field
type FieldType string

const (
	FieldNumeric  FieldType = "numeric"
	FieldInteger  FieldType = "integer"
	FieldString   FieldType = "string"
	FieldDatetime FieldType = "datetime"
)

// IsNumeric reports whether values of this type are numbers
func (f FieldType) IsNumeric() bool {
	return f == FieldNumeric || f == FieldInteger
}

// Valid reports whether f is one of the known field types
func (f FieldType) Valid() bool {
	switch f {
	case FieldNumeric, FieldInteger, FieldString, FieldDatetime:
		return true
	}
	return false
}

// Rule is an inclusive numeric range
type Rule struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether x lies within [Min, Max]
func (r Rule) Contains(x float64) bool {
	return x >= r.Min && x <= r.Max
}

// Clip pulls x to the nearest bound
func (r Rule) Clip(x float64) float64 {
	if x < r.Min {
		return r.Min
	}
	if x > r.Max {
		return r.Max
	}
	return x
}

// Relationship declares Total = sum(Parts) within a relative Tolerance.
// Derive allows the cleaning engine to add Total when only the parts are present.
type Relationship struct {
	Total     string   `json:"total" yaml:"total"`
	Parts     []string `json:"parts" yaml:"parts"`
	Tolerance float64  `json:"tolerance" yaml:"tolerance"`
	Derive    bool     `json:"derive,omitempty" yaml:"derive"`
}

// Fields returns the total followed by the parts
func (r Relationship) Fields() []string {
	return append([]string{r.Total}, r.Parts...)
}

// DomainSchema describes the fields a domain expects. It is read-only configuration.
type DomainSchema struct {
	Name            string               `json:"name"`
	Description     string               `json:"description,omitempty"`
	Keywords        []string             `json:"keywords,omitempty"`
	RequiredFields  []string             `json:"required_fields"`
	OptionalFields  []string             `json:"optional_fields"`
	FieldTypes      map[string]FieldType `json:"field_types"`
	ValidationRules map[string]Rule      `json:"validation_rules,omitempty"`
	Relationships   []Relationship       `json:"relationships,omitempty"`
}

// Fields returns required then optional fields in declaration order
func (s DomainSchema) Fields() []string {
	out := make([]string, 0, len(s.RequiredFields)+len(s.OptionalFields))
	out = append(out, s.RequiredFields...)
	return append(out, s.OptionalFields...)
}

// IsRequired reports whether field is required
func (s DomainSchema) IsRequired(field string) bool {
	for _, f := range s.RequiredFields {
		if f == field {
			return true
		}
	}
	return false
}

// HasField reports whether field is declared
func (s DomainSchema) HasField(field string) bool {
	for _, f := range s.Fields() {
		if f == field {
			return true
		}
	}
	return false
}

// TypeOf returns the declared type of a field
func (s DomainSchema) TypeOf(field string) (FieldType, bool) {
	t, ok := s.FieldTypes[field]
	return t, ok
}

// RuleFor returns the validation range of a field
func (s DomainSchema) RuleFor(field string) (Rule, bool) {
	r, ok := s.ValidationRules[field]
	return r, ok
}

// Validate checks the structural invariants of the schema
func (s DomainSchema) Validate() error {
	if s.Name == "" {
		return core.NewInvalidSchemaError("<unnamed>", "name is required")
	}
	seen := make(map[string]bool)
	for _, f := range s.RequiredFields {
		if seen[f] {
			return core.NewInvalidSchemaError(s.Name, fmt.Sprintf("field %s declared twice", f))
		}
		seen[f] = true
	}
	for _, f := range s.OptionalFields {
		if seen[f] {
			return core.NewInvalidSchemaError(s.Name, fmt.Sprintf("field %s is both required and optional or declared twice", f))
		}
		seen[f] = true
	}
	for f, t := range s.FieldTypes {
		if !seen[f] {
			return core.NewInvalidSchemaError(s.Name, fmt.Sprintf("type declared for unknown field %s", f))
		}
		if !t.Valid() {
			return core.NewInvalidSchemaError(s.Name, fmt.Sprintf("field %s has unknown type %q", f, t))
		}
	}
	for f, r := range s.ValidationRules {
		t, ok := s.FieldTypes[f]
		if !ok || !t.IsNumeric() {
			return core.NewInvalidSchemaError(s.Name, fmt.Sprintf("range rule on non-numeric field %s", f))
		}
		if r.Min > r.Max {
			return core.NewInvalidSchemaError(s.Name, fmt.Sprintf("rule for %s has min > max", f))
		}
	}
	for _, rel := range s.Relationships {
		if len(rel.Parts) == 0 {
			return core.NewInvalidSchemaError(s.Name, fmt.Sprintf("relationship for %s has no parts", rel.Total))
		}
		if rel.Tolerance < 0 {
			return core.NewInvalidSchemaError(s.Name, fmt.Sprintf("relationship for %s has negative tolerance", rel.Total))
		}
		for _, f := range rel.Fields() {
			t, ok := s.FieldTypes[f]
			if !seen[f] || !ok || !t.IsNumeric() {
				return core.NewInvalidSchemaError(s.Name, fmt.Sprintf("relationship references non-numeric or unknown field %s", f))
			}
		}
	}
	return nil
}

// Summary is the listing shape used by the API and CLI
type Summary struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	RequiredFields []string `json:"required_fields"`
	OptionalFields []string `json:"optional_fields"`
}

// Summarize returns the listing shape of the schema
func (s DomainSchema) Summarize() Summary {
	return Summary{
		Name:           s.Name,
		Description:    s.Description,
		RequiredFields: append([]string{}, s.RequiredFields...),
		OptionalFields: append([]string{}, s.OptionalFields...),
	}
}
