package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"climateprep/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltInSchemasAreValid(t *testing.T) {
	for _, s := range []DomainSchema{CarbonFootprintSchema(), WeatherDataSchema(), GenericSchema()} {
		assert.NoError(t, s.Validate(), s.Name)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DomainSchema)
	}{
		{"overlapping required and optional", func(s *DomainSchema) {
			s.OptionalFields = append(s.OptionalFields, "scope_1_emissions")
		}},
		{"unknown type", func(s *DomainSchema) { s.FieldTypes["scope_1_emissions"] = "money" }},
		{"type for undeclared field", func(s *DomainSchema) { s.FieldTypes["nope"] = FieldNumeric }},
		{"rule with min above max", func(s *DomainSchema) {
			s.ValidationRules["scope_1_emissions"] = Rule{Min: 10, Max: 1}
		}},
		{"rule on string field", func(s *DomainSchema) {
			s.ValidationRules["organization_name"] = Rule{Min: 0, Max: 1}
		}},
		{"relationship on unknown field", func(s *DomainSchema) {
			s.Relationships = []Relationship{{Total: "x", Parts: []string{"scope_1_emissions"}}}
		}},
		{"missing name", func(s *DomainSchema) { s.Name = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := CarbonFootprintSchema()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrInvalidSchema))
		})
	}
}

func TestRuleClip(t *testing.T) {
	r := Rule{Min: 0, Max: 10}
	assert.Equal(t, 0.0, r.Clip(-500))
	assert.Equal(t, 10.0, r.Clip(11))
	assert.Equal(t, 5.0, r.Clip(5))
	assert.True(t, r.Contains(0))
	assert.False(t, r.Contains(-0.1))
}

func TestFieldsDeclarationOrder(t *testing.T) {
	s := CarbonFootprintSchema()
	fields := s.Fields()
	assert.Equal(t, []string{"reporting_year", "scope_1_emissions"}, fields[:2])
	assert.True(t, s.IsRequired("reporting_year"))
	assert.False(t, s.IsRequired("scope_2_emissions"))
	assert.True(t, s.HasField("total_emissions"))
}

func TestRegistryGetAndNames(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{CarbonFootprint, WeatherData, Generic}, r.Names())

	s, err := r.Get(WeatherData)
	require.NoError(t, err)
	assert.Equal(t, WeatherData, s.Name)

	_, err = r.Get("urban")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestRegistryRejectsInvalidAndReserved(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(DomainSchema{Name: Auto, FieldTypes: map[string]FieldType{}}))
	bad := CarbonFootprintSchema()
	bad.ValidationRules["reporting_year"] = Rule{Min: 3000, Max: 2000}
	assert.Error(t, r.Register(bad))
}

func TestDetect(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		columns  []string
		expected string
	}{
		{[]string{"scope_1_emissions", "scope_2_emissions", "reporting_year"}, CarbonFootprint},
		{[]string{"Timestamp", "Temperature", "Humidity", "station"}, WeatherData},
		{[]string{"population", "area"}, Generic},
		{nil, Generic},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, r.Detect(tt.columns).Name, "%v", tt.columns)
	}
}

func TestResolve(t *testing.T) {
	r := NewRegistry()
	s, err := r.Resolve("AUTO", []string{"co2_total"})
	require.NoError(t, err)
	assert.Equal(t, CarbonFootprint, s.Name)

	s, err = r.Resolve("", []string{"wind"})
	require.NoError(t, err)
	assert.Equal(t, WeatherData, s.Name)

	_, err = r.Resolve("nope", nil)
	assert.Error(t, err)
}

const waterYAML = `
schemas:
  - name: water_usage
    description: Site water withdrawal
    keywords: [water, withdrawal]
    fields:
      - name: site
        type: string
        required: true
      - name: withdrawal_m3
        type: numeric
        required: true
        min: 0
      - name: groundwater_m3
        type: numeric
      - name: surface_m3
        type: numeric
    relationships:
      - total: withdrawal_m3
        parts: [groundwater_m3, surface_m3]
`

func TestParseYAML(t *testing.T) {
	schemas, err := ParseYAML(strings.NewReader(waterYAML))
	require.NoError(t, err)
	require.Len(t, schemas, 1)

	s := schemas[0]
	assert.Equal(t, "water_usage", s.Name)
	assert.Equal(t, []string{"site", "withdrawal_m3"}, s.RequiredFields)
	assert.Equal(t, []string{"groundwater_m3", "surface_m3"}, s.OptionalFields)
	assert.Equal(t, 0.0, s.ValidationRules["withdrawal_m3"].Min)
	assert.Equal(t, 0.01, s.Relationships[0].Tolerance)
}

func TestParseYAMLRejectsInvalidSchema(t *testing.T) {
	doc := `
schemas:
  - name: broken
    fields:
      - name: a
        type: colour
`
	_, err := ParseYAML(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(waterYAML), 0o644))

	r := NewRegistry()
	n, err := r.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, r.Names(), "water_usage")

	s := r.Detect([]string{"water_withdrawal", "site"})
	assert.Equal(t, "water_usage", s.Name)
}
