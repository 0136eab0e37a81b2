package schema

import (
	"fmt"
	"strings"
	"sync"

	"climateprep/domain/core"
)

// Schema keys known to the built-in registry
const (
	CarbonFootprint = "carbon_footprint"
	WeatherData     = "weather_data"
	Generic         = "generic"
	// Auto asks the registry to pick a schema from the column names
	Auto = "auto"
)

// CarbonFootprintSchema returns the built-in carbon reporting schema
func CarbonFootprintSchema() DomainSchema {
	return DomainSchema{
		Name:           CarbonFootprint,
		Description:    "Organizational greenhouse-gas inventory by emission scope",
		Keywords:       []string{"emission", "carbon", "co2", "scope", "ghg", "footprint"},
		RequiredFields: []string{"reporting_year", "scope_1_emissions"},
		OptionalFields: []string{"organization_name", "scope_2_emissions", "scope_3_emissions", "energy_consumption", "total_emissions"},
		FieldTypes: map[string]FieldType{
			"reporting_year":     FieldInteger,
			"scope_1_emissions":  FieldNumeric,
			"organization_name":  FieldString,
			"scope_2_emissions":  FieldNumeric,
			"scope_3_emissions":  FieldNumeric,
			"energy_consumption": FieldNumeric,
			"total_emissions":    FieldNumeric,
		},
		ValidationRules: map[string]Rule{
			"reporting_year":     {Min: 2000, Max: 2030},
			"scope_1_emissions":  {Min: 0, Max: 10_000_000},
			"scope_2_emissions":  {Min: 0, Max: 10_000_000},
			"scope_3_emissions":  {Min: 0, Max: 50_000_000},
			"energy_consumption": {Min: 0, Max: 1e12},
			"total_emissions":    {Min: 0, Max: 70_000_000},
		},
		Relationships: []Relationship{{
			Total:     "total_emissions",
			Parts:     []string{"scope_1_emissions", "scope_2_emissions", "scope_3_emissions"},
			Tolerance: 0.01,
			Derive:    true,
		}},
	}
}

// WeatherDataSchema returns the built-in weather observation schema
func WeatherDataSchema() DomainSchema {
	return DomainSchema{
		Name:           WeatherData,
		Description:    "Station weather observations",
		Keywords:       []string{"temperature", "precipitation", "humidity", "pressure", "wind"},
		RequiredFields: []string{"timestamp", "location", "temperature"},
		OptionalFields: []string{"humidity", "pressure", "wind_speed", "precipitation"},
		FieldTypes: map[string]FieldType{
			"timestamp":     FieldDatetime,
			"location":      FieldString,
			"temperature":   FieldNumeric,
			"humidity":      FieldNumeric,
			"pressure":      FieldNumeric,
			"wind_speed":    FieldNumeric,
			"precipitation": FieldNumeric,
		},
		ValidationRules: map[string]Rule{
			"temperature":   {Min: -50, Max: 60},
			"humidity":      {Min: 0, Max: 100},
			"pressure":      {Min: 800, Max: 1100},
			"wind_speed":    {Min: 0, Max: 200},
			"precipitation": {Min: 0, Max: 1000},
		},
	}
}

// GenericSchema declares no fields; it is used when no domain matches
func GenericSchema() DomainSchema {
	return DomainSchema{
		Name:        Generic,
		Description: "No domain fields; quality is scored on structure only",
		FieldTypes:  map[string]FieldType{},
	}
}

// Registry holds the domain schemas available to the pipeline
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]DomainSchema
	order   []string
}

// NewRegistry creates a registry preloaded with the built-in schemas
func NewRegistry() *Registry {
	r := &Registry{schemas: make(map[string]DomainSchema)}
	for _, s := range []DomainSchema{CarbonFootprintSchema(), WeatherDataSchema(), GenericSchema()} {
		if err := r.Register(s); err != nil {
			panic(fmt.Sprintf("built-in schema %s is invalid: %v", s.Name, err))
		}
	}
	return r
}

// Register validates and adds a schema, replacing one with the same name
func (r *Registry) Register(s DomainSchema) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Name == Auto {
		return core.NewInvalidSchemaError(s.Name, "name is reserved")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schemas[s.Name]; !exists {
		r.order = append(r.order, s.Name)
	}
	r.schemas[s.Name] = s
	return nil
}

// Get returns a schema by name
func (r *Registry) Get(name string) (DomainSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	if !ok {
		return DomainSchema{}, fmt.Errorf("%w: %s", core.ErrSchemaNotFound, name)
	}
	return s, nil
}

// Names lists registered schema names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.order...)
}

// List returns all registered schemas in registration order
func (r *Registry) List() []DomainSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]DomainSchema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.schemas[name])
	}
	return out
}

// Detect picks the schema whose keywords occur in the most column names.
// Ties go to the earlier registered schema; no hits falls back to generic.
func (r *Registry) Detect(columns []string) DomainSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best, bestHits := Generic, 0
	for _, name := range r.order {
		hits := keywordHits(r.schemas[name].Keywords, columns)
		if hits > bestHits {
			best, bestHits = name, hits
		}
	}
	if s, ok := r.schemas[best]; ok {
		return s
	}
	return GenericSchema()
}

// Resolve returns the named schema, or detects one when name is empty or "auto"
func (r *Registry) Resolve(name string, columns []string) (DomainSchema, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, Auto) {
		return r.Detect(columns), nil
	}
	return r.Get(name)
}

func keywordHits(keywords, columns []string) int {
	hits := 0
	for _, c := range columns {
		lc := strings.ToLower(c)
		for _, k := range keywords {
			if strings.Contains(lc, strings.ToLower(k)) {
				hits++
				break
			}
		}
	}
	return hits
}
