package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlField is one field entry in a schema file
type yamlField struct {
	Name     string    `yaml:"name"`
	Type     FieldType `yaml:"type"`
	Required bool      `yaml:"required"`
	Min      *float64  `yaml:"min"`
	Max      *float64  `yaml:"max"`
}

type yamlSchema struct {
	Name          string         `yaml:"name"`
	Description   string         `yaml:"description"`
	Keywords      []string       `yaml:"keywords"`
	Fields        []yamlField    `yaml:"fields"`
	Relationships []Relationship `yaml:"relationships"`
}

type yamlFile struct {
	Schemas []yamlSchema `yaml:"schemas"`
}

// ParseYAML decodes domain schemas from a YAML document. Field order in the
// document is the mapper's processing order (required fields first).
func ParseYAML(r io.Reader) ([]DomainSchema, error) {
	var doc yamlFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode schema file: %w", err)
	}

	out := make([]DomainSchema, 0, len(doc.Schemas))
	for _, ys := range doc.Schemas {
		s := DomainSchema{
			Name:            ys.Name,
			Description:     ys.Description,
			Keywords:        ys.Keywords,
			FieldTypes:      make(map[string]FieldType, len(ys.Fields)),
			ValidationRules: make(map[string]Rule),
			Relationships:   ys.Relationships,
		}
		for _, f := range ys.Fields {
			if f.Required {
				s.RequiredFields = append(s.RequiredFields, f.Name)
			} else {
				s.OptionalFields = append(s.OptionalFields, f.Name)
			}
			t := f.Type
			if t == "" {
				t = FieldString
			}
			s.FieldTypes[f.Name] = t
			if f.Min != nil || f.Max != nil {
				rule := Rule{Min: -1e308, Max: 1e308}
				if f.Min != nil {
					rule.Min = *f.Min
				}
				if f.Max != nil {
					rule.Max = *f.Max
				}
				s.ValidationRules[f.Name] = rule
			}
		}
		for i := range s.Relationships {
			if s.Relationships[i].Tolerance == 0 {
				s.Relationships[i].Tolerance = 0.01
			}
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// LoadFile reads a schema file and registers every schema it declares
func (r *Registry) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open schema file: %w", err)
	}
	defer f.Close()

	schemas, err := ParseYAML(f)
	if err != nil {
		return 0, err
	}
	for _, s := range schemas {
		if err := r.Register(s); err != nil {
			return 0, err
		}
	}
	return len(schemas), nil
}
