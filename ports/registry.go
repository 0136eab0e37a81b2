package ports

import (
	"climateprep/domain/schema"
)

// SchemaRegistry supplies domain schemas by name. It is read-only for the pipeline.
type SchemaRegistry interface {
	Get(name string) (schema.DomainSchema, error)
	// Resolve returns the named schema, or detects one from the columns when
	// name is empty or "auto"
	Resolve(name string, columns []string) (schema.DomainSchema, error)
	List() []schema.DomainSchema
}
