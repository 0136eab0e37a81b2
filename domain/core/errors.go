package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound       = errors.New("resource not found")
	ErrReportNotFound = fmt.Errorf("%w: report", ErrNotFound)
	ErrSchemaNotFound = fmt.Errorf("%w: domain schema", ErrNotFound)

	// Ingestion errors
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyUpload       = fmt.Errorf("%w: empty upload", ErrUnsupportedFormat)
	ErrParse             = errors.New("file could not be parsed")

	// ErrSchema marks an internal invariant violation between the mapping and the table.
	ErrSchema = errors.New("schema invariant violated")

	// Validation errors
	ErrInvalidSchema = errors.New("invalid domain schema")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewUnsupportedFormatError(extension string) error {
	if extension == "" {
		return fmt.Errorf("%w: file has no extension", ErrUnsupportedFormat)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, extension)
}

func NewSchemaError(field, column string) error {
	return fmt.Errorf("%w: field %s is mapped to column %q which is not present", ErrSchema, field, column)
}

func NewInvalidSchemaError(schema string, reason string) error {
	return fmt.Errorf("%w %s: %s", ErrInvalidSchema, schema, reason)
}
