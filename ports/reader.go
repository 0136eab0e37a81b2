package ports

import (
	"context"

	"climateprep/domain/dataset"
)

// FormatReader decodes an uploaded file into a table
type FormatReader interface {
	// Read decodes data using the format named by filename's extension
	Read(ctx context.Context, data []byte, filename string) (*dataset.Table, error)
	// Supports reports whether filename has a readable extension
	Supports(filename string) bool
}
