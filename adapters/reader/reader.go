package reader

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"time"

	"climateprep/domain/core"
	"climateprep/domain/dataset"
)

// Format is a supported upload format, named by its file extension
type Format string

const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
	FormatXML     Format = "xml"
)

// SupportedFormats lists the formats the reader decodes
func SupportedFormats() []Format {
	return []Format{FormatCSV, FormatXLSX, FormatJSON, FormatParquet, FormatXML}
}

// Config tunes the text-format heuristics
type Config struct {
	// EncodingConfidence is the minimum detector confidence (0-100) to trust a detected charset
	EncodingConfidence int
	// EncodingSampleBytes caps how much of the buffer the charset detector sees
	EncodingSampleBytes int
	// Delimiters are tried in order; the parse with the most columns wins
	Delimiters []rune
}

// DefaultConfig returns the standard reader heuristics
func DefaultConfig() Config {
	return Config{
		EncodingConfidence:  70,
		EncodingSampleBytes: 64 * 1024,
		Delimiters:          []rune{',', ';', '\t', '|'},
	}
}

type decodeFunc func(ctx context.Context, data []byte) (*dataset.Table, error)

// DataReader turns uploaded bytes into a table
type DataReader struct {
	config   Config
	decoders map[Format]decodeFunc
}

// NewDataReader creates a reader for every supported format
func NewDataReader(config Config) *DataReader {
	r := &DataReader{config: config}
	r.decoders = map[Format]decodeFunc{
		FormatCSV:     r.readCSV,
		FormatXLSX:    readXLSX,
		FormatJSON:    readJSON,
		FormatParquet: readParquet,
		FormatXML:     readXML,
	}
	return r
}

// DetectFormat maps a filename onto a supported format by its extension
func DetectFormat(filename string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	for _, f := range SupportedFormats() {
		if Format(ext) == f {
			return f, nil
		}
	}
	return "", core.NewUnsupportedFormatError(ext)
}

// Supports reports whether the filename has a supported extension
func (r *DataReader) Supports(filename string) bool {
	_, err := DetectFormat(filename)
	return err == nil
}

// Read decodes data according to the extension of filename
func (r *DataReader) Read(ctx context.Context, data []byte, filename string) (*dataset.Table, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, core.ErrEmptyUpload
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	tbl, err := r.decoders[format](ctx, data)
	if err != nil {
		return nil, err
	}
	log.Printf("[DataReader] %s decoded in %.2fms (%d columns, %d rows)",
		strings.ToUpper(string(format)), float64(time.Since(start).Nanoseconds())/1e6, tbl.NumColumns(), tbl.NumRows())
	return tbl, nil
}
