package quality

import (
	"time"

	"climateprep/domain/core"
	"climateprep/domain/schema"
)

// FileMetadata describes the uploaded file
type FileMetadata struct {
	Filename  string    `json:"filename"`
	Extension string    `json:"extension"`
	SizeBytes int       `json:"size_bytes"`
	SHA256    core.Hash `json:"sha256"`
	Rows      int       `json:"rows"`
	Columns   int       `json:"columns"`
}

// CleaningStats counts per-column cell changes made by the cleaning engine
type CleaningStats struct {
	CoercionErrors map[string]int `json:"coercion_errors"`
	OutOfRange     map[string]int `json:"out_of_range"`
	Imputed        map[string]int `json:"imputed"`
	Clipped        map[string]int `json:"clipped"`
	DuplicateRows  int            `json:"duplicate_rows"`
}

// NewCleaningStats returns zeroed stats
func NewCleaningStats() CleaningStats {
	return CleaningStats{
		CoercionErrors: map[string]int{},
		OutOfRange:     map[string]int{},
		Imputed:        map[string]int{},
		Clipped:        map[string]int{},
	}
}

// ColumnProfile summarizes the distribution of one numeric column
type ColumnProfile struct {
	Column        string  `json:"column"`
	Field         string  `json:"field,omitempty"`
	Count         int     `json:"count"`
	Missing       int     `json:"missing"`
	Mean          float64 `json:"mean"`
	StdDev        float64 `json:"std_dev"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Median        float64 `json:"median"`
	Q1            float64 `json:"q1"`
	Q3            float64 `json:"q3"`
	Outliers      int     `json:"outliers"`
	Skewness      float64 `json:"skewness"`
	Kurtosis      float64 `json:"kurtosis"`
	NormalityP    float64 `json:"normality_p"`
	LooksNormal   bool    `json:"looks_normal"`
	ProfileStatus string  `json:"profile_status,omitempty"`
}

// Report is the full processing report for one upload. Assessment scores the
// upload as received; Output scores the cleaned table with the same dimensions.
type Report struct {
	ID                    core.ReportID          `json:"id"`
	Schema                string                 `json:"schema"`
	File                  FileMetadata           `json:"file"`
	Assessment            Assessment             `json:"assessment"`
	Output                *Assessment            `json:"output_assessment,omitempty"`
	Improvement           *Improvement           `json:"improvement,omitempty"`
	Mapping               schema.ColumnMapping   `json:"mapping"`
	MissingRequiredFields []string               `json:"missing_required_fields"`
	Transformations       []TransformationRecord `json:"transformations"`
	Cleaning              CleaningStats          `json:"cleaning"`
	Profiles              []ColumnProfile        `json:"profiles,omitempty"`
	Recommendations       []string               `json:"recommendations"`
	Notes                 []string               `json:"notes,omitempty"`
	ProcessedAt           core.Timestamp         `json:"processed_at"`
	Duration              time.Duration          `json:"duration_ns"`
}

// Summary is the listing shape of a stored report
type Summary struct {
	ID           core.ReportID  `json:"id" db:"id"`
	Filename     string         `json:"filename" db:"filename"`
	Schema       string         `json:"schema" db:"schema_name"`
	Grade        Grade          `json:"grade" db:"grade"`
	OverallScore float64        `json:"overall_score" db:"overall_score"`
	Rows         int            `json:"rows" db:"row_count"`
	ProcessedAt  core.Timestamp `json:"processed_at" db:"-"`
}

// Summarize returns the listing shape of the report
func (r *Report) Summarize() Summary {
	return Summary{
		ID:           r.ID,
		Filename:     r.File.Filename,
		Schema:       r.Schema,
		Grade:        r.Assessment.Grade,
		OverallScore: r.Assessment.OverallScore,
		Rows:         r.File.Rows,
		ProcessedAt:  r.ProcessedAt,
	}
}
