// Package scoring computes the five quality dimensions for a processed upload
// and turns them into a report with recommendations.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"climateprep/domain/dataset"
	"climateprep/domain/quality"
	"climateprep/domain/schema"
	"climateprep/internal/cleaning"
)

// Recommendation texts
const (
	RecCompleteness = "Improve data collection processes to reduce missing values"
	RecAccuracy     = "Implement data validation rules at the source"
	RecConsistency  = "Establish data standardization procedures"
	RecValidity     = "Standardize data types at the source to avoid coercion failures"
	RecUniqueness   = "Implement duplicate detection and prevention mechanisms"
	RecExcellent    = "Data quality is excellent - maintain current processes"

	NoteEmptyDataset = "No data rows were present in the upload"
)

// Thresholds below which a dimension triggers a recommendation
type Thresholds struct {
	Completeness float64
	Accuracy     float64
	Consistency  float64
	Validity     float64
	Uniqueness   float64

	// DefaultConsistency is reported when no relationship can be evaluated
	DefaultConsistency float64
}

// DefaultThresholds returns the standard recommendation thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		Completeness:       0.8,
		Accuracy:           0.85,
		Consistency:        0.9,
		Validity:           0.9,
		Uniqueness:         0.95,
		DefaultConsistency: 0.9,
	}
}

// Input is everything the scorer reads for one upload
type Input struct {
	// Original is the table as parsed, before any cleaning
	Original *dataset.Table
	// Cleaning is the cleaning engine output; nil scores the raw table alone
	Cleaning *cleaning.Result
	Schema   schema.DomainSchema
	Mapping  schema.ColumnMapping
	Log      *quality.TransformationLog
}

// Scorer turns cleaning results into quality assessments. It holds no state
// beyond its thresholds, so scoring the same input twice gives the same result.
type Scorer struct {
	thresholds Thresholds
}

// NewScorer creates a scorer with fixed thresholds
func NewScorer(thresholds Thresholds) *Scorer {
	return &Scorer{thresholds: thresholds}
}

// Thresholds returns the scorer's thresholds
func (s *Scorer) Thresholds() Thresholds {
	return s.thresholds
}

// Score builds the report for one upload. ID, file metadata, profiles and
// timing are left for the caller.
func (s *Scorer) Score(in Input) quality.Report {
	report := quality.Report{
		Schema:                in.Schema.Name,
		Mapping:               in.Mapping,
		MissingRequiredFields: append([]string{}, in.Mapping.MissingRequiredFields...),
		Transformations:       []quality.TransformationRecord{},
		Cleaning:              quality.NewCleaningStats(),
	}
	if in.Log != nil {
		report.Transformations = in.Log.Records()
	}
	if in.Cleaning != nil {
		report.Cleaning = in.Cleaning.Stats
	}

	report.Assessment = s.Assess(in)
	if in.Original.IsEmpty() {
		report.Notes = append(report.Notes, NoteEmptyDataset)
	} else if in.Cleaning != nil && in.Cleaning.Table != nil {
		output := s.AssessOutput(in.Cleaning, in.Schema, in.Mapping)
		improvement := quality.Compare(report.Assessment, output)
		report.Output = &output
		report.Improvement = &improvement
	}
	report.Recommendations = s.Recommend(report.Assessment, report.MissingRequiredFields)
	return report
}

// Assess scores the upload as received: completeness on the raw table,
// uniqueness from the dedup counts, accuracy and validity from the per-field
// counts taken before imputation, consistency on the coerced table.
func (s *Scorer) Assess(in Input) quality.Assessment {
	if in.Original.IsEmpty() {
		return quality.NewAssessment(1, 1, 1, 1, 1)
	}

	stats := quality.NewCleaningStats()
	uniqueness := 1.0
	coerced := in.Original
	if in.Cleaning != nil {
		stats = in.Cleaning.Stats
		if in.Cleaning.RowsBeforeDedup > 0 {
			uniqueness = float64(in.Cleaning.RowsAfterDedup) / float64(in.Cleaning.RowsBeforeDedup)
		}
		if in.Cleaning.Coerced != nil {
			coerced = in.Cleaning.Coerced
		}
	} else {
		deduped, _ := cleaning.Deduplicate(in.Original)
		uniqueness = float64(deduped.NumRows()) / float64(in.Original.NumRows())
	}

	return quality.NewAssessment(
		Completeness(in.Original),
		fieldShare(in.Mapping, stats.OutOfRange),
		s.Consistency(coerced, in.Schema, in.Mapping),
		fieldShare(in.Mapping, stats.CoercionErrors),
		uniqueness,
	)
}

// AssessOutput scores the cleaned table with the same dimensions. Columns the
// engine added are excluded from completeness.
func (s *Scorer) AssessOutput(res *cleaning.Result, sch schema.DomainSchema, mapping schema.ColumnMapping) quality.Assessment {
	tbl := res.Table
	if tbl.IsEmpty() {
		return quality.NewAssessment(1, 1, 1, 1, 1)
	}

	added := map[string]bool{res.FlagColumn: true}
	for _, c := range res.Derived {
		added[c] = true
	}
	cells, nulls := 0, 0
	for j, column := range tbl.Columns {
		if added[column] {
			continue
		}
		for _, row := range tbl.Rows {
			cells++
			if row[j].IsMissing() {
				nulls++
			}
		}
	}
	completeness := 1.0
	if cells > 0 {
		completeness = 1 - float64(nulls)/float64(cells)
	}

	deduped, _ := cleaning.Deduplicate(tbl)
	uniqueness := float64(deduped.NumRows()) / float64(tbl.NumRows())

	fields := mapping.MappedFields()
	accurate, valid := len(fields), len(fields)
	for _, field := range fields {
		column := mapping.Fields[field]
		rule, hasRule := sch.RuleFor(field)
		ft, _ := sch.TypeOf(field)
		inRange, typed := true, true
		for _, v := range tbl.Column(column) {
			if v.IsMissing() {
				continue
			}
			if hasRule && v.IsNumeric() && !rule.Contains(v.NumericVal) {
				inRange = false
			}
			if !conforms(v, ft) {
				typed = false
			}
		}
		if !inRange {
			accurate--
		}
		if !typed {
			valid--
		}
	}

	return quality.NewAssessment(
		completeness,
		ratio(accurate, len(fields)),
		s.Consistency(tbl, sch, mapping),
		ratio(valid, len(fields)),
		uniqueness,
	)
}

// Completeness is the share of non-missing cells
func Completeness(tbl *dataset.Table) float64 {
	if tbl.IsEmpty() {
		return 1
	}
	return 1 - float64(tbl.NullCount())/float64(tbl.CellCount())
}

// Consistency averages, over the relationships whose fields are all mapped,
// the share of evaluable rows where the total matches the sum of its parts
// within the relationship tolerance. Rows with any missing or non-numeric
// value are not evaluable.
func (s *Scorer) Consistency(tbl *dataset.Table, sch schema.DomainSchema, mapping schema.ColumnMapping) float64 {
	var ratios []float64
	for _, rel := range sch.Relationships {
		if !mapping.AllMapped(rel.Fields()...) {
			continue
		}
		evaluable, satisfied := 0, 0
		for i := range tbl.Rows {
			total := tbl.Get(i, mapping.Fields[rel.Total])
			if !total.IsNumeric() {
				continue
			}
			parts, complete := 0.0, true
			for _, part := range rel.Parts {
				v := tbl.Get(i, mapping.Fields[part])
				if !v.IsNumeric() {
					complete = false
					break
				}
				parts += v.NumericVal
			}
			if !complete {
				continue
			}
			evaluable++
			scale := math.Max(math.Abs(total.NumericVal), math.Abs(parts))
			if math.Abs(total.NumericVal-parts) <= rel.Tolerance*scale {
				satisfied++
			}
		}
		if evaluable > 0 {
			ratios = append(ratios, float64(satisfied)/float64(evaluable))
		}
	}
	if len(ratios) == 0 {
		return s.thresholds.DefaultConsistency
	}
	sum := 0.0
	for _, r := range ratios {
		sum += r
	}
	return sum / float64(len(ratios))
}

// Recommend lists the actions for every dimension under its threshold
func (s *Scorer) Recommend(a quality.Assessment, missingRequired []string) []string {
	t := s.thresholds
	var recs []string
	if a.Completeness < t.Completeness {
		recs = append(recs, RecCompleteness)
	}
	if a.Accuracy < t.Accuracy {
		recs = append(recs, RecAccuracy)
	}
	if a.Consistency < t.Consistency {
		recs = append(recs, RecConsistency)
	}
	if a.Validity < t.Validity {
		recs = append(recs, RecValidity)
	}
	if a.Uniqueness < t.Uniqueness {
		recs = append(recs, RecUniqueness)
	}
	if len(missingRequired) > 0 {
		recs = append(recs, fmt.Sprintf("Provide the required fields: %s", strings.Join(missingRequired, ", ")))
	}
	if len(recs) == 0 {
		recs = append(recs, RecExcellent)
	}
	return recs
}

// fieldShare is the share of mapped fields whose source column has no
// entries in counts
func fieldShare(mapping schema.ColumnMapping, counts map[string]int) float64 {
	fields := mapping.MappedFields()
	clean := 0
	for _, field := range fields {
		if counts[mapping.Fields[field]] == 0 {
			clean++
		}
	}
	return ratio(clean, len(fields))
}

func ratio(n, of int) float64 {
	if of == 0 {
		return 1
	}
	return float64(n) / float64(of)
}

func conforms(v dataset.Value, ft schema.FieldType) bool {
	switch ft {
	case schema.FieldNumeric:
		return v.IsNumeric()
	case schema.FieldInteger:
		return v.IsNumeric() && v.NumericVal == math.Trunc(v.NumericVal)
	case schema.FieldString:
		return v.Type == dataset.ValueTypeString
	case schema.FieldDatetime:
		return v.Type == dataset.ValueTypeTimestamp
	default:
		return true
	}
}
