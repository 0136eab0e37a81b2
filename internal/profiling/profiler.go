// Package profiling summarizes the numeric columns of a table. Profiles are
// reported alongside the quality assessment and never change the data.
package profiling

import (
	"log"

	"climateprep/adapters/coercer"
	"climateprep/domain/dataset"
	"climateprep/domain/quality"
	"climateprep/domain/schema"
)

// DataProfiler builds column profiles for a table
type DataProfiler struct {
	analyzer *DistributionAnalyzer
	coercer  *coercer.TypeCoercer
}

// NewDataProfiler creates a new data profiler; a nil coercer means the default one
func NewDataProfiler(c *coercer.TypeCoercer) *DataProfiler {
	if c == nil {
		c = coercer.NewTypeCoercer(coercer.DefaultCoercionConfig())
	}
	return &DataProfiler{analyzer: NewDistributionAnalyzer(), coercer: c}
}

// ProfileTable profiles every numeric column in table order. A column counts
// as numeric when it already holds numeric values or when its raw values
// mostly parse as numbers.
func (dp *DataProfiler) ProfileTable(tbl *dataset.Table, mapping schema.ColumnMapping) []quality.ColumnProfile {
	fieldOf := make(map[string]string, mapping.Len())
	for _, field := range mapping.MappedFields() {
		fieldOf[mapping.Fields[field]] = field
	}

	profiles := []quality.ColumnProfile{}
	for _, column := range tbl.Columns {
		values, ok := dp.numericValues(tbl.Column(column))
		if !ok {
			continue
		}
		d, err := dp.analyzer.AnalyzeDistribution(values)
		if err != nil {
			log.Printf("[Profiling] skipping column %q: %v", column, err)
			continue
		}
		profiles = append(profiles, quality.ColumnProfile{
			Column:        column,
			Field:         fieldOf[column],
			Count:         d.Count,
			Missing:       tbl.NumRows() - d.Count,
			Mean:          d.Mean,
			StdDev:        d.StdDev,
			Min:           d.Min,
			Max:           d.Max,
			Median:        d.Median,
			Q1:            d.Q1,
			Q3:            d.Q3,
			Outliers:      d.Outliers,
			Skewness:      d.Skewness,
			Kurtosis:      d.Kurtosis,
			NormalityP:    d.NormalityP,
			LooksNormal:   d.LooksNormal,
			ProfileStatus: d.Status,
		})
	}
	return profiles
}

// numericValues extracts the numbers of a column, or reports false when the
// column is not numeric
func (dp *DataProfiler) numericValues(column []dataset.Value) ([]float64, bool) {
	analysis := dp.coercer.AnalyzeTypeDistribution(column)
	if analysis.ValidCount == 0 || analysis.RecommendedType != schema.FieldNumeric {
		return nil, false
	}
	out := make([]float64, 0, analysis.NumericCount)
	for _, v := range column {
		if n, ok := dp.coercer.Coerce(v, schema.FieldNumeric); ok && n.IsNumeric() {
			out = append(out, n.NumericVal)
		}
	}
	return out, len(out) > 0
}
