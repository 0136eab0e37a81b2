package cleaning

import (
	"math"
	"sort"

	"climateprep/domain/dataset"
	"climateprep/domain/quality"
	"climateprep/domain/schema"

	"github.com/montanaflynn/stats"
	gstat "gonum.org/v1/gonum/stat"
)

// impute fills missing cells of mapped fields. Numeric fields use KNN over the
// other numeric columns of the table; string and datetime fields use the mode.
// All donors and features are read from the input table so the result does
// not depend on column order.
func (e *Engine) impute(tbl *dataset.Table, s schema.DomainSchema, mapping schema.ColumnMapping, st *quality.CleaningStats) *dataset.Table {
	out := tbl.Clone()
	features := standardize(e.numericColumns(tbl, s, mapping))

	for _, field := range mapping.MappedFields() {
		ft, ok := s.TypeOf(field)
		if !ok {
			continue
		}
		column := mapping.Fields[field]
		j, _ := tbl.ColumnIndex(column)

		var filled int
		switch {
		case ft.IsNumeric():
			filled = e.imputeNumeric(tbl, out, j, ft == schema.FieldInteger, features)
		case ft == schema.FieldString:
			filled = imputeMode(tbl, out, j, dataset.NewStringValue(e.config.UnknownSentinel))
		default:
			filled = imputeMode(tbl, out, j, dataset.NewMissingValue())
		}
		if filled > 0 {
			st.Imputed[column] += filled
		}
	}
	return out
}

// feature is one standardized numeric column; missing cells are NaN
type feature struct {
	column int
	z      []float64
}

// numericColumn holds one column's numbers with NaN for missing or
// unparseable cells
type numericColumn struct {
	index  int
	values []float64
}

// numericColumns collects the KNN inputs: every mapped numeric field, already
// coerced, plus each unmapped column whose raw values mostly parse as numbers.
// Unmapped columns are read through the coercer and never modified.
func (e *Engine) numericColumns(tbl *dataset.Table, s schema.DomainSchema, mapping schema.ColumnMapping) []numericColumn {
	mapped := make(map[string]bool, mapping.Len())
	for _, field := range mapping.MappedFields() {
		mapped[mapping.Fields[field]] = true
	}

	var out []numericColumn
	for j, column := range tbl.Columns {
		values := make([]float64, tbl.NumRows())
		if mapped[column] {
			field := mappedField(mapping, column)
			if ft, ok := s.TypeOf(field); !ok || !ft.IsNumeric() {
				continue
			}
			for i, row := range tbl.Rows {
				values[i] = math.NaN()
				if row[j].IsNumeric() {
					values[i] = row[j].NumericVal
				}
			}
		} else {
			cells := tbl.Column(column)
			if e.coercer.AnalyzeTypeDistribution(cells).RecommendedType != schema.FieldNumeric {
				continue
			}
			for i, v := range cells {
				values[i] = math.NaN()
				if n, ok := e.coercer.Coerce(v, schema.FieldNumeric); ok && n.IsNumeric() {
					values[i] = n.NumericVal
				}
			}
		}
		out = append(out, numericColumn{index: j, values: values})
	}
	return out
}

func mappedField(mapping schema.ColumnMapping, column string) string {
	for _, field := range mapping.MappedFields() {
		if mapping.Fields[field] == column {
			return field
		}
	}
	return ""
}

func standardize(columns []numericColumn) []feature {
	out := make([]feature, 0, len(columns))
	for _, c := range columns {
		var present []float64
		for _, x := range c.values {
			if !math.IsNaN(x) {
				present = append(present, x)
			}
		}
		mean, std := 0.0, 1.0
		if len(present) > 0 {
			mean = gstat.Mean(present, nil)
		}
		if len(present) > 1 {
			if sd := gstat.StdDev(present, nil); sd > 0 && !math.IsNaN(sd) {
				std = sd
			}
		}
		z := make([]float64, len(c.values))
		for i, x := range c.values {
			z[i] = (x - mean) / std
		}
		out = append(out, feature{column: c.index, z: z})
	}
	return out
}

type donor struct {
	row  int
	dist float64
}

// imputeNumeric fills column j of out. With fewer than k observed values the
// column mean is used; with none the cells stay missing.
func (e *Engine) imputeNumeric(in, out *dataset.Table, j int, integer bool, features []feature) int {
	var (
		observed []int
		values   []float64
	)
	for i, row := range in.Rows {
		if row[j].IsNumeric() {
			observed = append(observed, i)
			values = append(values, row[j].NumericVal)
		}
	}
	if len(observed) == 0 || len(observed) == in.NumRows() {
		return 0
	}
	mean, _ := stats.Mean(values)

	others := make([]feature, 0, len(features))
	for _, f := range features {
		if f.column != j {
			others = append(others, f)
		}
	}

	filled := 0
	for i, row := range in.Rows {
		if row[j].IsNumeric() {
			continue
		}
		estimate := mean
		if len(observed) >= e.config.KNeighbors {
			if knn, ok := e.nearestMean(in, i, j, observed, others); ok {
				estimate = knn
			}
		}
		if integer {
			estimate = math.Round(estimate)
		}
		out.Rows[i][j] = dataset.NewNumericValue(estimate)
		filled++
	}
	return filled
}

// nearestMean averages column j over the k donors closest to row i, using
// nan-euclidean distance over the features both rows have.
func (e *Engine) nearestMean(in *dataset.Table, i, j int, observed []int, features []feature) (float64, bool) {
	if len(features) == 0 {
		return 0, false
	}
	donors := make([]donor, 0, len(observed))
	for _, d := range observed {
		if dist, ok := nanEuclidean(features, i, d); ok {
			donors = append(donors, donor{row: d, dist: dist})
		}
	}
	if len(donors) == 0 {
		return 0, false
	}
	sort.SliceStable(donors, func(a, b int) bool {
		if donors[a].dist != donors[b].dist {
			return donors[a].dist < donors[b].dist
		}
		return donors[a].row < donors[b].row
	})
	if len(donors) > e.config.KNeighbors {
		donors = donors[:e.config.KNeighbors]
	}
	vals := make([]float64, len(donors))
	for n, d := range donors {
		vals[n] = in.Rows[d.row][j].NumericVal
	}
	m, err := stats.Mean(vals)
	if err != nil {
		return 0, false
	}
	return m, true
}

// nanEuclidean scales the distance over shared coordinates up to the full feature count
func nanEuclidean(features []feature, a, b int) (float64, bool) {
	sumSq, shared := 0.0, 0
	for _, f := range features {
		x, y := f.z[a], f.z[b]
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		sumSq += (x - y) * (x - y)
		shared++
	}
	if shared == 0 {
		return 0, false
	}
	return math.Sqrt(sumSq * float64(len(features)) / float64(shared)), true
}

// imputeMode fills missing cells with the most frequent value, first seen on
// ties, or with fallback when the column has no values at all.
func imputeMode(in, out *dataset.Table, j int, fallback dataset.Value) int {
	counts := make(map[string]int)
	var (
		order   []dataset.Value
		missing int
	)
	for _, row := range in.Rows {
		v := row[j]
		if v.IsMissing() {
			missing++
			continue
		}
		k := v.Key()
		if counts[k] == 0 {
			order = append(order, v)
		}
		counts[k]++
	}
	if missing == 0 {
		return 0
	}

	fill, bestCount := fallback, 0
	for _, v := range order {
		if c := counts[v.Key()]; c > bestCount {
			fill, bestCount = v, c
		}
	}
	if fill.IsMissing() {
		return 0
	}
	for i, row := range in.Rows {
		if row[j].IsMissing() {
			out.Rows[i][j] = fill
		}
	}
	return missing
}
