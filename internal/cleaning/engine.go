// Package cleaning turns a mapped table into a cleaned one: exact duplicates are
// dropped, mapped fields are coerced to their declared types, gaps are imputed,
// out-of-range values are clipped and every row gets a quality flag.
//
// Data problems never fail a run. They are counted in CleaningStats and scored
// downstream; only a mapping that points at a missing column is an error.
package cleaning

import (
	"context"
	"fmt"
	"log"

	"climateprep/adapters/coercer"
	"climateprep/domain/core"
	"climateprep/domain/dataset"
	"climateprep/domain/quality"
	"climateprep/domain/schema"
)

// Row quality labels
const (
	FlagLow    = "low"
	FlagMedium = "medium"
	FlagHigh   = "high"
)

// Config holds the cleaning constants
type Config struct {
	KNeighbors      int     // donors averaged by KNN imputation
	UnknownSentinel string  // fill for string fields with no observed value
	LowQualityRatio float64 // missing ratio above which a row is "low"
	MedQualityRatio float64 // missing ratio above which a row is "medium"
	FlagColumn      string
	DeriveTotals    bool // add derivable relationship totals
}

// DefaultConfig returns the standard cleaning constants
func DefaultConfig() Config {
	return Config{
		KNeighbors:      5,
		UnknownSentinel: "Unknown",
		LowQualityRatio: 0.3,
		MedQualityRatio: 0.1,
		FlagColumn:      "quality_flag",
		DeriveTotals:    true,
	}
}

// Engine runs the cleaning steps in a fixed order
type Engine struct {
	config  Config
	coercer *coercer.TypeCoercer
}

// NewEngine creates a cleaning engine
func NewEngine(config Config, c *coercer.TypeCoercer) *Engine {
	if c == nil {
		c = coercer.NewTypeCoercer(coercer.DefaultCoercionConfig())
	}
	return &Engine{config: config, coercer: c}
}

// Result is the output of one cleaning run
type Result struct {
	// Table is the cleaned table
	Table *dataset.Table `json:"-"`
	// Coerced is the deduplicated, type-coerced table before imputation
	Coerced *dataset.Table `json:"-"`

	RowsBeforeDedup int                   `json:"rows_before_dedup"`
	RowsAfterDedup  int                   `json:"rows_after_dedup"`
	Stats           quality.CleaningStats `json:"stats"`
	RowFlags        []string              `json:"-"`
	FlagColumn      string                `json:"flag_column"`
	Derived         []string              `json:"derived,omitempty"`
}

// Clean applies dedup, coercion, imputation, clipping and flagging in that
// order. Steps that change the table shape append to txLog.
func (e *Engine) Clean(ctx context.Context, tbl *dataset.Table, s schema.DomainSchema, mapping schema.ColumnMapping, txLog *quality.TransformationLog) (*Result, error) {
	if err := CheckMapping(tbl, mapping); err != nil {
		return nil, err
	}
	if txLog == nil {
		txLog = quality.NewTransformationLog()
	}

	res := &Result{Stats: quality.NewCleaningStats(), RowsBeforeDedup: tbl.NumRows()}

	// 1. duplicates
	deduped, removed := Deduplicate(tbl)
	res.RowsAfterDedup = deduped.NumRows()
	res.Stats.DuplicateRows = removed
	if removed > 0 {
		txLog.Append(quality.TransformationRecord{
			Stage:         quality.StageDeduplicate,
			RowsBefore:    tbl.NumRows(),
			RowsAfter:     deduped.NumRows(),
			ColumnsBefore: tbl.NumColumns(),
			ColumnsAfter:  deduped.NumColumns(),
			Detail:        fmt.Sprintf("removed %d exact duplicate rows", removed),
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. coercion
	coerced := e.coerce(deduped, s, mapping, &res.Stats)
	res.Coerced = coerced
	countOutOfRange(coerced, s, mapping, &res.Stats)
	nullsBefore := make([]int, coerced.NumRows())
	for i, row := range coerced.Rows {
		nullsBefore[i] = dataset.RowNullCount(row)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 3. imputation
	imputed := e.impute(coerced, s, mapping, &res.Stats)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 4. clipping
	clipped := clip(imputed, s, mapping, &res.Stats)

	// 5. row quality flag
	flagged, flags, column, err := e.flagRows(clipped, nullsBefore)
	if err != nil {
		return nil, err
	}
	res.RowFlags = flags
	res.FlagColumn = column
	txLog.Append(quality.TransformationRecord{
		Stage:         quality.StageQualityFlag,
		RowsBefore:    clipped.NumRows(),
		RowsAfter:     flagged.NumRows(),
		ColumnsBefore: clipped.NumColumns(),
		ColumnsAfter:  flagged.NumColumns(),
		Detail:        "added " + column,
	})

	// derived totals
	out := flagged
	if e.config.DeriveTotals {
		for _, rel := range s.Relationships {
			next, ok := deriveTotal(out, rel, mapping)
			if !ok {
				continue
			}
			txLog.Append(quality.TransformationRecord{
				Stage:         quality.StageDerive,
				RowsBefore:    out.NumRows(),
				RowsAfter:     next.NumRows(),
				ColumnsBefore: out.NumColumns(),
				ColumnsAfter:  next.NumColumns(),
				Detail:        "added " + rel.Total,
			})
			res.Derived = append(res.Derived, rel.Total)
			out = next
		}
	}

	res.Table = out
	log.Printf("[Cleaning] %d -> %d rows, %d duplicates, %d coercion errors, %d imputed, %d clipped",
		res.RowsBeforeDedup, out.NumRows(), removed, sum(res.Stats.CoercionErrors), sum(res.Stats.Imputed), sum(res.Stats.Clipped))
	return res, nil
}

// CheckMapping fails when a mapped source column is absent from the table
func CheckMapping(tbl *dataset.Table, mapping schema.ColumnMapping) error {
	for _, field := range mapping.MappedFields() {
		column := mapping.Fields[field]
		if !tbl.HasColumn(column) {
			return fmt.Errorf("cleaning: %w", core.NewSchemaError(field, column))
		}
	}
	return nil
}

// Deduplicate keeps the first occurrence of every exactly-equal row
func Deduplicate(tbl *dataset.Table) (*dataset.Table, int) {
	seen := make(map[string]bool, tbl.NumRows())
	keep := make([]int, 0, tbl.NumRows())
	for i, row := range tbl.Rows {
		key := dataset.RowKey(row)
		if seen[key] {
			continue
		}
		seen[key] = true
		keep = append(keep, i)
	}
	return tbl.SelectRows(keep), tbl.NumRows() - len(keep)
}

func (e *Engine) coerce(tbl *dataset.Table, s schema.DomainSchema, mapping schema.ColumnMapping, stats *quality.CleaningStats) *dataset.Table {
	out := tbl.Clone()
	for _, field := range mapping.MappedFields() {
		ft, ok := s.TypeOf(field)
		if !ok {
			continue
		}
		column := mapping.Fields[field]
		j, _ := out.ColumnIndex(column)
		for i := range out.Rows {
			v, ok := e.coercer.Coerce(out.Rows[i][j], ft)
			if !ok {
				stats.CoercionErrors[column]++
			}
			out.Rows[i][j] = v
		}
	}
	return out
}

func countOutOfRange(tbl *dataset.Table, s schema.DomainSchema, mapping schema.ColumnMapping, stats *quality.CleaningStats) {
	for _, field := range mapping.MappedFields() {
		rule, ok := s.RuleFor(field)
		if !ok {
			continue
		}
		column := mapping.Fields[field]
		for _, v := range tbl.Column(column) {
			if v.IsNumeric() && !rule.Contains(v.NumericVal) {
				stats.OutOfRange[column]++
			}
		}
	}
}

func clip(tbl *dataset.Table, s schema.DomainSchema, mapping schema.ColumnMapping, stats *quality.CleaningStats) *dataset.Table {
	out := tbl.Clone()
	for _, field := range mapping.MappedFields() {
		rule, ok := s.RuleFor(field)
		if !ok {
			continue
		}
		column := mapping.Fields[field]
		j, _ := out.ColumnIndex(column)
		for i := range out.Rows {
			v := out.Rows[i][j]
			if !v.IsNumeric() || rule.Contains(v.NumericVal) {
				continue
			}
			out.Rows[i][j] = dataset.NewNumericValue(rule.Clip(v.NumericVal))
			stats.Clipped[column]++
		}
	}
	return out
}

// FlagFor labels a row by its share of missing cells
func (e *Engine) FlagFor(missingRatio float64) string {
	switch {
	case missingRatio > e.config.LowQualityRatio:
		return FlagLow
	case missingRatio > e.config.MedQualityRatio:
		return FlagMedium
	default:
		return FlagHigh
	}
}

func (e *Engine) flagRows(tbl *dataset.Table, nullsBefore []int) (*dataset.Table, []string, string, error) {
	ncols := tbl.NumColumns()
	flags := make([]string, tbl.NumRows())
	values := make([]dataset.Value, tbl.NumRows())
	for i := range tbl.Rows {
		ratio := 0.0
		if ncols > 0 {
			ratio = float64(nullsBefore[i]) / float64(ncols)
		}
		flags[i] = e.FlagFor(ratio)
		values[i] = dataset.NewStringValue(flags[i])
	}

	column := e.config.FlagColumn
	for n := 1; tbl.HasColumn(column); n++ {
		column = fmt.Sprintf("%s_%d", e.config.FlagColumn, n)
	}
	out, err := tbl.WithColumn(column, values)
	if err != nil {
		return nil, nil, "", err
	}
	return out, flags, column, nil
}

// deriveTotal appends rel.Total as the row sum of its parts when the total is
// not mapped, every part is, and no column already carries the name.
func deriveTotal(tbl *dataset.Table, rel schema.Relationship, mapping schema.ColumnMapping) (*dataset.Table, bool) {
	if !rel.Derive || mapping.IsMapped(rel.Total) || !mapping.AllMapped(rel.Parts...) || tbl.HasColumn(rel.Total) {
		return nil, false
	}
	values := make([]dataset.Value, tbl.NumRows())
	for i := range tbl.Rows {
		total, complete := 0.0, true
		for _, part := range rel.Parts {
			v := tbl.Get(i, mapping.Fields[part])
			if !v.IsNumeric() {
				complete = false
				break
			}
			total += v.NumericVal
		}
		if complete {
			values[i] = dataset.NewNumericValue(total)
		} else {
			values[i] = dataset.NewMissingValue()
		}
	}
	out, err := tbl.WithColumn(rel.Total, values)
	if err != nil {
		return nil, false
	}
	return out, true
}

func sum(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
