package reader

import (
	"fmt"
	"strings"

	"climateprep/domain/dataset"
)

// normalizeHeader trims names, names blank headers by position and suffixes duplicates
func normalizeHeader(raw []string) []string {
	out := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	dups := make(map[string]int)
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for used[name] {
			dups[base]++
			name = fmt.Sprintf("%s.%d", base, dups[base])
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// tableFromRecords builds a table from a header and string records; cells are
// trimmed, empty cells become missing and short records are padded.
func tableFromRecords(header []string, records [][]string) (*dataset.Table, error) {
	tbl, err := dataset.NewTable(normalizeHeader(header))
	if err != nil {
		return nil, err
	}
	width := len(header)
	for _, rec := range records {
		row := make([]dataset.Value, width)
		for j := 0; j < width; j++ {
			if j < len(rec) {
				row[j] = dataset.NewStringValue(strings.TrimSpace(rec[j]))
			} else {
				row[j] = dataset.NewMissingValue()
			}
		}
		if err := tbl.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// orderedRows collects rows keyed by column while remembering first-seen column order
type orderedRows struct {
	columns []string
	index   map[string]int
	rows    []map[string]dataset.Value
}

func newOrderedRows() *orderedRows {
	return &orderedRows{index: make(map[string]int)}
}

func (o *orderedRows) newRow() map[string]dataset.Value {
	row := make(map[string]dataset.Value)
	o.rows = append(o.rows, row)
	return row
}

func (o *orderedRows) set(row map[string]dataset.Value, column string, v dataset.Value) {
	if _, ok := o.index[column]; !ok {
		o.index[column] = len(o.columns)
		o.columns = append(o.columns, column)
	}
	row[column] = v
}

func (o *orderedRows) table() (*dataset.Table, error) {
	tbl, err := dataset.NewTable(o.columns)
	if err != nil {
		return nil, err
	}
	for _, r := range o.rows {
		row := make([]dataset.Value, len(o.columns))
		for j, c := range o.columns {
			if v, ok := r[c]; ok {
				row[j] = v
			} else {
				row[j] = dataset.NewMissingValue()
			}
		}
		if err := tbl.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}
