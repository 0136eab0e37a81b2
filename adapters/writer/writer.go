// Package writer exports cleaned tables in the formats the reader accepts.
package writer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"climateprep/domain/core"
	"climateprep/domain/dataset"

	"github.com/apache/arrow/go/v16/arrow"
	"github.com/apache/arrow/go/v16/arrow/array"
	"github.com/apache/arrow/go/v16/arrow/memory"
	"github.com/apache/arrow/go/v16/parquet"
	"github.com/apache/arrow/go/v16/parquet/pqarrow"
	"github.com/xuri/excelize/v2"
)

// Format is an export format, named by its file extension
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatXLSX    Format = "xlsx"
	FormatParquet Format = "parquet"
)

const sheetName = "cleaned"

// FormatFor picks the export format from a filename's extension
func FormatFor(filename string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	switch f := Format(ext); f {
	case FormatCSV, FormatJSON, FormatXLSX, FormatParquet:
		return f, nil
	}
	return "", core.NewUnsupportedFormatError(ext)
}

// Write encodes the table to w. Missing cells are empty in CSV and XLSX and
// null in JSON and Parquet.
func Write(w io.Writer, tbl *dataset.Table, format Format) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, tbl)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tbl)
	case FormatXLSX:
		return writeXLSX(w, tbl)
	case FormatParquet:
		return writeParquet(w, tbl)
	}
	return core.NewUnsupportedFormatError(string(format))
}

func writeCSV(w io.Writer, tbl *dataset.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tbl.Columns); err != nil {
		return err
	}
	record := make([]string, tbl.NumColumns())
	for _, row := range tbl.Rows {
		for j, v := range row {
			record[j] = v.String()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, tbl *dataset.Table) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	header := make([]interface{}, len(tbl.Columns))
	for j, c := range tbl.Columns {
		header[j] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}
	for i, row := range tbl.Rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}

func cellValue(v dataset.Value) interface{} {
	switch v.Type {
	case dataset.ValueTypeNumeric:
		return v.NumericVal
	case dataset.ValueTypeBoolean:
		return v.BooleanVal
	case dataset.ValueTypeString, dataset.ValueTypeTimestamp:
		return v.String()
	}
	return nil
}

// columnType picks the arrow type for a column: float64 when every present
// value is numeric, boolean when every present value is boolean, else string
func columnType(values []dataset.Value) arrow.DataType {
	numeric, boolean, present := true, true, false
	for _, v := range values {
		if v.IsMissing() {
			continue
		}
		present = true
		numeric = numeric && v.Type == dataset.ValueTypeNumeric
		boolean = boolean && v.Type == dataset.ValueTypeBoolean
	}
	switch {
	case present && numeric:
		return arrow.PrimitiveTypes.Float64
	case present && boolean:
		return arrow.FixedWidthTypes.Boolean
	}
	return arrow.BinaryTypes.String
}

func writeParquet(w io.Writer, tbl *dataset.Table) error {
	fields := make([]arrow.Field, len(tbl.Columns))
	for j, c := range tbl.Columns {
		fields[j] = arrow.Field{Name: c, Type: columnType(tbl.Column(c)), Nullable: true}
	}
	sc := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, sc)
	defer b.Release()
	for j, c := range tbl.Columns {
		for _, v := range tbl.Column(c) {
			switch fb := b.Field(j).(type) {
			case *array.Float64Builder:
				if v.IsMissing() {
					fb.AppendNull()
				} else {
					fb.Append(v.NumericVal)
				}
			case *array.BooleanBuilder:
				if v.IsMissing() {
					fb.AppendNull()
				} else {
					fb.Append(v.BooleanVal)
				}
			case *array.StringBuilder:
				if v.IsMissing() {
					fb.AppendNull()
				} else {
					fb.Append(v.String())
				}
			default:
				return fmt.Errorf("writer: unexpected builder %T for column %s", fb, c)
			}
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	at := array.NewTableFromRecords(sc, []arrow.Record{rec})
	defer at.Release()
	return pqarrow.WriteTable(at, w, 64*1024, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
}
