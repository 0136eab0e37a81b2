package reader

import (
	"bytes"
	"context"
	"fmt"

	"climateprep/domain/dataset"

	"github.com/apache/arrow/go/v16/arrow"
	"github.com/apache/arrow/go/v16/arrow/array"
	"github.com/apache/arrow/go/v16/arrow/memory"
	"github.com/apache/arrow/go/v16/parquet/file"
	"github.com/apache/arrow/go/v16/parquet/pqarrow"
)

// readParquet reads the first row group through arrow
func readParquet(ctx context.Context, data []byte) (*dataset.Table, error) {
	pf, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, newParseError(FormatParquet, err)
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, newParseError(FormatParquet, err)
	}

	if pf.NumRowGroups() == 0 {
		sc, err := fr.Schema()
		if err != nil {
			return nil, newParseError(FormatParquet, err)
		}
		names := make([]string, sc.NumFields())
		for i, f := range sc.Fields() {
			names[i] = f.Name
		}
		return dataset.NewTable(normalizeHeader(names))
	}

	leaves := make([]int, pf.MetaData().Schema.NumColumns())
	for i := range leaves {
		leaves[i] = i
	}
	tbl, err := fr.ReadRowGroups(ctx, leaves, []int{0})
	if err != nil {
		return nil, newParseError(FormatParquet, err, Attempt{Strategy: "row_group=0", Error: err.Error()})
	}
	defer tbl.Release()

	return arrowToTable(tbl)
}

func arrowToTable(tbl arrow.Table) (*dataset.Table, error) {
	ncols := int(tbl.NumCols())
	nrows := int(tbl.NumRows())

	names := make([]string, ncols)
	columns := make([][]dataset.Value, ncols)
	for c := 0; c < ncols; c++ {
		col := tbl.Column(c)
		names[c] = col.Name()
		values := make([]dataset.Value, 0, nrows)
		for _, chunk := range col.Data().Chunks() {
			for i := 0; i < chunk.Len(); i++ {
				values = append(values, arrowValue(chunk, i))
			}
		}
		if len(values) != nrows {
			return nil, newParseError(FormatParquet, fmt.Errorf("column %s has %d values, expected %d", names[c], len(values), nrows))
		}
		columns[c] = values
	}

	out, err := dataset.NewTable(normalizeHeader(names))
	if err != nil {
		return nil, err
	}
	for r := 0; r < nrows; r++ {
		row := make([]dataset.Value, ncols)
		for c := 0; c < ncols; c++ {
			row[c] = columns[c][r]
		}
		if err := out.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func arrowValue(arr arrow.Array, i int) dataset.Value {
	if arr.IsNull(i) {
		return dataset.NewMissingValue()
	}
	switch a := arr.(type) {
	case *array.Float64:
		return dataset.NewNumericValue(a.Value(i))
	case *array.Float32:
		return dataset.NewNumericValue(float64(a.Value(i)))
	case *array.Int64:
		return dataset.NewNumericValue(float64(a.Value(i)))
	case *array.Int32:
		return dataset.NewNumericValue(float64(a.Value(i)))
	case *array.Int16:
		return dataset.NewNumericValue(float64(a.Value(i)))
	case *array.Int8:
		return dataset.NewNumericValue(float64(a.Value(i)))
	case *array.Uint64:
		return dataset.NewNumericValue(float64(a.Value(i)))
	case *array.Uint32:
		return dataset.NewNumericValue(float64(a.Value(i)))
	case *array.Uint16:
		return dataset.NewNumericValue(float64(a.Value(i)))
	case *array.Uint8:
		return dataset.NewNumericValue(float64(a.Value(i)))
	case *array.Boolean:
		return dataset.NewBooleanValue(a.Value(i))
	case *array.String:
		return dataset.NewStringValue(a.Value(i))
	case *array.LargeString:
		return dataset.NewStringValue(a.Value(i))
	case *array.Timestamp:
		if tt, ok := a.DataType().(*arrow.TimestampType); ok {
			if toTime, err := tt.GetToTimeFunc(); err == nil {
				return dataset.NewTimestampValue(toTime(a.Value(i)))
			}
		}
	}
	return dataset.NewStringValue(arr.ValueStr(i))
}
