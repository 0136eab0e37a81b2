package writer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"climateprep/adapters/reader"
	"climateprep/domain/core"
	"climateprep/domain/dataset"

	"github.com/apache/arrow/go/v16/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *dataset.Table {
	t.Helper()
	tbl, err := dataset.NewTable([]string{"site", "co2"})
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow([]dataset.Value{dataset.NewStringValue("north"), dataset.NewNumericValue(1.5)}))
	require.NoError(t, tbl.AppendRow([]dataset.Value{dataset.NewStringValue("south"), dataset.NewMissingValue()}))
	return tbl
}

func TestFormatFor(t *testing.T) {
	f, err := FormatFor("out/Cleaned.XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = FormatFor("cleaned.txt")
	assert.True(t, errors.Is(err, core.ErrUnsupportedFormat))
}

// Every export format must be readable by the upload reader
func TestWriteReadsBack(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatJSON, FormatXLSX, FormatParquet} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, sampleTable(t), format))

			out, err := reader.NewDataReader(reader.DefaultConfig()).Read(context.Background(), buf.Bytes(), "cleaned."+string(format))
			require.NoError(t, err)
			assert.Equal(t, []string{"site", "co2"}, out.Columns)
			require.Equal(t, 2, out.NumRows())
			assert.Equal(t, "north", out.Get(0, "site").String())
			assert.Equal(t, "1.5", out.Get(0, "co2").String())
			assert.True(t, out.Get(1, "co2").IsMissing())
		})
	}
}

func TestWriteCSVText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleTable(t), FormatCSV))
	assert.Equal(t, "site,co2\nnorth,1.5\nsouth,\n", buf.String())
}

func TestColumnType(t *testing.T) {
	tests := []struct {
		name   string
		values []dataset.Value
		want   arrow.DataType
	}{
		{"numeric", []dataset.Value{dataset.NewNumericValue(1), dataset.NewMissingValue()}, arrow.PrimitiveTypes.Float64},
		{"boolean", []dataset.Value{dataset.NewBooleanValue(true)}, arrow.FixedWidthTypes.Boolean},
		{"mixed", []dataset.Value{dataset.NewNumericValue(1), dataset.NewStringValue("x")}, arrow.BinaryTypes.String},
		{"all missing", []dataset.Value{dataset.NewMissingValue()}, arrow.BinaryTypes.String},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, columnType(tt.values))
		})
	}
}

func TestWriteUnsupported(t *testing.T) {
	err := Write(&bytes.Buffer{}, sampleTable(t), Format("txt"))
	assert.True(t, errors.Is(err, core.ErrUnsupportedFormat))
}
