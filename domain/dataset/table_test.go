package dataset

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableRejectsDuplicateColumns(t *testing.T) {
	_, err := NewTable([]string{"a", "b", "a"})
	assert.Error(t, err)
}

func TestAppendRowChecksWidth(t *testing.T) {
	tbl, err := NewTable([]string{"a", "b"})
	require.NoError(t, err)

	assert.Error(t, tbl.AppendRow([]Value{NewStringValue("x")}))
	assert.NoError(t, tbl.AppendRow([]Value{NewStringValue("x"), NewMissingValue()}))
	assert.Equal(t, 1, tbl.NumRows())
}

func TestTableAccessors(t *testing.T) {
	tbl, err := NewTableFromStrings([]string{"a", "b"}, [][]string{{"1", ""}, {"2", "y"}})
	require.NoError(t, err)

	assert.Equal(t, "2", tbl.Get(1, "a").String())
	assert.True(t, tbl.Get(0, "b").IsMissing())
	assert.True(t, tbl.Get(0, "nope").IsMissing())
	assert.Equal(t, 4, tbl.CellCount())
	assert.Equal(t, 1, tbl.NullCount())

	m := tbl.RowMap(1)
	assert.Equal(t, "y", m["b"].StringVal)
	assert.Len(t, tbl.Column("a"), 2)
	assert.Nil(t, tbl.Column("missing"))
}

func TestCloneAndWithColumnDoNotShareRows(t *testing.T) {
	tbl, err := NewTableFromStrings([]string{"a"}, [][]string{{"1"}, {"2"}})
	require.NoError(t, err)

	clone := tbl.Clone()
	clone.Rows[0][0] = NewStringValue("changed")
	assert.Equal(t, "1", tbl.Rows[0][0].StringVal)

	wider, err := tbl.WithColumn("b", []Value{NewNumericValue(1), NewNumericValue(2)})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, wider.Columns)
	assert.Equal(t, 1, tbl.NumColumns())
	assert.True(t, wider.HasColumn("b"))

	_, err = tbl.WithColumn("a", []Value{NewMissingValue(), NewMissingValue()})
	assert.Error(t, err)
	_, err = tbl.WithColumn("c", []Value{NewMissingValue()})
	assert.Error(t, err)
}

func TestRowKeyDistinguishesTypes(t *testing.T) {
	a := []Value{NewStringValue("1"), NewMissingValue()}
	b := []Value{NewNumericValue(1), NewMissingValue()}
	c := []Value{NewStringValue("1"), NewMissingValue()}

	assert.NotEqual(t, RowKey(a), RowKey(b))
	assert.Equal(t, RowKey(a), RowKey(c))
	assert.NotEqual(t, RowKey([]Value{NewStringValue("a|b")}), RowKey([]Value{NewStringValue("a"), NewStringValue("b")}))
}

func TestRowKeyTreatsSignedZeroAsEqual(t *testing.T) {
	negZero := NewNumericValue(math.Copysign(0, -1))
	require.True(t, math.Signbit(negZero.NumericVal))

	assert.Equal(t, NewNumericValue(0).Key(), negZero.Key())
	assert.Equal(t, RowKey([]Value{NewStringValue("x"), NewNumericValue(0)}), RowKey([]Value{NewStringValue("x"), negZero}))
}

func TestTableMarshalJSONKeepsColumnOrder(t *testing.T) {
	tbl, err := NewTable([]string{"z", "a", "when"})
	require.NoError(t, err)
	ts := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, tbl.AppendRow([]Value{NewNumericValue(2023), NewMissingValue(), NewTimestampValue(ts)}))

	out, err := json.Marshal(tbl)
	require.NoError(t, err)
	assert.Equal(t, `[{"z":2023,"a":null,"when":"2023-01-02T03:04:05Z"}]`, string(out))
}

func TestValueConstructors(t *testing.T) {
	assert.True(t, NewStringValue("").IsMissing())
	assert.True(t, Value{}.IsMissing())
	assert.True(t, NewNumericValue(nan()).IsMissing())
	assert.Equal(t, "45000", NewNumericValue(45000).String())
	assert.Equal(t, "true", NewBooleanValue(true).String())
	assert.Equal(t, 2.5, NewNumericValue(2.5).AsFloat64())
	assert.Equal(t, 0.0, NewStringValue("x").AsFloat64())
}

func TestValueUnmarshalJSON(t *testing.T) {
	var vals []Value
	require.NoError(t, json.Unmarshal([]byte(`[1.5, "x", null, true]`), &vals))
	require.Len(t, vals, 4)
	assert.Equal(t, ValueTypeNumeric, vals[0].Type)
	assert.Equal(t, ValueTypeString, vals[1].Type)
	assert.True(t, vals[2].IsMissing())
	assert.Equal(t, ValueTypeBoolean, vals[3].Type)
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
