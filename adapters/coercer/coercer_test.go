package coercer

import (
	"testing"
	"time"

	"climateprep/domain/dataset"
	"climateprep/domain/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumeric(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())

	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"45000", 45000, true},
		{" 45,000 ", 45000, true},
		{"1,234,567.89", 1234567.89, true},
		{"1.234,56", 1234.56, true},
		{"12,5", 12.5, true},
		{"(123)", -123, true},
		{"$1,000", 1000, true},
		{"€ 99", 99, true},
		{"45%", 45, true},
		{"1 234,5", 1234.5, true},
		{"1e3", 1000, true},
		{"-500", -500, true},
		{"n/a", 0, false},
		{"", 0, false},
		{"1,2,3", 0, false},
	}

	for _, tt := range tests {
		got, ok := c.ParseNumeric(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		if tt.ok {
			assert.InDelta(t, tt.expected, got, 1e-9, "input %q", tt.input)
		}
	}
}

func TestCoerceNumeric(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())

	v, ok := c.Coerce(dataset.NewStringValue("35,000"), schema.FieldNumeric)
	require.True(t, ok)
	assert.Equal(t, 35000.0, v.NumericVal)

	v, ok = c.Coerce(dataset.NewNumericValue(1.5), schema.FieldNumeric)
	require.True(t, ok)
	assert.Equal(t, 1.5, v.NumericVal)

	v, ok = c.Coerce(dataset.NewStringValue("lots"), schema.FieldNumeric)
	assert.False(t, ok)
	assert.True(t, v.IsMissing())

	v, ok = c.Coerce(dataset.NewBooleanValue(true), schema.FieldNumeric)
	assert.False(t, ok)
	assert.True(t, v.IsMissing())
}

func TestCoerceMissingIsNotAFailure(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())
	for _, ft := range []schema.FieldType{schema.FieldNumeric, schema.FieldInteger, schema.FieldString, schema.FieldDatetime} {
		v, ok := c.Coerce(dataset.NewMissingValue(), ft)
		assert.True(t, ok)
		assert.True(t, v.IsMissing())
	}
}

func TestCoerceInteger(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())

	v, ok := c.Coerce(dataset.NewStringValue("2023"), schema.FieldInteger)
	require.True(t, ok)
	assert.Equal(t, 2023.0, v.NumericVal)

	v, ok = c.Coerce(dataset.NewStringValue("2023.0"), schema.FieldInteger)
	require.True(t, ok)
	assert.Equal(t, 2023.0, v.NumericVal)

	_, ok = c.Coerce(dataset.NewStringValue("2023.5"), schema.FieldInteger)
	assert.False(t, ok)
}

func TestCoerceString(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())

	v, ok := c.Coerce(dataset.NewStringValue("  Acme   Corp\t"), schema.FieldString)
	require.True(t, ok)
	assert.Equal(t, "Acme Corp", v.StringVal)

	v, ok = c.Coerce(dataset.NewNumericValue(42), schema.FieldString)
	require.True(t, ok)
	assert.Equal(t, "42", v.StringVal)

	lower := DefaultCoercionConfig()
	lower.LowercaseStrings = true
	v, _ = NewTypeCoercer(lower).Coerce(dataset.NewStringValue("Berlin"), schema.FieldString)
	assert.Equal(t, "berlin", v.StringVal)
}

func TestCoerceDatetime(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())

	v, ok := c.Coerce(dataset.NewStringValue("2023-06-01 12:30:00"), schema.FieldDatetime)
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, 6, 1, 12, 30, 0, 0, time.UTC), v.TimestampVal)

	v, ok = c.Coerce(dataset.NewNumericValue(1700000000), schema.FieldDatetime)
	require.True(t, ok)
	assert.Equal(t, int64(1700000000), v.TimestampVal.Unix())

	_, ok = c.Coerce(dataset.NewNumericValue(2023), schema.FieldDatetime)
	assert.False(t, ok)

	_, ok = c.Coerce(dataset.NewStringValue("yesterday"), schema.FieldDatetime)
	assert.False(t, ok)
}

func TestAnalyzeTypeDistribution(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())

	numeric := []dataset.Value{
		dataset.NewStringValue("1"), dataset.NewStringValue("2,5"), dataset.NewStringValue("3"),
		dataset.NewStringValue("4"), dataset.NewMissingValue(),
	}
	a := c.AnalyzeTypeDistribution(numeric)
	assert.Equal(t, schema.FieldNumeric, a.RecommendedType)
	assert.Equal(t, 4, a.ValidCount)

	dates := []dataset.Value{dataset.NewStringValue("2023-01-01"), dataset.NewStringValue("2023-01-02")}
	assert.Equal(t, schema.FieldDatetime, c.AnalyzeTypeDistribution(dates).RecommendedType)

	text := []dataset.Value{dataset.NewStringValue("a"), dataset.NewStringValue("b")}
	assert.Equal(t, schema.FieldString, c.AnalyzeTypeDistribution(text).RecommendedType)

	assert.Equal(t, schema.FieldString, c.AnalyzeTypeDistribution(nil).RecommendedType)
}
