package dataset

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// ValueType defines the storage type for a cell
type ValueType string

const (
	ValueTypeString    ValueType = "string"
	ValueTypeNumeric   ValueType = "numeric"
	ValueTypeBoolean   ValueType = "boolean"
	ValueTypeTimestamp ValueType = "timestamp"
	ValueTypeMissing   ValueType = "missing"
)

// Value is a single table cell. The zero Value is missing.
type Value struct {
	Type         ValueType
	StringVal    string
	NumericVal   float64
	BooleanVal   bool
	TimestampVal time.Time
}

// NewStringValue creates a string value; empty strings are missing
func NewStringValue(s string) Value {
	if s == "" {
		return NewMissingValue()
	}
	return Value{Type: ValueTypeString, StringVal: s}
}

// NewNumericValue creates a numeric value; NaN is missing
func NewNumericValue(n float64) Value {
	if math.IsNaN(n) {
		return NewMissingValue()
	}
	return Value{Type: ValueTypeNumeric, NumericVal: n}
}

// NewBooleanValue creates a boolean value
func NewBooleanValue(b bool) Value {
	return Value{Type: ValueTypeBoolean, BooleanVal: b}
}

// NewTimestampValue creates a timestamp value normalized to UTC
func NewTimestampValue(t time.Time) Value {
	return Value{Type: ValueTypeTimestamp, TimestampVal: t.UTC()}
}

// NewMissingValue creates a missing value
func NewMissingValue() Value {
	return Value{Type: ValueTypeMissing}
}

// IsMissing reports whether the cell holds no value
func (v Value) IsMissing() bool {
	return v.Type == ValueTypeMissing || v.Type == ""
}

// IsNumeric returns true if the value holds a number
func (v Value) IsNumeric() bool {
	return v.Type == ValueTypeNumeric
}

// AsFloat64 returns the numeric value, or 0 if not numeric
func (v Value) AsFloat64() float64 {
	if v.Type == ValueTypeNumeric {
		return v.NumericVal
	}
	return 0
}

// String returns the textual form of the value; missing values render as ""
func (v Value) String() string {
	switch v.Type {
	case ValueTypeString:
		return v.StringVal
	case ValueTypeNumeric:
		return strconv.FormatFloat(v.NumericVal, 'f', -1, 64)
	case ValueTypeBoolean:
		return strconv.FormatBool(v.BooleanVal)
	case ValueTypeTimestamp:
		return v.TimestampVal.Format(time.RFC3339)
	}
	return ""
}

// Key returns a type-tagged encoding used for exact equality across rows
func (v Value) Key() string {
	switch v.Type {
	case ValueTypeString:
		return "s" + strconv.Itoa(len(v.StringVal)) + ":" + v.StringVal
	case ValueTypeNumeric:
		x := v.NumericVal
		if x == 0 {
			x = 0 // -0 and 0 are the same cell value
		}
		return "n" + strconv.FormatFloat(x, 'g', -1, 64)
	case ValueTypeBoolean:
		return "b" + strconv.FormatBool(v.BooleanVal)
	case ValueTypeTimestamp:
		return "t" + v.TimestampVal.Format(time.RFC3339Nano)
	}
	return "-"
}

// MarshalJSON renders the value as a plain JSON scalar
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case ValueTypeString:
		return json.Marshal(v.StringVal)
	case ValueTypeNumeric:
		if math.IsInf(v.NumericVal, 0) || math.IsNaN(v.NumericVal) {
			return []byte("null"), nil
		}
		return []byte(strconv.FormatFloat(v.NumericVal, 'f', -1, 64)), nil
	case ValueTypeBoolean:
		return json.Marshal(v.BooleanVal)
	case ValueTypeTimestamp:
		return json.Marshal(v.TimestampVal.Format(time.RFC3339))
	}
	return []byte("null"), nil
}

// UnmarshalJSON reads a plain JSON scalar. Strings stay strings; timestamps are
// not recovered since the JSON form does not carry the type.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = NewMissingValue()
	case string:
		*v = NewStringValue(x)
	case float64:
		*v = NewNumericValue(x)
	case bool:
		*v = NewBooleanValue(x)
	default:
		b, _ := json.Marshal(x)
		*v = NewStringValue(string(b))
	}
	return nil
}
