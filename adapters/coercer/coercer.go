package coercer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"climateprep/domain/dataset"
	"climateprep/domain/schema"
)

var (
	thousandsPattern = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
)

// TypeCoercer converts raw cells into the declared type of a schema field
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the coercion rules
type CoercionConfig struct {
	NumericThreshold   float64  `json:"numeric_threshold"`   // share of values that must parse as numbers
	TimestampThreshold float64  `json:"timestamp_threshold"` // share of values that must parse as timestamps
	IntegerTolerance   float64  `json:"integer_tolerance"`   // max distance from a whole number for integer fields
	NormalizeStrings   bool     `json:"normalize_strings"`   // trim and collapse whitespace
	LowercaseStrings   bool     `json:"lowercase_strings"`
	TimestampLayouts   []string `json:"timestamp_layouts"`
	AllowUnixSeconds   bool     `json:"allow_unix_seconds"`
}

// DefaultCoercionConfig returns sensible defaults
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		NumericThreshold:   0.8,
		TimestampThreshold: 0.8,
		IntegerTolerance:   1e-9,
		NormalizeStrings:   true,
		TimestampLayouts: []string{
			time.RFC3339,
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
			"2006-01-02 15:04",
			"2006-01-02",
			"01/02/2006 15:04",
			"01/02/2006",
			"2006/01/02",
			"02-Jan-2006",
		},
		AllowUnixSeconds: true,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	return &TypeCoercer{config: config}
}

// Coerce converts v to the field type. Missing input stays missing and counts as
// success; ok is false only when a present value could not be converted, in
// which case the returned value is missing.
func (c *TypeCoercer) Coerce(v dataset.Value, t schema.FieldType) (dataset.Value, bool) {
	if v.IsMissing() {
		return dataset.NewMissingValue(), true
	}

	var (
		out dataset.Value
		ok  bool
	)
	switch t {
	case schema.FieldNumeric:
		out, ok = c.toNumeric(v)
	case schema.FieldInteger:
		out, ok = c.toInteger(v)
	case schema.FieldDatetime:
		out, ok = c.toTimestamp(v)
	case schema.FieldString:
		out = c.toString(v)
		ok = true
	default:
		return v, true
	}
	if !ok {
		return dataset.NewMissingValue(), false
	}
	return out, true
}

func (c *TypeCoercer) toNumeric(v dataset.Value) (dataset.Value, bool) {
	switch v.Type {
	case dataset.ValueTypeNumeric:
		return v, true
	case dataset.ValueTypeString:
		if f, ok := c.ParseNumeric(v.StringVal); ok {
			return dataset.NewNumericValue(f), true
		}
	}
	return dataset.Value{}, false
}

func (c *TypeCoercer) toInteger(v dataset.Value) (dataset.Value, bool) {
	n, ok := c.toNumeric(v)
	if !ok {
		return dataset.Value{}, false
	}
	rounded := math.Round(n.NumericVal)
	if math.Abs(n.NumericVal-rounded) > c.config.IntegerTolerance {
		return dataset.Value{}, false
	}
	return dataset.NewNumericValue(rounded), true
}

func (c *TypeCoercer) toTimestamp(v dataset.Value) (dataset.Value, bool) {
	switch v.Type {
	case dataset.ValueTypeTimestamp:
		return v, true
	case dataset.ValueTypeString:
		if t, ok := c.ParseTimestamp(v.StringVal); ok {
			return dataset.NewTimestampValue(t), true
		}
	case dataset.ValueTypeNumeric:
		if c.config.AllowUnixSeconds && isUnixSeconds(v.NumericVal) {
			return dataset.NewTimestampValue(time.Unix(int64(v.NumericVal), 0)), true
		}
	}
	return dataset.Value{}, false
}

func (c *TypeCoercer) toString(v dataset.Value) dataset.Value {
	s := v.String()
	if c.config.NormalizeStrings {
		s = c.normalizeString(s)
	}
	return dataset.NewStringValue(s)
}

// ParseNumeric parses a number written with thousands separators, currency
// symbols, percent signs, parentheses for negatives or a decimal comma.
func (c *TypeCoercer) ParseNumeric(strVal string) (float64, bool) {
	cleanVal := strings.TrimSpace(strVal)
	if cleanVal == "" {
		return 0, false
	}

	// (123) -> -123
	isNegative := false
	if strings.HasPrefix(cleanVal, "(") && strings.HasSuffix(cleanVal, ")") {
		cleanVal = strings.TrimSuffix(strings.TrimPrefix(cleanVal, "("), ")")
		isNegative = true
	}

	for _, symbol := range []string{"$", "€", "£", "¥", "USD", "EUR", "GBP", "JPY", "%"} {
		cleanVal = strings.ReplaceAll(cleanVal, symbol, "")
	}
	cleanVal = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u2009', '\u202f', '\'':
			return -1
		}
		return r
	}, cleanVal)

	lastComma := strings.LastIndex(cleanVal, ",")
	lastPeriod := strings.LastIndex(cleanVal, ".")
	switch {
	case lastComma >= 0 && lastPeriod >= 0:
		// Whichever separator comes last is the decimal mark
		if lastComma > lastPeriod {
			cleanVal = strings.ReplaceAll(cleanVal, ".", "")
			cleanVal = strings.Replace(cleanVal, ",", ".", 1)
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
		}
	case lastComma >= 0:
		if thousandsPattern.MatchString(cleanVal) {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
		} else if strings.Count(cleanVal, ",") == 1 {
			cleanVal = strings.Replace(cleanVal, ",", ".", 1)
		}
	}

	if isNegative {
		cleanVal = "-" + cleanVal
	}

	val, err := strconv.ParseFloat(cleanVal, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return 0, false
	}
	return val, true
}

// ParseTimestamp tries the configured layouts and, optionally, unix seconds
func (c *TypeCoercer) ParseTimestamp(strVal string) (time.Time, bool) {
	strVal = strings.TrimSpace(strVal)
	if strVal == "" {
		return time.Time{}, false
	}
	for _, layout := range c.config.TimestampLayouts {
		if t, err := time.Parse(layout, strVal); err == nil {
			return t, true
		}
	}
	if c.config.AllowUnixSeconds {
		if unixVal, err := strconv.ParseInt(strVal, 10, 64); err == nil && isUnixSeconds(float64(unixVal)) {
			return time.Unix(unixVal, 0), true
		}
	}
	return time.Time{}, false
}

// isUnixSeconds limits unix parsing to a plausible range so years like 2023 stay numbers
func isUnixSeconds(x float64) bool {
	return x >= 1e8 && x < 2147483647 && x == math.Trunc(x)
}

// normalizeString applies deterministic string normalization
func (c *TypeCoercer) normalizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' || r == 127 {
			return -1
		}
		return r
	}, s)
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	if c.config.LowercaseStrings {
		s = strings.ToLower(s)
	}
	return s
}

// TypeAnalysis contains the results of type distribution analysis
type TypeAnalysis struct {
	TotalCount      int              `json:"total_count"`
	ValidCount      int              `json:"valid_count"`
	NumericCount    int              `json:"numeric_count"`
	TimestampCount  int              `json:"timestamp_count"`
	NumericRatio    float64          `json:"numeric_ratio"`
	TimestampRatio  float64          `json:"timestamp_ratio"`
	RecommendedType schema.FieldType `json:"recommended_type"`
}

// AnalyzeTypeDistribution infers the most plausible field type for a column of raw values
func (c *TypeCoercer) AnalyzeTypeDistribution(values []dataset.Value) TypeAnalysis {
	analysis := TypeAnalysis{TotalCount: len(values)}

	for _, v := range values {
		if v.IsMissing() {
			continue
		}
		analysis.ValidCount++
		if _, ok := c.toNumeric(v); ok {
			analysis.NumericCount++
		}
		if _, ok := c.toTimestamp(v); ok {
			analysis.TimestampCount++
		}
	}

	analysis.RecommendedType = schema.FieldString
	if analysis.ValidCount == 0 {
		return analysis
	}
	analysis.NumericRatio = float64(analysis.NumericCount) / float64(analysis.ValidCount)
	analysis.TimestampRatio = float64(analysis.TimestampCount) / float64(analysis.ValidCount)

	switch {
	case analysis.NumericRatio >= c.config.NumericThreshold:
		analysis.RecommendedType = schema.FieldNumeric
	case analysis.TimestampRatio >= c.config.TimestampThreshold:
		analysis.RecommendedType = schema.FieldDatetime
	}
	return analysis
}
