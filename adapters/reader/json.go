package reader

import (
	"context"
	"errors"
	"fmt"

	"climateprep/domain/dataset"

	"github.com/tidwall/gjson"
)

// readJSON accepts an array of objects, an object whose "data" key holds such
// an array, or a single object. Nested objects flatten to parent.child columns.
func readJSON(_ context.Context, data []byte) (*dataset.Table, error) {
	if !gjson.ValidBytes(data) {
		return nil, newParseError(FormatJSON, errors.New("malformed JSON"))
	}

	root := gjson.ParseBytes(data)
	var items []gjson.Result
	switch {
	case root.IsArray():
		items = root.Array()
	case root.IsObject():
		if inner := root.Get("data"); inner.IsArray() {
			items = inner.Array()
		} else {
			items = []gjson.Result{root}
		}
	default:
		return nil, newParseError(FormatJSON, fmt.Errorf("unsupported top-level JSON %s", root.Type))
	}

	rows := newOrderedRows()
	for i, item := range items {
		if !item.IsObject() {
			return nil, newParseError(FormatJSON, fmt.Errorf("element %d is %s, expected an object", i, kindOf(item)))
		}
		row := rows.newRow()
		flattenJSON("", item, rows, row)
	}
	return rows.table()
}

func flattenJSON(prefix string, obj gjson.Result, rows *orderedRows, row map[string]dataset.Value) {
	obj.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if prefix != "" {
			name = prefix + "." + name
		}
		if value.IsObject() {
			if len(value.Map()) == 0 {
				rows.set(row, name, dataset.NewMissingValue())
			} else {
				flattenJSON(name, value, rows, row)
			}
			return true
		}
		rows.set(row, name, jsonValue(value))
		return true
	})
}

func jsonValue(v gjson.Result) dataset.Value {
	switch v.Type {
	case gjson.Null:
		return dataset.NewMissingValue()
	case gjson.True:
		return dataset.NewBooleanValue(true)
	case gjson.False:
		return dataset.NewBooleanValue(false)
	case gjson.Number:
		return dataset.NewNumericValue(v.Num)
	case gjson.String:
		return dataset.NewStringValue(v.Str)
	default:
		// arrays keep their JSON text
		return dataset.NewStringValue(v.Raw)
	}
}

func kindOf(v gjson.Result) string {
	switch {
	case v.IsArray():
		return "an array"
	case v.Type == gjson.Null:
		return "null"
	default:
		return v.Type.String()
	}
}
