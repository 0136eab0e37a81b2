package reader

import (
	"bytes"
	"context"

	"climateprep/domain/dataset"

	"github.com/xuri/excelize/v2"
)

// readXLSX reads the first sheet; its first row is the header
func readXLSX(_ context.Context, data []byte) (*dataset.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, newParseError(FormatXLSX, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return dataset.NewTable(nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, newParseError(FormatXLSX, err, Attempt{Strategy: "sheet=" + sheets[0], Error: err.Error()})
	}
	if len(rows) == 0 {
		return dataset.NewTable(nil)
	}

	// Cells beyond the header get positional names
	header := rows[0]
	for _, row := range rows[1:] {
		for len(header) < len(row) {
			header = append(header, "")
		}
	}
	return tableFromRecords(header, rows[1:])
}
