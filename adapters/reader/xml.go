package reader

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"climateprep/domain/dataset"

	"golang.org/x/text/encoding/htmlindex"
)

// readXML treats each child of the root as a row and each grandchild as a
// column. Anything nested deeper contributes its text to the grandchild.
func readXML(_ context.Context, data []byte) (*dataset.Table, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(label)
		if err != nil {
			return nil, err
		}
		return enc.NewDecoder().Reader(input), nil
	}

	rows := newOrderedRows()
	var (
		depth    int
		sawRoot  bool
		row      map[string]dataset.Value
		column   string
		fragment []string
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, newParseError(FormatXML, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 1:
				if sawRoot {
					return nil, newParseError(FormatXML, errors.New("multiple root elements"))
				}
				sawRoot = true
			case 2:
				row = rows.newRow()
			case 3:
				column = t.Name.Local
				fragment = fragment[:0]
			}
		case xml.EndElement:
			if depth == 3 {
				rows.set(row, column, dataset.NewStringValue(strings.Join(fragment, " ")))
			}
			depth--
		case xml.CharData:
			if depth >= 3 {
				if text := strings.TrimSpace(string(t)); text != "" {
					fragment = append(fragment, text)
				}
			}
		}
	}

	if !sawRoot {
		return nil, newParseError(FormatXML, errors.New("no root element"))
	}
	return rows.table()
}
