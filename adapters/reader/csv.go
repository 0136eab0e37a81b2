package reader

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode/utf8"

	"climateprep/domain/dataset"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
)

const charsetUTF8 = "utf-8"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV decodes delimited text, trying each candidate delimiter under the
// detected encoding and falling back to UTF-8 with comma.
func (r *DataReader) readCSV(ctx context.Context, data []byte) (*dataset.Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	text, charset := r.decodeText(data)

	var (
		best     *dataset.Table
		attempts []Attempt
	)
	for _, delim := range r.config.Delimiters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tbl, err := parseDelimited(text, delim)
		if err != nil {
			attempts = append(attempts, Attempt{Strategy: strategyName(charset, delim), Error: err.Error()})
			continue
		}
		if best == nil || tbl.NumColumns() > best.NumColumns() {
			best = tbl
		}
	}
	if best != nil {
		return best, nil
	}

	// Last resort: raw bytes as UTF-8 with a comma
	if charset != charsetUTF8 || !containsRune(r.config.Delimiters, ',') {
		tbl, err := parseDelimited(string(data), ',')
		if err == nil {
			return tbl, nil
		}
		attempts = append(attempts, Attempt{Strategy: strategyName(charsetUTF8, ','), Error: err.Error()})
	}

	log.Printf("[DataReader] CSV parse failed after %d attempts", len(attempts))
	return nil, newParseError(FormatCSV, nil, attempts...)
}

// decodeText converts data to UTF-8. ASCII needs no detection; otherwise the
// detected charset is used when the detector is confident, or when the bytes
// are not valid UTF-8 and the best guess beats certain garbage.
func (r *DataReader) decodeText(data []byte) (string, string) {
	if isASCII(data) {
		return string(data), charsetUTF8
	}

	sample := data
	if r.config.EncodingSampleBytes > 0 && len(sample) > r.config.EncodingSampleBytes {
		sample = sample[:r.config.EncodingSampleBytes]
	}

	validUTF8 := utf8.Valid(data)
	result, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil || result == nil {
		return string(data), charsetUTF8
	}
	if result.Confidence <= r.config.EncodingConfidence && validUTF8 {
		return string(data), charsetUTF8
	}

	charset := strings.ToLower(result.Charset)
	if charset == charsetUTF8 {
		return string(data), charsetUTF8
	}
	// Valid multi-byte UTF-8 is a stronger signal than a single-byte guess
	if validUTF8 && !strings.HasPrefix(charset, "utf-16") && !strings.HasPrefix(charset, "utf-32") {
		return string(data), charsetUTF8
	}

	decoded, err := decodeCharset(charset, data)
	if err != nil {
		log.Printf("[DataReader] charset %s detected but not decodable, assuming UTF-8: %v", charset, err)
		return string(data), charsetUTF8
	}
	return decoded, charset
}

// decodeCharset converts bytes in the named charset to a UTF-8 string
func decodeCharset(charset string, data []byte) (string, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		enc, err = htmlindex.Get(strings.ReplaceAll(charset, "-", ""))
		if err != nil {
			return "", fmt.Errorf("unknown charset %q: %w", charset, err)
		}
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimPrefix(out, utf8BOM)), nil
}

// parseDelimited parses text with one delimiter. It fails on malformed quoting
// or when a data row is wider than the header.
func parseDelimited(text string, delim rune) (*dataset.Table, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = delim
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no header row")
		}
		return nil, err
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(header), len(rec))
		}
		records = append(records, rec)
	}
	return tableFromRecords(header, records)
}

func strategyName(charset string, delim rune) string {
	name := string(delim)
	if delim == '\t' {
		name = `\t`
	}
	return fmt.Sprintf("encoding=%s delimiter='%s'", charset, name)
}

func containsRune(rs []rune, r rune) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
