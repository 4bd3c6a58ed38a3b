// Package dataset fetches and parses the per-city sensor files.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/city-sensor-pipeline/internal/domain"
)

// sniffLines is how many leading lines the delimiter detector inspects.
const sniffLines = 10

// delimiters are the candidates in priority order.
var delimiters = []rune{',', ';', '\t', '|', ' '}

// Table is a parsed delimited text file.
type Table struct {
	Headers   []string
	Rows      []domain.RawRow
	Delimiter rune
}

// Sample returns up to n leading rows for column inference.
func (t Table) Sample(n int) []domain.RawRow {
	if n >= len(t.Rows) {
		return t.Rows
	}
	return t.Rows[:n]
}

// Parse reads a delimited table whose first line holds the headers.
// Headers and cells are trimmed and a UTF-8 byte order mark is dropped.
// Text without any data row fails with domain.ErrParse.
func Parse(text string) (Table, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	if strings.TrimSpace(text) == "" {
		return Table{}, fmt.Errorf("%w: empty input", domain.ErrParse)
	}

	delim := SniffDelimiter(text)
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return Table{}, fmt.Errorf("%w: read header: %w", domain.ErrParse, err)
	}
	headers := normalizeHeaders(header)

	t := Table{Headers: headers, Delimiter: delim}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("%w: %w", domain.ErrParse, err)
		}
		if blank(record) {
			continue
		}
		row := make(domain.RawRow, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}

	if len(t.Rows) == 0 {
		return Table{}, fmt.Errorf("%w: no data rows", domain.ErrParse)
	}
	return t, nil
}

// SniffDelimiter picks the first candidate that splits every inspected line
// into the same number of fields, more than one. Failing that, it picks the
// candidate that splits the header line into the most fields.
func SniffDelimiter(text string) rune {
	lines := leadingLines(text, sniffLines)
	if len(lines) == 0 {
		return ','
	}

	best, bestFields := ',', 1
	for _, d := range delimiters {
		counts := make([]int, len(lines))
		for i, line := range lines {
			counts[i] = fieldCount(line, d)
		}
		if counts[0] > 1 && allEqual(counts) {
			return d
		}
		if counts[0] > bestFields {
			best, bestFields = d, counts[0]
		}
	}
	return best
}

func fieldCount(line string, d rune) int {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = d
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	record, err := r.Read()
	if err != nil {
		return 0
	}
	return len(record)
}

func leadingLines(text string, n int) []string {
	var out []string
	for line := range strings.Lines(text) {
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
		if len(out) == n {
			break
		}
	}
	return out
}

func normalizeHeaders(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = domain.PlaceholderHeader(i + 1)
		}
		if n := seen[h]; n > 0 {
			seen[h] = n + 1
			h = fmt.Sprintf("%s_%d", h, n+1)
		} else {
			seen[h] = 1
		}
		out[i] = h
	}
	return out
}

func allEqual(counts []int) bool {
	for _, c := range counts[1:] {
		if c != counts[0] {
			return false
		}
	}
	return true
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
