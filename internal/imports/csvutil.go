package imports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold strips diacritics so accented header text normalizes to the
// same key as its plain-ASCII spelling.
var asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeader canonicalizes one header cell: BOM and diacritics
// stripped, lower-cased, every run of non-alphanumerics collapsed to a
// single underscore, leading and trailing underscores trimmed.
// "Gross Amount", " gross-amount " and "Gross  Amount:" all yield
// "gross_amount".
func NormalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	if folded, _, err := transform.String(asciiFold, s); err == nil {
		s = folded
	}
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// ParseAmount reads a locale-formatted number: comma thousands separators
// are stripped, surrounding whitespace ignored. Unparseable values count as
// zero rather than failing the row, matching how spreadsheet exports leave
// blanks and dashes in amount columns.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || s == "-" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var dayMonthYearLayouts = []string{"02-Jan-06", "2-Jan-06", "02-Jan-2006", "2-Jan-2006"}

// ParseDate accepts ISO YYYY-MM-DD or a DD-Mon-YY spreadsheet format. An
// empty value defaults to today. Anything else is ErrInvalidDate and the
// caller is expected to abort the file.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	for _, layout := range dayMonthYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// readRows drains the CSV stream. Records may have ragged widths; the
// per-row width check happens later, against the detected header.
func readRows(r io.Reader, maxRows int) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("imports: read csv: %w", err)
		}
		rows = append(rows, record)
		if maxRows > 0 && len(rows) > maxRows {
			return nil, fmt.Errorf("%w: more than %d rows", ErrTooManyRows, maxRows)
		}
	}
	return rows, nil
}

// rowMap zips a data row against the normalized header columns. Short rows
// are padded with empty cells; rows wider than the header are malformed and
// reported as not ok. The generic importer skips those, the register
// importers abort the file.
func rowMap(cols []string, row []string) (map[string]string, bool) {
	if len(row) > len(cols) {
		return nil, false
	}
	out := make(map[string]string, len(cols))
	for i, col := range cols {
		if col == "" {
			continue
		}
		if i < len(row) {
			out[col] = row[i]
		} else {
			out[col] = ""
		}
	}
	return out, true
}

// cell returns the first non-blank value among the candidate columns,
// trimmed. Used for the row-level account override columns, which accept a
// few spellings each.
func cell(row map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// rawRow converts a zipped row to the metadata shape stored on entries.
func rawRow(row map[string]string) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
