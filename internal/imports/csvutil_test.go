package imports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"Gross Amount":       "gross_amount",
		" gross-amount ":     "gross_amount",
		"Gross  Amount:":     "gross_amount",
		"\uFEFFEntry Date":   "entry_date",
		"Crédit":             "credit",
		"ACCOUNT_CODE":       "account_code",
		"Amount (USD)":       "amount_usd",
		"__reference__":      "reference",
		"":                   "",
		"   ":                "",
		"Invoice #":          "invoice",
		"12.5% VAT":          "12_5_vat",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeHeader(in), "input %q", in)
	}
}

func TestParseAmount(t *testing.T) {
	assert.Equal(t, "1234.56", ParseAmount("1,234.56").StringFixed(2))
	assert.Equal(t, "-500.00", ParseAmount(" -500 ").StringFixed(2))
	assert.True(t, ParseAmount("").IsZero())
	assert.True(t, ParseAmount("-").IsZero())
	assert.True(t, ParseAmount("n/a").IsZero())
	assert.Equal(t, "0.99", ParseAmount(".99").StringFixed(2))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-04-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("15-Apr-26")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("3-Jan-2026")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("04/15/2026")
	assert.ErrorIs(t, err, ErrInvalidDate)

	// Blank dates default to today at UTC midnight.
	d, err = ParseDate("  ")
	require.NoError(t, err)
	now := time.Now().UTC()
	assert.Equal(t, now.Year(), d.Year())
	assert.Equal(t, now.YearDay(), d.YearDay())
	assert.Zero(t, d.Hour())
}

func TestRowMap(t *testing.T) {
	cols := []string{"entry_date", "account_code", "debit"}

	row, ok := rowMap(cols, []string{"2026-04-01", "1000"})
	require.True(t, ok)
	assert.Equal(t, "", row["debit"])

	_, ok = rowMap(cols, []string{"2026-04-01", "1000", "5", "extra"})
	assert.False(t, ok)
}

func TestDetectHeaderGeneric(t *testing.T) {
	rows := [][]string{
		{"Journal Export", ""},
		{"Period: April 2026", ""},
		{"Entry Date", "Reference", "Account Code", "Debit", "Credit"},
		{"2026-04-01", "JE-1", "1000", "100", ""},
	}
	idx, cols, format := detectHeader(rows)
	assert.Equal(t, 2, idx)
	assert.Equal(t, FormatGeneric, format)
	assert.Equal(t, []string{"entry_date", "reference", "account_code", "debit", "credit"}, cols)
}

func TestDetectHeaderSalesRegister(t *testing.T) {
	rows := [][]string{
		{"Date", "Invoice Number", "Client", "Gross Amount", "Output Tax"},
	}
	idx, _, format := detectHeader(rows)
	assert.Equal(t, 0, idx)
	assert.Equal(t, FormatSales, format)
}

func TestDetectHeaderPurchaseRegister(t *testing.T) {
	rows := [][]string{
		{"Date", "Invoice Number", "Supplier", "Gross Amount", "Input Tax"},
	}
	_, _, format := detectHeader(rows)
	assert.Equal(t, FormatPurchase, format)

	rows = [][]string{
		{"Date", "Gross Amount", "Account Title", "Non-VAT"},
	}
	_, _, format = detectHeader(rows)
	assert.Equal(t, FormatPurchase, format)
}

func TestDetectHeaderFallback(t *testing.T) {
	rows := [][]string{
		{"colA", "colB"},
		{"1", "2"},
	}
	idx, cols, format := detectHeader(rows)
	assert.Equal(t, 0, idx)
	assert.Equal(t, FormatGeneric, format)
	assert.Equal(t, []string{"cola", "colb"}, cols)
}
