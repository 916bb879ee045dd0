package imports

// Format identifies which importer a file is routed to.
type Format string

const (
	FormatGeneric  Format = "generic"
	FormatSales    Format = "sales"
	FormatPurchase Format = "purchase"
)

// detectHeader scans the file for the true header row, skipping report
// titles and other preamble. A row is the generic journal header when it
// carries entry_date and account_code; it is a register header when it
// carries date plus gross_amount or invoice_number. When nothing matches,
// the first row is assumed to be the header and the file is treated as
// generic.
func detectHeader(rows [][]string) (headerIdx int, cols []string, format Format) {
	for idx, row := range rows {
		normalized := normalizeRow(row)
		if contains(normalized, "entry_date") && contains(normalized, "account_code") {
			return idx, normalized, FormatGeneric
		}
		if contains(normalized, "date") && (contains(normalized, "gross_amount") || contains(normalized, "invoice_number")) {
			return idx, normalized, registerFormat(normalized)
		}
	}
	if len(rows) == 0 {
		return 0, nil, FormatGeneric
	}
	return 0, normalizeRow(rows[0]), FormatGeneric
}

// registerFormat tells a purchases register from a sales register by its
// distinguishing columns. Sales is the default for ambiguous headers.
func registerFormat(cols []string) Format {
	for _, marker := range []string{"input_tax", "supplier", "account_title", "non_vat"} {
		if contains(cols, marker) {
			return FormatPurchase
		}
	}
	return FormatSales
}

func normalizeRow(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = NormalizeHeader(c)
	}
	return out
}

func contains(cols []string, want string) bool {
	for _, c := range cols {
		if c == want {
			return true
		}
	}
	return false
}
