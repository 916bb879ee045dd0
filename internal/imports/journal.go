package imports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openbooks-app/openbooks/internal/accounts"
	"github.com/openbooks-app/openbooks/internal/ledger"
)

// importGeneric turns a generic journal CSV into entries. Rows are grouped
// by (entry_date, reference) in file order; each group becomes one entry
// with its rows as lines. Unknown account codes and unbalanced groups abort
// the whole file.
func (s *Service) importGeneric(ctx context.Context, orgID int64, cols []string, dataRows [][]string, batchID string) (int, error) {
	type group struct {
		key  string
		rows []map[string]string
	}
	var groups []*group
	index := make(map[string]*group)
	for _, record := range dataRows {
		row, ok := rowMap(cols, record)
		if !ok {
			continue
		}
		key := row["entry_date"] + "|" + row["reference"]
		g, seen := index[key]
		if !seen {
			g = &group{key: key}
			index[key] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, row)
	}

	created := 0
	err := s.ledger.WithTx(ctx, func(ctx context.Context, tx ledger.TxRepository) error {
		for _, g := range groups {
			first := g.rows[0]
			entryDate, err := ParseDate(first["entry_date"])
			if err != nil {
				return err
			}

			lines := make([]ledger.LineInput, 0, len(g.rows))
			for _, row := range g.rows {
				code := strings.TrimSpace(row["account_code"])
				acc, err := tx.AccountByCode(ctx, orgID, code)
				if err != nil {
					if errors.Is(err, accounts.ErrNotFound) {
						return fmt.Errorf("%w: code %s", ErrAccountNotFound, code)
					}
					return err
				}
				lines = append(lines, ledger.LineInput{
					AccountID:   acc.ID,
					Debit:       ParseAmount(row["debit"]),
					Credit:      ParseAmount(row["credit"]),
					Description: row["description"],
					Meta:        ledger.Metadata{"row": rawRow(row)},
				})
			}

			if _, err := ledger.PostEntryTx(ctx, tx, orgID, ledger.PostingInput{
				Date:        entryDate,
				Reference:   first["reference"],
				Source:      ledger.SourceManual,
				Description: first["description"],
				Meta:        ledger.Metadata{"format": string(FormatGeneric), "group_key": g.key, "import_batch": batchID},
				Lines:       lines,
			}); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
