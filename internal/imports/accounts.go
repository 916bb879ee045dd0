package imports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openbooks-app/openbooks/internal/accounts"
	"github.com/openbooks-app/openbooks/internal/ledger"
	"github.com/openbooks-app/openbooks/internal/shared"
)

// AccountsResult reports an accounts import run.
type AccountsResult struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}

// ImportAccountsCSV upserts chart-of-accounts rows keyed by (org, code).
// The first row is the header. Rows missing code, name or type are skipped
// without error; an unknown account type fails the file. The whole file
// commits in one transaction.
func (s *Service) ImportAccountsCSV(ctx context.Context, orgID int64, r io.Reader) (AccountsResult, error) {
	rows, err := readRows(r, s.maxRows)
	if err != nil {
		return AccountsResult{}, err
	}
	if len(rows) == 0 {
		return AccountsResult{}, ErrEmptyFile
	}
	cols := normalizeRow(rows[0])

	imported := 0
	err = s.ledger.WithTx(ctx, func(ctx context.Context, tx ledger.TxRepository) error {
		for _, record := range rows[1:] {
			row, ok := rowMap(cols, record)
			if !ok {
				continue
			}
			code := strings.TrimSpace(row["code"])
			name := strings.TrimSpace(row["name"])
			typ := accounts.AccountType(strings.TrimSpace(strings.ToLower(row["type"])))
			if code == "" || name == "" || typ == "" {
				continue
			}
			if !typ.Valid() {
				return fmt.Errorf("%w: unknown account type %q for code %s", shared.ErrValidation, typ, code)
			}

			var parentID *int64
			level := 1
			if parentCode := strings.TrimSpace(row["parent_code"]); parentCode != "" {
				parent, err := tx.AccountByCode(ctx, orgID, parentCode)
				switch {
				case err == nil:
					parentID = &parent.ID
					level = 2
				case errors.Is(err, accounts.ErrNotFound):
					// Unknown parent leaves the account at the root.
				default:
					return err
				}
			}
			if _, err := tx.UpsertAccount(ctx, accounts.Account{
				OrganizationID: orgID,
				Code:           code,
				Name:           name,
				Type:           typ,
				ParentID:       parentID,
				Level:          level,
				IsActive:       true,
			}); err != nil {
				return err
			}
			imported++
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("accounts import aborted", "org_id", orgID, "error", err)
		return AccountsResult{Errors: []string{err.Error()}}, nil
	}
	return AccountsResult{Imported: imported, Errors: []string{}}, nil
}
