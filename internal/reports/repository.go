package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository runs the aggregation queries behind the reports.
type Repository interface {
	TrialBalancePage(ctx context.Context, orgID int64, asOf time.Time, sort, dir string, limit, offset int) ([]TrialBalanceRow, error)
	TrialBalanceTotals(ctx context.Context, orgID int64, asOf time.Time) (TrialBalanceTotals, int, error)
	AccountActivity(ctx context.Context, orgID, accountID int64, from, to time.Time) ([]ActivityRow, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// aggCTE sums debits and credits per account over posted entries up to the
// as-of date. Accounts with no posted activity do not appear: the report is
// about movements, not the full chart.
const aggCTE = `WITH agg AS (
	SELECT jl.account_id,
	       SUM(jl.debit)  AS total_debit,
	       SUM(jl.credit) AS total_credit
	FROM journal_lines jl
	JOIN journal_entries je ON je.id = jl.journal_entry_id
	WHERE jl.organization_id = $1
	  AND je.is_posted
	  AND je.entry_date <= $2
	GROUP BY jl.account_id
)`

// tbSortColumns whitelists the ORDER BY targets. Keys were validated by
// the service; the map keeps column names out of string concatenation
// reach of caller input.
var tbSortColumns = map[string]string{
	"code":   "a.code",
	"name":   "a.name",
	"debit":  "GREATEST(agg.total_debit - agg.total_credit, 0)",
	"credit": "GREATEST(agg.total_credit - agg.total_debit, 0)",
}

func (r *repository) TrialBalancePage(ctx context.Context, orgID int64, asOf time.Time, sort, dir string, limit, offset int) ([]TrialBalanceRow, error) {
	orderBy, ok := tbSortColumns[sort]
	if !ok {
		orderBy = tbSortColumns["code"]
	}
	direction := "ASC"
	if dir == "desc" {
		direction = "DESC"
	}
	query := aggCTE + `
SELECT a.id, a.code, a.name, a.type,
       GREATEST(agg.total_debit - agg.total_credit, 0)  AS debit,
       GREATEST(agg.total_credit - agg.total_debit, 0) AS credit
FROM accounts a
JOIN agg ON agg.account_id = a.id
WHERE a.organization_id = $1
ORDER BY ` + orderBy + ` ` + direction + `, a.code ASC
LIMIT $3 OFFSET $4`

	rows, err := r.db.Query(ctx, query, orgID, asOf, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TrialBalanceRow
	for rows.Next() {
		var row TrialBalanceRow
		if err := rows.Scan(&row.AccountID, &row.Code, &row.Name, &row.Type, &row.Debit, &row.Credit); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) TrialBalanceTotals(ctx context.Context, orgID int64, asOf time.Time) (TrialBalanceTotals, int, error) {
	query := aggCTE + `
SELECT COALESCE(ROUND(SUM(GREATEST(agg.total_debit - agg.total_credit, 0)), 2), 0),
       COALESCE(ROUND(SUM(GREATEST(agg.total_credit - agg.total_debit, 0)), 2), 0),
       COUNT(*)
FROM accounts a
JOIN agg ON agg.account_id = a.id
WHERE a.organization_id = $1`

	var totals TrialBalanceTotals
	var count int
	if err := r.db.QueryRow(ctx, query, orgID, asOf).Scan(&totals.TotalDebit, &totals.TotalCredit, &count); err != nil {
		return TrialBalanceTotals{}, 0, err
	}
	return totals, count, nil
}

// AccountActivity lists an account's posted lines in ledger order with a
// running balance (debits positive).
func (r *repository) AccountActivity(ctx context.Context, orgID, accountID int64, from, to time.Time) ([]ActivityRow, error) {
	rows, err := r.db.Query(ctx, `SELECT je.id, je.entry_date, je.reference, jl.description, jl.debit, jl.credit
FROM journal_lines jl
JOIN journal_entries je ON je.id = jl.journal_entry_id
WHERE jl.organization_id = $1
  AND jl.account_id = $2
  AND je.is_posted
  AND je.entry_date >= $3
  AND je.entry_date <= $4
ORDER BY je.entry_date, je.id, jl.line_no`, orgID, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ActivityRow
	balance := decimal.Zero
	for rows.Next() {
		var row ActivityRow
		if err := rows.Scan(&row.EntryID, &row.EntryDate, &row.Reference, &row.Description, &row.Debit, &row.Credit); err != nil {
			return nil, err
		}
		balance = balance.Add(row.Debit).Sub(row.Credit)
		row.Balance = balance
		out = append(out, row)
	}
	return out, rows.Err()
}
