package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openbooks-app/openbooks/internal/accounts"
)

// TrialBalanceRow presents one account's net position. Net presentation
// means an account never shows a debit and a credit balance at once:
// debit = max(totalDebit-totalCredit, 0), credit = max(totalCredit-totalDebit, 0).
type TrialBalanceRow struct {
	AccountID int64                `json:"account_id"`
	Code      string               `json:"code"`
	Name      string               `json:"name"`
	Type      accounts.AccountType `json:"type"`
	Debit     decimal.Decimal      `json:"debit"`
	Credit    decimal.Decimal      `json:"credit"`
}

// TrialBalanceTotals sums the net debit and net credit columns over all
// accounts. They are equal for a correctly balanced ledger.
type TrialBalanceTotals struct {
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
}

// TrialBalance is one page of the report plus grand totals.
type TrialBalance struct {
	AsOf        string             `json:"as_of"`
	Rows        []TrialBalanceRow  `json:"rows"`
	Totals      TrialBalanceTotals `json:"totals"`
	CurrentPage int                `json:"current_page"`
	PerPage     int                `json:"per_page"`
	LastPage    int                `json:"last_page"`
	Total       int                `json:"total"`
}

// TrialBalanceQuery carries the report parameters after defaulting.
type TrialBalanceQuery struct {
	AsOf    time.Time
	Page    int
	PerPage int
	Sort    string
	Dir     string
}

// ActivityRow is one journal line in an account's activity report with the
// running balance after that line.
type ActivityRow struct {
	EntryID     int64           `json:"entry_id"`
	EntryDate   time.Time       `json:"entry_date"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}
