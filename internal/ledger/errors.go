package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownAccount indicates a line referencing an account that does
	// not exist in the entry's organization.
	ErrUnknownAccount = errors.New("ledger: unknown account")
	// ErrTooFewLines indicates a manual entry with fewer than two legs.
	ErrTooFewLines = errors.New("ledger: entry requires at least two lines")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrNegativeAmount indicates a line with a negative debit or credit.
	ErrNegativeAmount = errors.New("ledger: line amounts must not be negative")
)

// UnbalancedError reports a debit/credit mismatch, carrying both sums for
// diagnostics. Reference names the offending entry when known.
type UnbalancedError struct {
	Reference string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

func (e *UnbalancedError) Error() string {
	if e.Reference != "" {
		return fmt.Sprintf("ledger: entry not balanced for %s (debit=%s credit=%s)", e.Reference, e.Debit.StringFixed(2), e.Credit.StringFixed(2))
	}
	return fmt.Sprintf("ledger: entry not balanced (debit=%s credit=%s)", e.Debit.StringFixed(2), e.Credit.StringFixed(2))
}

// IsUnbalanced reports whether err is an UnbalancedError.
func IsUnbalanced(err error) bool {
	var ub *UnbalancedError
	return errors.As(err, &ub)
}
