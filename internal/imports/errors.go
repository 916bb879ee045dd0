package imports

import "errors"

var (
	// ErrMissingMapping means the organization settings (after request
	// overrides) do not name the accounts a format requires. Nothing is
	// processed.
	ErrMissingMapping = errors.New("imports: missing required account mapping")

	// ErrAccountNotFound aborts the whole file when a row names an account
	// code that does not exist in the organization.
	ErrAccountNotFound = errors.New("imports: account not found")

	// ErrMalformedRow aborts a register import when a data row carries more
	// cells than the header. The generic journal format skips such rows
	// instead.
	ErrMalformedRow = errors.New("imports: row wider than header")

	// ErrInvalidDate aborts the whole file when a row's date matches none of
	// the accepted formats.
	ErrInvalidDate = errors.New("imports: unparseable date")

	// ErrTooManyRows rejects files above the configured row limit before any
	// processing.
	ErrTooManyRows = errors.New("imports: file exceeds row limit")

	// ErrEmptyFile rejects files with no header row.
	ErrEmptyFile = errors.New("imports: empty file")
)
