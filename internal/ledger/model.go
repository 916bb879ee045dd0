package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source tags where a journal entry originated.
type Source string

const (
	SourceManual         Source = "manual"
	SourceSales          Source = "sales"
	SourcePurchase       Source = "purchase"
	SourceOpeningBalance Source = "opening_balance"
	SourceSystem         Source = "system"
)

// Metadata is the opaque provenance bag carried by entries and lines. It is
// preserved verbatim (stored as JSONB) and never structurally validated.
type Metadata map[string]any

// JournalEntry is one atomic, dated, organization-scoped accounting event.
// Entries are only ever persisted balanced: sum(debit) == sum(credit) at
// 2-decimal precision across the lines.
type JournalEntry struct {
	ID             int64
	OrganizationID int64
	EntryDate      time.Time
	Reference      string
	Currency       string
	ExchangeRate   decimal.Decimal
	Source         Source
	Description    string
	IsPosted       bool
	Meta           Metadata
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Lines          []JournalLine
}

// JournalLine is one debit-or-credit leg of an entry. The organization ID is
// denormalized onto the line for query scoping.
type JournalLine struct {
	ID             int64
	JournalEntryID int64
	OrganizationID int64
	AccountID      int64
	Debit          decimal.Decimal
	Credit         decimal.Decimal
	Description    string
	LineNo         int
	Meta           Metadata
	CreatedAt      time.Time
}

// PostingInput carries the header fields and legs for a new entry.
type PostingInput struct {
	Date         time.Time
	Reference    string
	Currency     string
	ExchangeRate decimal.Decimal
	Source       Source
	Description  string
	Meta         Metadata
	Lines        []LineInput
}

// LineInput is one (account, debit, credit) tuple in input order.
type LineInput struct {
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
	Meta        Metadata
}
