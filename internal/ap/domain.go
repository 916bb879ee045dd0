package ap

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillStatus enumerates AP bill lifecycle states. Only drafts may be edited,
// deleted or posted.
type BillStatus string

const (
	StatusDraft  BillStatus = "draft"
	StatusPosted BillStatus = "posted"
	StatusPaid   BillStatus = "paid"
	StatusVoid   BillStatus = "void"
)

// Bill model.
type Bill struct {
	ID             int64
	OrganizationID int64
	SupplierID     int64
	BillNo         string
	BillDate       time.Time
	DueDate        *time.Time
	Currency       string
	ExchangeRate   decimal.Decimal
	Status         BillStatus
	Subtotal       decimal.Decimal
	Total          decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Lines          []BillLine
}

// BillLine is one expense line. Amount is round(qty*unit_price, 2), computed
// at write time.
type BillLine struct {
	ID          int64
	BillID      int64
	AccountID   int64
	Description string
	Qty         decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
	LineNo      int
}

// DraftInput describes a new or updated draft bill.
type DraftInput struct {
	SupplierID   int64     `validate:"required"`
	BillNo       string    `validate:"required,max=64"`
	BillDate     time.Time `validate:"required"`
	DueDate      *time.Time
	Currency     string
	ExchangeRate decimal.Decimal
	Lines        []DraftLineInput `validate:"required,min=1,dive"`
}

// DraftLineInput is one line of a draft document.
type DraftLineInput struct {
	AccountID   int64 `validate:"required"`
	Description string
	Qty         decimal.Decimal
	UnitPrice   decimal.Decimal
}

// ListFilter narrows bill listings.
type ListFilter struct {
	Status     BillStatus
	SupplierID int64
	DateFrom   *time.Time
	DateTo     *time.Time
	Search     string
}
