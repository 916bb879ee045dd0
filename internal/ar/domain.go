package ar

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus enumerates AR invoice lifecycle states. Only drafts may be
// edited, deleted or posted.
type InvoiceStatus string

const (
	StatusDraft  InvoiceStatus = "draft"
	StatusPosted InvoiceStatus = "posted"
	StatusPaid   InvoiceStatus = "paid"
	StatusVoid   InvoiceStatus = "void"
)

// Invoice model.
type Invoice struct {
	ID             int64
	OrganizationID int64
	CustomerID     int64
	InvoiceNo      string
	InvoiceDate    time.Time
	DueDate        *time.Time
	Currency       string
	ExchangeRate   decimal.Decimal
	Status         InvoiceStatus
	Subtotal       decimal.Decimal
	Total          decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Lines          []InvoiceLine
}

// InvoiceLine is one revenue line. Amount is round(qty*unit_price, 2),
// computed at write time.
type InvoiceLine struct {
	ID          int64
	InvoiceID   int64
	AccountID   int64
	Description string
	Qty         decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
	LineNo      int
}

// DraftInput describes a new or updated draft invoice.
type DraftInput struct {
	CustomerID   int64     `validate:"required"`
	InvoiceNo    string    `validate:"required,max=64"`
	InvoiceDate  time.Time `validate:"required"`
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

// ListFilter narrows invoice listings.
type ListFilter struct {
	Status     InvoiceStatus
	CustomerID int64
	DateFrom   *time.Time
	DateTo     *time.Time
	Search     string
}
