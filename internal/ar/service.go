package ar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/openbooks-app/openbooks/internal/ledger"
	"github.com/openbooks-app/openbooks/internal/shared"
)

// ErrNotDraft rejects edits, deletes and posts of non-draft invoices.
var ErrNotDraft = errors.New("ar: invoice is not a draft")

var validate = validator.New()

type Service struct {
	repo   Repository
	bumper ledger.CacheBumper
	logger *slog.Logger
}

func NewService(repo Repository, bumper ledger.CacheBumper, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, bumper: bumper, logger: logger}
}

func (s *Service) List(ctx context.Context, orgID int64, filter ListFilter, page, perPage int) ([]Invoice, shared.Pagination, error) {
	pg := shared.NewPagination(page, perPage, 0)
	rows, total, err := s.repo.List(ctx, orgID, filter, pg.Page, pg.PerPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return rows, shared.NewPagination(pg.Page, pg.PerPage, total), nil
}

func (s *Service) Get(ctx context.Context, orgID, id int64) (Invoice, error) {
	return s.repo.Get(ctx, orgID, id)
}

// CreateDraft stores a new draft invoice. Line amounts and document totals
// are computed here, at 2-decimal precision.
func (s *Service) CreateDraft(ctx context.Context, orgID int64, in DraftInput) (Invoice, error) {
	if err := validate.Struct(in); err != nil {
		return Invoice{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	var result Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, lines := buildInvoice(orgID, in)
		inv.Status = StatusDraft
		inserted, err := tx.InsertInvoice(ctx, inv)
		if err != nil {
			return err
		}
		if err := tx.InsertInvoiceLines(ctx, inserted.ID, lines); err != nil {
			return err
		}
		inserted.Lines = lines
		result = inserted
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return result, nil
}

// UpdateDraft replaces a draft invoice's header and lines. Non-drafts are
// rejected with ErrNotDraft.
func (s *Service) UpdateDraft(ctx context.Context, orgID, id int64, in DraftInput) (Invoice, error) {
	if err := validate.Struct(in); err != nil {
		return Invoice{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	var result Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetInvoice(ctx, orgID, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return ErrNotDraft
		}
		updated, lines := buildInvoice(orgID, in)
		updated.ID = current.ID
		updated.Status = current.Status
		if err := tx.UpdateInvoice(ctx, updated); err != nil {
			return err
		}
		if err := tx.DeleteInvoiceLines(ctx, current.ID); err != nil {
			return err
		}
		if err := tx.InsertInvoiceLines(ctx, current.ID, lines); err != nil {
			return err
		}
		updated.Lines = lines
		result = updated
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return result, nil
}

// DeleteDraft removes a draft invoice and its lines.
func (s *Service) DeleteDraft(ctx context.Context, orgID, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetInvoice(ctx, orgID, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return ErrNotDraft
		}
		return tx.DeleteInvoice(ctx, orgID, id)
	})
}

// Post converts a draft invoice into a balanced journal entry: the control
// account is debited for the document total at line 1 and each invoice line
// credits its revenue account. The status flip and the entry commit in one
// transaction; the flip is a conditional update so concurrent posts of the
// same draft cannot double-post. Posting an already-posted invoice is a
// no-op returning the current document.
func (s *Service) Post(ctx context.Context, orgID, id, controlAccountID int64) (Invoice, error) {
	var result Invoice
	var posted bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoice(ctx, orgID, id)
		if err != nil {
			return err
		}
		if inv.Status == StatusPosted {
			result = inv
			return nil
		}
		if inv.Status != StatusDraft {
			return ErrNotDraft
		}
		claimed, err := tx.ClaimDraft(ctx, orgID, id)
		if err != nil {
			return err
		}
		if !claimed {
			current, err := tx.GetInvoice(ctx, orgID, id)
			if err != nil {
				return err
			}
			if current.Status != StatusPosted {
				return ErrNotDraft
			}
			result = current
			return nil
		}

		lines := make([]ledger.LineInput, 0, len(inv.Lines)+1)
		lines = append(lines, ledger.LineInput{
			AccountID:   controlAccountID,
			Debit:       inv.Total,
			Description: "AR for Invoice",
		})
		for _, l := range inv.Lines {
			lines = append(lines, ledger.LineInput{
				AccountID:   l.AccountID,
				Credit:      l.Amount,
				Description: l.Description,
			})
		}
		_, err = ledger.PostEntryTx(ctx, tx, orgID, ledger.PostingInput{
			Date:         inv.InvoiceDate,
			Reference:    "INV " + inv.InvoiceNo,
			Currency:     inv.Currency,
			ExchangeRate: inv.ExchangeRate,
			Source:       ledger.SourceSales,
			Description:  "Post AR Invoice",
			Meta:         ledger.Metadata{"ar_invoice_id": inv.ID},
			Lines:        lines,
		})
		if err != nil {
			return err
		}
		inv.Status = StatusPosted
		result = inv
		posted = true
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	if posted && s.bumper != nil {
		if err := s.bumper.Bump(ctx); err != nil {
			s.logger.Warn("report cache bump failed", slog.Any("error", err))
		}
	}
	return result, nil
}

func buildInvoice(orgID int64, in DraftInput) (Invoice, []InvoiceLine) {
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}
	rate := in.ExchangeRate
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	subtotal := decimal.Zero
	lines := make([]InvoiceLine, 0, len(in.Lines))
	for i, l := range in.Lines {
		qty := l.Qty
		if qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		amount := qty.Mul(l.UnitPrice).Round(2)
		subtotal = subtotal.Add(amount)
		lines = append(lines, InvoiceLine{
			AccountID:   l.AccountID,
			Description: l.Description,
			Qty:         qty,
			UnitPrice:   l.UnitPrice,
			Amount:      amount,
			LineNo:      i + 1,
		})
	}
	return Invoice{
		OrganizationID: orgID,
		CustomerID:     in.CustomerID,
		InvoiceNo:      in.InvoiceNo,
		InvoiceDate:    in.InvoiceDate,
		DueDate:        in.DueDate,
		Currency:       currency,
		ExchangeRate:   rate,
		Subtotal:       subtotal,
		Total:          subtotal,
	}, lines
}
