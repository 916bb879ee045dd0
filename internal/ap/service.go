package ap

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

// ErrNotDraft rejects edits, deletes and posts of non-draft bills.
var ErrNotDraft = errors.New("ap: bill is not a draft")

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

func (s *Service) List(ctx context.Context, orgID int64, filter ListFilter, page, perPage int) ([]Bill, shared.Pagination, error) {
	pg := shared.NewPagination(page, perPage, 0)
	rows, total, err := s.repo.List(ctx, orgID, filter, pg.Page, pg.PerPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return rows, shared.NewPagination(pg.Page, pg.PerPage, total), nil
}

func (s *Service) Get(ctx context.Context, orgID, id int64) (Bill, error) {
	return s.repo.Get(ctx, orgID, id)
}

// CreateDraft stores a new draft bill. Line amounts and document totals are
// computed here, at 2-decimal precision.
func (s *Service) CreateDraft(ctx context.Context, orgID int64, in DraftInput) (Bill, error) {
	if err := validate.Struct(in); err != nil {
		return Bill{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	var result Bill
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		b, lines := buildBill(orgID, in)
		b.Status = StatusDraft
		inserted, err := tx.InsertBill(ctx, b)
		if err != nil {
			return err
		}
		if err := tx.InsertBillLines(ctx, inserted.ID, lines); err != nil {
			return err
		}
		inserted.Lines = lines
		result = inserted
		return nil
	})
	if err != nil {
		return Bill{}, err
	}
	return result, nil
}

// UpdateDraft replaces a draft bill's header and lines. Non-drafts are
// rejected with ErrNotDraft.
func (s *Service) UpdateDraft(ctx context.Context, orgID, id int64, in DraftInput) (Bill, error) {
	if err := validate.Struct(in); err != nil {
		return Bill{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	var result Bill
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetBill(ctx, orgID, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return ErrNotDraft
		}
		updated, lines := buildBill(orgID, in)
		updated.ID = current.ID
		updated.Status = current.Status
		if err := tx.UpdateBill(ctx, updated); err != nil {
			return err
		}
		if err := tx.DeleteBillLines(ctx, current.ID); err != nil {
			return err
		}
		if err := tx.InsertBillLines(ctx, current.ID, lines); err != nil {
			return err
		}
		updated.Lines = lines
		result = updated
		return nil
	})
	if err != nil {
		return Bill{}, err
	}
	return result, nil
}

// DeleteDraft removes a draft bill and its lines.
func (s *Service) DeleteDraft(ctx context.Context, orgID, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetBill(ctx, orgID, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return ErrNotDraft
		}
		return tx.DeleteBill(ctx, orgID, id)
	})
}

// Post converts a draft bill into a balanced journal entry: each bill line
// debits its expense account and the control account is credited for the
// document total at line 1. The status flip and the entry commit in one
// transaction; the flip is a conditional update so concurrent posts of the
// same draft cannot double-post. Posting an already-posted bill is a no-op
// returning the current document.
func (s *Service) Post(ctx context.Context, orgID, id, controlAccountID int64) (Bill, error) {
	var result Bill
	var posted bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		b, err := tx.GetBill(ctx, orgID, id)
		if err != nil {
			return err
		}
		if b.Status == StatusPosted {
			result = b
			return nil
		}
		if b.Status != StatusDraft {
			return ErrNotDraft
		}
		claimed, err := tx.ClaimDraft(ctx, orgID, id)
		if err != nil {
			return err
		}
		if !claimed {
			current, err := tx.GetBill(ctx, orgID, id)
			if err != nil {
				return err
			}
			if current.Status != StatusPosted {
				return ErrNotDraft
			}
			result = current
			return nil
		}

		lines := make([]ledger.LineInput, 0, len(b.Lines)+1)
		lines = append(lines, ledger.LineInput{
			AccountID:   controlAccountID,
			Credit:      b.Total,
			Description: "AP for Bill",
		})
		for _, l := range b.Lines {
			lines = append(lines, ledger.LineInput{
				AccountID:   l.AccountID,
				Debit:       l.Amount,
				Description: l.Description,
			})
		}
		_, err = ledger.PostEntryTx(ctx, tx, orgID, ledger.PostingInput{
			Date:         b.BillDate,
			Reference:    "BILL " + b.BillNo,
			Currency:     b.Currency,
			ExchangeRate: b.ExchangeRate,
			Source:       ledger.SourcePurchase,
			Description:  "Post AP Bill",
			Meta:         ledger.Metadata{"ap_bill_id": b.ID},
			Lines:        lines,
		})
		if err != nil {
			return err
		}
		b.Status = StatusPosted
		result = b
		posted = true
		return nil
	})
	if err != nil {
		return Bill{}, err
	}
	if posted && s.bumper != nil {
		if err := s.bumper.Bump(ctx); err != nil {
			s.logger.Warn("report cache bump failed", slog.Any("error", err))
		}
	}
	return result, nil
}

func buildBill(orgID int64, in DraftInput) (Bill, []BillLine) {
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}
	rate := in.ExchangeRate
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	subtotal := decimal.Zero
	lines := make([]BillLine, 0, len(in.Lines))
	for i, l := range in.Lines {
		qty := l.Qty
		if qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		amount := qty.Mul(l.UnitPrice).Round(2)
		subtotal = subtotal.Add(amount)
		lines = append(lines, BillLine{
			AccountID:   l.AccountID,
			Description: l.Description,
			Qty:         qty,
			UnitPrice:   l.UnitPrice,
			Amount:      amount,
			LineNo:      i + 1,
		})
	}
	return Bill{
		OrganizationID: orgID,
		SupplierID:     in.SupplierID,
		BillNo:         in.BillNo,
		BillDate:       in.BillDate,
		DueDate:        in.DueDate,
		Currency:       currency,
		ExchangeRate:   rate,
		Subtotal:       subtotal,
		Total:          subtotal,
	}, lines
}
