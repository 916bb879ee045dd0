package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/openbooks-app/openbooks/internal/shared"
)

// CacheBumper invalidates report caches after a successful posting.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Service is the posting engine. It turns line sets into persisted,
// balanced journal entries and refuses everything else.
type Service struct {
	repo   Repository
	bumper CacheBumper
	logger *slog.Logger
}

func NewService(repo Repository, bumper CacheBumper, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, bumper: bumper, logger: logger}
}

func (s *Service) ListEntries(ctx context.Context, orgID int64, page, perPage int) ([]JournalEntry, shared.Pagination, error) {
	pg := shared.NewPagination(page, perPage, 0)
	entries, total, err := s.repo.ListEntries(ctx, orgID, pg.Page, pg.PerPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return entries, shared.NewPagination(pg.Page, pg.PerPage, total), nil
}

func (s *Service) GetEntry(ctx context.Context, orgID, id int64) (JournalEntry, error) {
	return s.repo.GetEntry(ctx, orgID, id)
}

// PostManualEntry persists a manual journal entry in its own transaction.
// Manual entries must carry at least two legs.
func (s *Service) PostManualEntry(ctx context.Context, orgID int64, in PostingInput) (JournalEntry, error) {
	if len(in.Lines) < 2 {
		return JournalEntry{}, ErrTooFewLines
	}
	if in.Source == "" {
		in.Source = SourceManual
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = PostEntryTx(ctx, tx, orgID, in)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.invalidate(ctx)
	return entry, nil
}

// invalidate bumps the report cache version. Failures are logged, not
// surfaced: the entry is already committed.
func (s *Service) invalidate(ctx context.Context) {
	if s.bumper == nil {
		return
	}
	if err := s.bumper.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", slog.Any("error", err))
	}
}

// PostEntryTx validates and persists one balanced entry inside the caller's
// transaction. Every amount is rounded to 2 decimal places before summing;
// a mismatch between the rounded sums fails with UnbalancedError and the
// caller's transaction is expected to roll back.
func PostEntryTx(ctx context.Context, tx TxRepository, orgID int64, in PostingInput) (JournalEntry, error) {
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}
	rate := in.ExchangeRate
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	source := in.Source
	if source == "" {
		source = SourceManual
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	lines := make([]JournalLine, 0, len(in.Lines))
	accountIDs := make([]int64, 0, len(in.Lines))
	for i, line := range in.Lines {
		debit := line.Debit.Round(2)
		credit := line.Credit.Round(2)
		if debit.IsNegative() || credit.IsNegative() {
			return JournalEntry{}, fmt.Errorf("%w: line %d", ErrNegativeAmount, i+1)
		}
		totalDebit = totalDebit.Add(debit)
		totalCredit = totalCredit.Add(credit)
		lines = append(lines, JournalLine{
			OrganizationID: orgID,
			AccountID:      line.AccountID,
			Debit:          debit,
			Credit:         credit,
			Description:    line.Description,
			LineNo:         i + 1,
			Meta:           line.Meta,
		})
		accountIDs = append(accountIDs, line.AccountID)
	}

	if !totalDebit.Equal(totalCredit) {
		return JournalEntry{}, &UnbalancedError{Reference: in.Reference, Debit: totalDebit, Credit: totalCredit}
	}

	missing, err := tx.MissingAccounts(ctx, orgID, accountIDs)
	if err != nil {
		return JournalEntry{}, err
	}
	if len(missing) > 0 {
		return JournalEntry{}, fmt.Errorf("%w: id %d", ErrUnknownAccount, missing[0])
	}

	entry, err := tx.InsertEntry(ctx, JournalEntry{
		OrganizationID: orgID,
		EntryDate:      in.Date,
		Reference:      in.Reference,
		Currency:       currency,
		ExchangeRate:   rate,
		Source:         source,
		Description:    in.Description,
		IsPosted:       true,
		Meta:           in.Meta,
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if err := tx.InsertLines(ctx, entry.ID, lines); err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}
