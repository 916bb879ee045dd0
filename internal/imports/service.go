package imports

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/openbooks-app/openbooks/internal/ledger"
	"github.com/openbooks-app/openbooks/internal/org"
)

// Overrides carries request-level mapping overrides. Non-empty fields win
// over the organization settings; row-level columns win over both.
type Overrides struct {
	Sales     org.SalesMappings
	Purchases org.PurchaseMappings
}

// JournalResult reports a journal import run, including which format the
// file was detected as.
type JournalResult struct {
	EntriesCreated int      `json:"entries_created"`
	Errors         []string `json:"errors"`
	Format         Format   `json:"format"`
}

// Service is the CSV import reconciler. It parses tabular input, detects
// the format, resolves mappings and drives the posting engine row by row,
// one transaction per file.
type Service struct {
	ledger  ledger.Repository
	orgs    org.Repository
	bumper  ledger.CacheBumper
	logger  *slog.Logger
	maxRows int
}

func NewService(ledgerRepo ledger.Repository, orgs org.Repository, bumper ledger.CacheBumper, logger *slog.Logger, maxRows int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: ledgerRepo, orgs: orgs, bumper: bumper, logger: logger, maxRows: maxRows}
}

// ImportJournalCSV ingests a journal file in any of the supported formats.
// The header row is auto-detected, skipping preamble. Generic journal rows
// group into entries by (entry_date, reference); sales and purchase
// register rows each synthesize one entry using the organization's account
// mappings merged with the request overrides. The whole file commits or
// rolls back as a unit; business failures are reported in the result's
// Errors, not as a call error.
func (s *Service) ImportJournalCSV(ctx context.Context, orgID int64, r io.Reader, overrides Overrides) (JournalResult, error) {
	rows, err := readRows(r, s.maxRows)
	if err != nil {
		return JournalResult{}, err
	}
	if len(rows) == 0 {
		return JournalResult{}, ErrEmptyFile
	}

	headerIdx, cols, format := detectHeader(rows)
	dataRows := rows[headerIdx+1:]
	batchID := uuid.NewString()

	var created int
	var runErr error
	switch format {
	case FormatSales, FormatPurchase:
		organization, err := s.orgs.Get(ctx, orgID)
		if err != nil {
			return JournalResult{}, err
		}
		if format == FormatSales {
			settings := mergeSales(organization.Settings.Imports.Sales, overrides.Sales)
			created, runErr = s.importSales(ctx, orgID, settings, cols, dataRows, batchID)
		} else {
			settings := mergePurchases(organization.Settings.Imports.Purchases, overrides.Purchases)
			created, runErr = s.importPurchases(ctx, orgID, settings, cols, dataRows, batchID)
		}
	default:
		created, runErr = s.importGeneric(ctx, orgID, cols, dataRows, batchID)
	}

	if runErr != nil {
		s.logger.Warn("journal import aborted",
			"org_id", orgID, "format", string(format), "batch_id", batchID, "error", runErr)
		return JournalResult{Errors: []string{runErr.Error()}, Format: format}, nil
	}

	if created > 0 && s.bumper != nil {
		if err := s.bumper.Bump(ctx); err != nil {
			s.logger.Warn("report cache bump failed", slog.Any("error", err))
		}
	}
	s.logger.Info("journal import committed",
		"org_id", orgID, "format", string(format), "batch_id", batchID, "entries", created)
	return JournalResult{EntriesCreated: created, Errors: []string{}, Format: format}, nil
}
