package reports

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultPerPage = 50
	maxPerPage     = 200
)

// Service computes reports, memoizing trial balance pages in the versioned
// cache. Concurrent requests for the same page collapse into one query.
type Service struct {
	repo   Repository
	cache  *Cache
	group  singleflight.Group
	logger *slog.Logger
}

func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

func normalizeQuery(q TrialBalanceQuery) TrialBalanceQuery {
	if q.AsOf.IsZero() {
		q.AsOf = time.Now().UTC()
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = defaultPerPage
	}
	if q.PerPage > maxPerPage {
		q.PerPage = maxPerPage
	}
	switch q.Sort {
	case "code", "name", "debit", "credit":
	default:
		q.Sort = "code"
	}
	if q.Dir != "desc" {
		q.Dir = "asc"
	}
	return q
}

// TrialBalance returns one page of net account positions as of the query
// date, plus grand totals over the whole ledger.
func (s *Service) TrialBalance(ctx context.Context, orgID int64, q TrialBalanceQuery) (TrialBalance, error) {
	q = normalizeQuery(q)
	asOf := q.AsOf.Format("2006-01-02")

	key, err := s.cache.BuildKey(ctx, "reports", "tb",
		strconv.FormatInt(orgID, 10), asOf,
		strconv.Itoa(q.Page), strconv.Itoa(q.PerPage), q.Sort, q.Dir)
	if err != nil {
		return TrialBalance{}, err
	}

	var report TrialBalance
	loadErr := s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		value, err, _ := s.singleflightLoad(ctx, key, func(ctx context.Context) (interface{}, error) {
			return s.buildTrialBalance(ctx, orgID, q, asOf)
		})
		return value, err
	})
	if loadErr != nil {
		return TrialBalance{}, loadErr
	}
	return report, nil
}

func (s *Service) singleflightLoad(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error, bool) {
	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}

func (s *Service) buildTrialBalance(ctx context.Context, orgID int64, q TrialBalanceQuery, asOf string) (TrialBalance, error) {
	totals, count, err := s.repo.TrialBalanceTotals(ctx, orgID, q.AsOf)
	if err != nil {
		return TrialBalance{}, fmt.Errorf("reports: trial balance totals: %w", err)
	}
	rows, err := s.repo.TrialBalancePage(ctx, orgID, q.AsOf, q.Sort, q.Dir, q.PerPage, (q.Page-1)*q.PerPage)
	if err != nil {
		return TrialBalance{}, fmt.Errorf("reports: trial balance page: %w", err)
	}
	lastPage := (count + q.PerPage - 1) / q.PerPage
	if lastPage < 1 {
		lastPage = 1
	}
	if rows == nil {
		rows = []TrialBalanceRow{}
	}
	return TrialBalance{
		AsOf:        asOf,
		Rows:        rows,
		Totals:      totals,
		CurrentPage: q.Page,
		PerPage:     q.PerPage,
		LastPage:    lastPage,
		Total:       count,
	}, nil
}

// AccountActivity lists an account's posted lines with a running balance.
// Uncached: it is a drill-down view, not a dashboard query.
func (s *Service) AccountActivity(ctx context.Context, orgID, accountID int64, from, to time.Time) ([]ActivityRow, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return s.repo.AccountActivity(ctx, orgID, accountID, from, to)
}
