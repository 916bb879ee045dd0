package reports

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/openbooks-app/openbooks/internal/accounts"
)

type mockRepo struct {
	rows        []TrialBalanceRow
	totals      TrialBalanceTotals
	count       int
	pageCalls   int
	totalCalls  int
	lastSort    string
	lastDir     string
	lastLimit   int
	lastOffset  int
	activity    []ActivityRow
	activityNum int
}

func (m *mockRepo) TrialBalancePage(ctx context.Context, orgID int64, asOf time.Time, sort, dir string, limit, offset int) ([]TrialBalanceRow, error) {
	m.pageCalls++
	m.lastSort = sort
	m.lastDir = dir
	m.lastLimit = limit
	m.lastOffset = offset
	return m.rows, nil
}

func (m *mockRepo) TrialBalanceTotals(ctx context.Context, orgID int64, asOf time.Time) (TrialBalanceTotals, int, error) {
	m.totalCalls++
	return m.totals, m.count, nil
}

func (m *mockRepo) AccountActivity(ctx context.Context, orgID, accountID int64, from, to time.Time) ([]ActivityRow, error) {
	m.activityNum++
	return m.activity, nil
}

func newTestService(t *testing.T, repo Repository) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	svc := NewService(repo, cache, nil)
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func tbRow(id int64, code string, debit, credit string) TrialBalanceRow {
	d, _ := decimal.NewFromString(debit)
	c, _ := decimal.NewFromString(credit)
	return TrialBalanceRow{AccountID: id, Code: code, Name: code, Type: accounts.TypeAsset, Debit: d, Credit: c}
}

func TestTrialBalanceCaches(t *testing.T) {
	repo := &mockRepo{
		rows: []TrialBalanceRow{
			tbRow(1, "1000", "150.00", "0"),
			tbRow(2, "4000", "0", "150.00"),
		},
		totals: TrialBalanceTotals{
			TotalDebit:  decimal.RequireFromString("150.00"),
			TotalCredit: decimal.RequireFromString("150.00"),
		},
		count: 2,
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	ctx := context.Background()
	q := TrialBalanceQuery{AsOf: time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)}
	report, err := svc.TrialBalance(ctx, 1, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Rows) != 2 {
		t.Fatalf("expected 2 rows got %d", len(report.Rows))
	}
	if !report.Totals.TotalDebit.Equal(report.Totals.TotalCredit) {
		t.Fatalf("totals not equal: %s vs %s", report.Totals.TotalDebit, report.Totals.TotalCredit)
	}
	if report.AsOf != "2026-04-30" {
		t.Fatalf("unexpected as_of %q", report.AsOf)
	}
	if repo.pageCalls != 1 {
		t.Fatalf("expected 1 repo call, got %d", repo.pageCalls)
	}

	// Second call should hit cache.
	report, err = svc.TrialBalance(ctx, 1, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.pageCalls != 1 {
		t.Fatalf("expected cached result, repo called %d times", repo.pageCalls)
	}
	if report.Rows[0].Code != "1000" {
		t.Fatalf("cached row mismatch: %#v", report.Rows[0])
	}

	// Bumping should trigger a reload.
	if err := svc.cache.Bump(ctx); err != nil {
		t.Fatalf("bump failed: %v", err)
	}
	repo.rows = append(repo.rows, tbRow(3, "5000", "20.00", "0"))
	repo.count = 3
	report, err = svc.TrialBalance(ctx, 1, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Rows) != 3 {
		t.Fatalf("expected refreshed rows, got %d", len(report.Rows))
	}
	if repo.pageCalls != 2 {
		t.Fatalf("expected repo to refresh, calls %d", repo.pageCalls)
	}
}

func TestTrialBalanceQueryDefaults(t *testing.T) {
	repo := &mockRepo{count: 0}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	ctx := context.Background()
	report, err := svc.TrialBalance(ctx, 1, TrialBalanceQuery{Sort: "drop table", Dir: "sideways", PerPage: 10_000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastSort != "code" || repo.lastDir != "asc" {
		t.Fatalf("expected sanitized sort, got %s %s", repo.lastSort, repo.lastDir)
	}
	if repo.lastLimit != 200 {
		t.Fatalf("expected per-page clamp at 200, got %d", repo.lastLimit)
	}
	if report.LastPage != 1 {
		t.Fatalf("empty report should still have last page 1, got %d", report.LastPage)
	}
	if report.Rows == nil {
		t.Fatalf("rows should never be nil")
	}
}

func TestTrialBalancePagination(t *testing.T) {
	repo := &mockRepo{count: 45}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	ctx := context.Background()
	report, err := svc.TrialBalance(ctx, 1, TrialBalanceQuery{
		AsOf: time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC), Page: 3, PerPage: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastOffset != 20 || repo.lastLimit != 10 {
		t.Fatalf("unexpected window limit=%d offset=%d", repo.lastLimit, repo.lastOffset)
	}
	if report.LastPage != 5 {
		t.Fatalf("expected 5 pages got %d", report.LastPage)
	}
	if report.CurrentPage != 3 || report.Total != 45 {
		t.Fatalf("unexpected paging %#v", report)
	}
}

func TestAccountActivityDefaultsRange(t *testing.T) {
	repo := &mockRepo{
		activity: []ActivityRow{
			{EntryID: 1, Reference: "JE-1", Debit: decimal.RequireFromString("100"), Balance: decimal.RequireFromString("100")},
		},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	rows, err := svc.AccountActivity(context.Background(), 1, 9, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("activity error: %v", err)
	}
	if len(rows) != 1 || rows[0].Reference != "JE-1" {
		t.Fatalf("unexpected rows %#v", rows)
	}
	if repo.activityNum != 1 {
		t.Fatalf("expected one repo call, got %d", repo.activityNum)
	}
}
