package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbooks-app/openbooks/internal/accounts"
)

type mockRepository struct {
	accounts    map[int64]accounts.Account // keyed by account ID
	entries     []JournalEntry
	lines       map[int64][]JournalLine
	nextEntryID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		accounts:    make(map[int64]accounts.Account),
		lines:       make(map[int64][]JournalLine),
		nextEntryID: 1,
	}
}

func (m *mockRepository) addAccount(id int64, orgID int64, code string) {
	m.accounts[id] = accounts.Account{ID: id, OrganizationID: orgID, Code: code, Type: accounts.TypeAsset, IsActive: true}
}

func (m *mockRepository) ListEntries(ctx context.Context, orgID int64, page, perPage int) ([]JournalEntry, int, error) {
	var out []JournalEntry
	for _, e := range m.entries {
		if e.OrganizationID == orgID {
			e.Lines = m.lines[e.ID]
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (m *mockRepository) GetEntry(ctx context.Context, orgID, id int64) (JournalEntry, error) {
	for _, e := range m.entries {
		if e.ID == id && e.OrganizationID == orgID {
			e.Lines = m.lines[e.ID]
			return e, nil
		}
	}
	return JournalEntry{}, ErrEntryNotFound
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &mockTxRepo{repo: m}
	if err := fn(ctx, tx); err != nil {
		// Discard staged writes, mirroring a rollback.
		return err
	}
	m.entries = append(m.entries, tx.entries...)
	for id, lines := range tx.lines {
		m.lines[id] = lines
	}
	return nil
}

type mockTxRepo struct {
	repo    *mockRepository
	entries []JournalEntry
	lines   map[int64][]JournalLine
}

func (t *mockTxRepo) InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	entry.ID = t.repo.nextEntryID
	t.repo.nextEntryID++
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	t.entries = append(t.entries, entry)
	return entry, nil
}

func (t *mockTxRepo) InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error {
	if t.lines == nil {
		t.lines = make(map[int64][]JournalLine)
	}
	staged := make([]JournalLine, len(lines))
	copy(staged, lines)
	for i := range staged {
		staged[i].JournalEntryID = entryID
		staged[i].ID = int64(i + 1)
	}
	t.lines[entryID] = staged
	return nil
}

func (t *mockTxRepo) MissingAccounts(ctx context.Context, orgID int64, ids []int64) ([]int64, error) {
	var missing []int64
	for _, id := range ids {
		acc, ok := t.repo.accounts[id]
		if !ok || acc.OrganizationID != orgID {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (t *mockTxRepo) AccountByCode(ctx context.Context, orgID int64, code string) (accounts.Account, error) {
	for _, acc := range t.repo.accounts {
		if acc.OrganizationID == orgID && acc.Code == code {
			return acc, nil
		}
	}
	return accounts.Account{}, accounts.ErrNotFound
}

func (t *mockTxRepo) UpsertAccount(ctx context.Context, a accounts.Account) (accounts.Account, error) {
	for _, existing := range t.repo.accounts {
		if existing.OrganizationID == a.OrganizationID && existing.Code == a.Code {
			a.ID = existing.ID
			t.repo.accounts[a.ID] = a
			return a, nil
		}
	}
	a.ID = int64(len(t.repo.accounts) + 1)
	t.repo.accounts[a.ID] = a
	return a, nil
}

type mockBumper struct{ calls int }

func (b *mockBumper) Bump(ctx context.Context) error {
	b.calls++
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPostManualEntryBalanced(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	repo.addAccount(1, 1, "1000")
	repo.addAccount(2, 1, "4000")
	bumper := &mockBumper{}
	svc := NewService(repo, bumper, nil)

	entry, err := svc.PostManualEntry(ctx, 1, PostingInput{
		Date:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Reference: "JE-1",
		Lines: []LineInput{
			{AccountID: 1, Debit: dec("150.00"), Description: "Cash"},
			{AccountID: 2, Credit: dec("150.00"), Description: "Sales"},
		},
	})
	require.NoError(t, err)
	assert.True(t, entry.IsPosted)
	assert.Equal(t, SourceManual, entry.Source)
	assert.Equal(t, "USD", entry.Currency)
	assert.True(t, entry.ExchangeRate.Equal(decimal.NewFromInt(1)))
	require.Len(t, entry.Lines, 2)
	assert.Equal(t, 1, entry.Lines[0].LineNo)
	assert.Equal(t, 2, entry.Lines[1].LineNo)
	assert.Equal(t, 1, bumper.calls)

	persisted, err := svc.GetEntry(ctx, 1, entry.ID)
	require.NoError(t, err)
	assert.Len(t, persisted.Lines, 2)
}

func TestPostManualEntryUnbalanced(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	repo.addAccount(1, 1, "1000")
	repo.addAccount(2, 1, "4000")
	bumper := &mockBumper{}
	svc := NewService(repo, bumper, nil)

	_, err := svc.PostManualEntry(ctx, 1, PostingInput{
		Reference: "JE-BAD",
		Lines: []LineInput{
			{AccountID: 1, Debit: dec("100.00")},
			{AccountID: 2, Credit: dec("99.99")},
		},
	})
	require.Error(t, err)
	assert.True(t, IsUnbalanced(err))

	var ub *UnbalancedError
	require.ErrorAs(t, err, &ub)
	assert.Equal(t, "JE-BAD", ub.Reference)
	assert.Equal(t, "100.00", ub.Debit.StringFixed(2))
	assert.Equal(t, "99.99", ub.Credit.StringFixed(2))

	// Nothing persisted, cache untouched.
	entries, _, _ := repo.ListEntries(ctx, 1, 1, 50)
	assert.Empty(t, entries)
	assert.Equal(t, 0, bumper.calls)
}

func TestPostManualEntryRoundsBeforeSumming(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	repo.addAccount(1, 1, "1000")
	repo.addAccount(2, 1, "4000")
	svc := NewService(repo, &mockBumper{}, nil)

	// 1.005 rounds to 1.01 before the balance comparison.
	entry, err := svc.PostManualEntry(ctx, 1, PostingInput{
		Lines: []LineInput{
			{AccountID: 1, Debit: dec("1.005")},
			{AccountID: 2, Credit: dec("1.01")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "1.01", entry.Lines[0].Debit.StringFixed(2))
}

func TestPostManualEntryRejections(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	repo.addAccount(1, 1, "1000")
	repo.addAccount(2, 1, "4000")
	svc := NewService(repo, nil, nil)

	_, err := svc.PostManualEntry(ctx, 1, PostingInput{
		Lines: []LineInput{{AccountID: 1, Debit: dec("10")}},
	})
	assert.ErrorIs(t, err, ErrTooFewLines)

	_, err = svc.PostManualEntry(ctx, 1, PostingInput{
		Lines: []LineInput{
			{AccountID: 1, Debit: dec("-5")},
			{AccountID: 2, Credit: dec("-5")},
		},
	})
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = svc.PostManualEntry(ctx, 1, PostingInput{
		Lines: []LineInput{
			{AccountID: 1, Debit: dec("10")},
			{AccountID: 99, Credit: dec("10")},
		},
	})
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestPostManualEntryOrganizationScope(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	repo.addAccount(1, 1, "1000")
	repo.addAccount(2, 2, "1000") // other org
	svc := NewService(repo, nil, nil)

	// An account from another organization counts as unknown.
	_, err := svc.PostManualEntry(ctx, 1, PostingInput{
		Lines: []LineInput{
			{AccountID: 1, Debit: dec("10")},
			{AccountID: 2, Credit: dec("10")},
		},
	})
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestPostEntryTxMetadataPreserved(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	repo.addAccount(1, 1, "1000")
	repo.addAccount(2, 1, "4000")

	var entry JournalEntry
	err := repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = PostEntryTx(ctx, tx, 1, PostingInput{
			Source: SourceSales,
			Meta:   Metadata{"row": map[string]any{"invoice_number": "42"}},
			Lines: []LineInput{
				{AccountID: 1, Debit: dec("10"), Meta: Metadata{"source": "gross"}},
				{AccountID: 2, Credit: dec("10")},
			},
		})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, SourceSales, entry.Source)
	require.Contains(t, entry.Meta, "row")
	assert.Equal(t, Metadata{"source": "gross"}, entry.Lines[0].Meta)
}
