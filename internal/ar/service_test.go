package ar

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbooks-app/openbooks/internal/accounts"
	"github.com/openbooks-app/openbooks/internal/ledger"
)

type mockStore struct {
	invoices    map[int64]*Invoice
	nextInvID   int64
	accounts    map[int64]accounts.Account
	entries     []ledger.JournalEntry
	entryLines  map[int64][]ledger.JournalLine
	nextEntryID int64
}

func newMockStore() *mockStore {
	return &mockStore{
		invoices:    make(map[int64]*Invoice),
		nextInvID:   1,
		accounts:    make(map[int64]accounts.Account),
		entryLines:  make(map[int64][]ledger.JournalLine),
		nextEntryID: 1,
	}
}

func (m *mockStore) addAccount(id int64, orgID int64, code string) {
	m.accounts[id] = accounts.Account{ID: id, OrganizationID: orgID, Code: code}
}

func (m *mockStore) List(ctx context.Context, orgID int64, filter ListFilter, page, perPage int) ([]Invoice, int, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if inv.OrganizationID == orgID {
			out = append(out, *inv)
		}
	}
	return out, len(out), nil
}

func (m *mockStore) Get(ctx context.Context, orgID, id int64) (Invoice, error) {
	return (&mockTx{store: m}).GetInvoice(ctx, orgID, id)
}

func (m *mockStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &mockTx{store: m})
}

type mockTx struct {
	store *mockStore
}

func (t *mockTx) GetInvoice(ctx context.Context, orgID, id int64) (Invoice, error) {
	inv, ok := t.store.invoices[id]
	if !ok || inv.OrganizationID != orgID {
		return Invoice{}, ErrInvoiceNotFound
	}
	return *inv, nil
}

func (t *mockTx) InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	inv.ID = t.store.nextInvID
	t.store.nextInvID++
	stored := inv
	t.store.invoices[inv.ID] = &stored
	return inv, nil
}

func (t *mockTx) UpdateInvoice(ctx context.Context, inv Invoice) error {
	existing, ok := t.store.invoices[inv.ID]
	if !ok || existing.OrganizationID != inv.OrganizationID {
		return ErrInvoiceNotFound
	}
	lines := existing.Lines
	stored := inv
	stored.Lines = lines
	t.store.invoices[inv.ID] = &stored
	return nil
}

func (t *mockTx) InsertInvoiceLines(ctx context.Context, invoiceID int64, lines []InvoiceLine) error {
	inv := t.store.invoices[invoiceID]
	inv.Lines = append([]InvoiceLine(nil), lines...)
	return nil
}

func (t *mockTx) DeleteInvoiceLines(ctx context.Context, invoiceID int64) error {
	if inv, ok := t.store.invoices[invoiceID]; ok {
		inv.Lines = nil
	}
	return nil
}

func (t *mockTx) DeleteInvoice(ctx context.Context, orgID, id int64) error {
	inv, ok := t.store.invoices[id]
	if !ok || inv.OrganizationID != orgID {
		return ErrInvoiceNotFound
	}
	delete(t.store.invoices, id)
	return nil
}

func (t *mockTx) ClaimDraft(ctx context.Context, orgID, id int64) (bool, error) {
	inv, ok := t.store.invoices[id]
	if !ok || inv.OrganizationID != orgID || inv.Status != StatusDraft {
		return false, nil
	}
	inv.Status = StatusPosted
	return true, nil
}

func (t *mockTx) InsertEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
	entry.ID = t.store.nextEntryID
	t.store.nextEntryID++
	t.store.entries = append(t.store.entries, entry)
	return entry, nil
}

func (t *mockTx) InsertLines(ctx context.Context, entryID int64, lines []ledger.JournalLine) error {
	t.store.entryLines[entryID] = append([]ledger.JournalLine(nil), lines...)
	return nil
}

func (t *mockTx) MissingAccounts(ctx context.Context, orgID int64, ids []int64) ([]int64, error) {
	var missing []int64
	for _, id := range ids {
		acc, ok := t.store.accounts[id]
		if !ok || acc.OrganizationID != orgID {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (t *mockTx) AccountByCode(ctx context.Context, orgID int64, code string) (accounts.Account, error) {
	for _, acc := range t.store.accounts {
		if acc.OrganizationID == orgID && acc.Code == code {
			return acc, nil
		}
	}
	return accounts.Account{}, accounts.ErrNotFound
}

func (t *mockTx) UpsertAccount(ctx context.Context, a accounts.Account) (accounts.Account, error) {
	t.store.accounts[a.ID] = a
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

func draftInput() DraftInput {
	return DraftInput{
		CustomerID:  7,
		InvoiceNo:   "INV-100",
		InvoiceDate: time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
		Lines: []DraftLineInput{
			{AccountID: 2, Description: "Consulting", Qty: dec("2"), UnitPrice: dec("150.25")},
			{AccountID: 3, Description: "Support", UnitPrice: dec("99.50")},
		},
	}
}

func TestCreateDraftComputesAmounts(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc := NewService(store, nil, nil)

	inv, err := svc.CreateDraft(ctx, 1, draftInput())
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, inv.Status)
	require.Len(t, inv.Lines, 2)
	assert.Equal(t, "300.50", inv.Lines[0].Amount.StringFixed(2))
	// Qty defaults to 1.
	assert.Equal(t, "99.50", inv.Lines[1].Amount.StringFixed(2))
	assert.Equal(t, "400.00", inv.Total.StringFixed(2))
	assert.Equal(t, "USD", inv.Currency)
}

func TestUpdateDraftRejectsPosted(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc := NewService(store, nil, nil)

	inv, err := svc.CreateDraft(ctx, 1, draftInput())
	require.NoError(t, err)
	store.invoices[inv.ID].Status = StatusPosted

	_, err = svc.UpdateDraft(ctx, 1, inv.ID, draftInput())
	assert.ErrorIs(t, err, ErrNotDraft)
	assert.ErrorIs(t, svc.DeleteDraft(ctx, 1, inv.ID), ErrNotDraft)
}

func TestPostInvoice(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.addAccount(1, 1, "1100") // AR control
	store.addAccount(2, 1, "4100")
	store.addAccount(3, 1, "4100b")
	bumper := &mockBumper{}
	svc := NewService(store, bumper, nil)

	inv, err := svc.CreateDraft(ctx, 1, draftInput())
	require.NoError(t, err)

	posted, err := svc.Post(ctx, 1, inv.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, posted.Status)
	assert.Equal(t, 1, bumper.calls)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, ledger.SourceSales, entry.Source)
	assert.Equal(t, "INV INV-100", entry.Reference)

	lines := store.entryLines[entry.ID]
	require.Len(t, lines, 3)
	// Control debit leads, revenue credits follow. The entry balances.
	assert.Equal(t, int64(1), lines[0].AccountID)
	assert.Equal(t, "400.00", lines[0].Debit.StringFixed(2))
	total := decimal.Zero
	for _, l := range lines[1:] {
		total = total.Add(l.Credit)
	}
	assert.Equal(t, "400.00", total.StringFixed(2))
}

func TestPostInvoiceIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.addAccount(1, 1, "1100")
	store.addAccount(2, 1, "4100")
	store.addAccount(3, 1, "4100b")
	bumper := &mockBumper{}
	svc := NewService(store, bumper, nil)

	inv, err := svc.CreateDraft(ctx, 1, draftInput())
	require.NoError(t, err)

	_, err = svc.Post(ctx, 1, inv.ID, 1)
	require.NoError(t, err)

	// Re-posting is a no-op returning the current document.
	again, err := svc.Post(ctx, 1, inv.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, again.Status)
	assert.Len(t, store.entries, 1)
	assert.Equal(t, 1, bumper.calls)
}

func TestPostInvoiceRejectsVoid(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.addAccount(1, 1, "1100")
	store.addAccount(2, 1, "4100")
	store.addAccount(3, 1, "4100b")
	svc := NewService(store, nil, nil)

	inv, err := svc.CreateDraft(ctx, 1, draftInput())
	require.NoError(t, err)
	store.invoices[inv.ID].Status = StatusVoid

	_, err = svc.Post(ctx, 1, inv.ID, 1)
	assert.ErrorIs(t, err, ErrNotDraft)
	assert.Empty(t, store.entries)
}

func TestPostInvoiceUnknownControlAccount(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.addAccount(2, 1, "4100")
	store.addAccount(3, 1, "4100b")
	svc := NewService(store, nil, nil)

	inv, err := svc.CreateDraft(ctx, 1, draftInput())
	require.NoError(t, err)

	_, err = svc.Post(ctx, 1, inv.ID, 999)
	assert.ErrorIs(t, err, ledger.ErrUnknownAccount)
}
