package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openbooks-app/openbooks/internal/accounts"
	"github.com/openbooks-app/openbooks/internal/platform/db"
)

// Repository encapsulates DB operations for journal entries and lines.
type Repository interface {
	ListEntries(ctx context.Context, orgID int64, page, perPage int) ([]JournalEntry, int, error)
	GetEntry(ctx context.Context, orgID, id int64) (JournalEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available within a posting
// transaction. Document posting and the CSV importers join the same
// transaction through this interface, so account resolution and the entry
// insert always happen atomically.
type TxRepository interface {
	InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error
	// MissingAccounts returns the IDs in ids that do not exist in the
	// organization.
	MissingAccounts(ctx context.Context, orgID int64, ids []int64) ([]int64, error)
	// Account lookups needed inside import transactions. Duplicated from the
	// accounts repository so resolution joins the posting transaction.
	AccountByCode(ctx context.Context, orgID int64, code string) (accounts.Account, error)
	UpsertAccount(ctx context.Context, a accounts.Account) (accounts.Account, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, organization_id, entry_date, reference, currency, exchange_rate, source, description, is_posted, meta, created_at, updated_at`

func (r *repository) ListEntries(ctx context.Context, orgID int64, page, perPage int) ([]JournalEntry, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries WHERE organization_id=$1`, orgID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries
WHERE organization_id=$1 ORDER BY entry_date DESC, id DESC LIMIT $2 OFFSET $3`, orgID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var entries []JournalEntry
	var ids []int64
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(ids) > 0 {
		byEntry, err := r.linesForEntries(ctx, orgID, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range entries {
			entries[i].Lines = byEntry[entries[i].ID]
		}
	}
	return entries, total, nil
}

func (r *repository) GetEntry(ctx context.Context, orgID, id int64) (JournalEntry, error) {
	entry, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE organization_id=$1 AND id=$2`, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	byEntry, err := r.linesForEntries(ctx, orgID, []int64{entry.ID})
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = byEntry[entry.ID]
	return entry, nil
}

func (r *repository) linesForEntries(ctx context.Context, orgID int64, ids []int64) (map[int64][]JournalLine, error) {
	rows, err := r.db.Query(ctx, `SELECT id, journal_entry_id, organization_id, account_id, debit, credit, description, line_no, meta, created_at
FROM journal_lines WHERE organization_id=$1 AND journal_entry_id = ANY($2) ORDER BY journal_entry_id, line_no`, orgID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64][]JournalLine)
	for rows.Next() {
		var l JournalLine
		var meta []byte
		if err := rows.Scan(&l.ID, &l.JournalEntryID, &l.OrganizationID, &l.AccountID, &l.Debit, &l.Credit, &l.Description, &l.LineNo, &meta, &l.CreatedAt); err != nil {
			return nil, err
		}
		if err := decodeMeta(meta, &l.Meta); err != nil {
			return nil, err
		}
		out[l.JournalEntryID] = append(out[l.JournalEntryID], l)
	}
	return out, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps an open transaction so other domains (document
// posting, imports) can post entries inside their own transaction scope.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (r *txRepository) InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	meta, err := encodeMeta(entry.Meta)
	if err != nil {
		return JournalEntry{}, err
	}
	err = r.tx.QueryRow(ctx, `INSERT INTO journal_entries (organization_id, entry_date, reference, currency, exchange_rate, source, description, is_posted, meta)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, created_at, updated_at`,
		entry.OrganizationID, entry.EntryDate, entry.Reference, entry.Currency, entry.ExchangeRate, entry.Source, entry.Description, entry.IsPosted, meta).
		Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error {
	for i := range lines {
		meta, err := encodeMeta(lines[i].Meta)
		if err != nil {
			return err
		}
		err = r.tx.QueryRow(ctx, `INSERT INTO journal_lines (journal_entry_id, organization_id, account_id, debit, credit, description, line_no, meta)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at`,
			entryID, lines[i].OrganizationID, lines[i].AccountID, lines[i].Debit, lines[i].Credit, lines[i].Description, lines[i].LineNo, meta).
			Scan(&lines[i].ID, &lines[i].CreatedAt)
		if err != nil {
			return err
		}
		lines[i].JournalEntryID = entryID
	}
	return nil
}

func (r *txRepository) MissingAccounts(ctx context.Context, orgID int64, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.tx.Query(ctx, `SELECT x.id FROM unnest($2::bigint[]) AS x(id)
WHERE NOT EXISTS (SELECT 1 FROM accounts a WHERE a.organization_id=$1 AND a.id=x.id)`, orgID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var missing []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		missing = append(missing, id)
	}
	return missing, rows.Err()
}

func (r *txRepository) AccountByCode(ctx context.Context, orgID int64, code string) (accounts.Account, error) {
	var a accounts.Account
	err := r.tx.QueryRow(ctx, `SELECT id, organization_id, code, name, type, parent_id, level, is_active, created_at, updated_at
FROM accounts WHERE organization_id=$1 AND code=$2`, orgID, code).
		Scan(&a.ID, &a.OrganizationID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.Level, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounts.Account{}, accounts.ErrNotFound
		}
		return accounts.Account{}, err
	}
	return a, nil
}

func (r *txRepository) UpsertAccount(ctx context.Context, a accounts.Account) (accounts.Account, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO accounts (organization_id, code, name, type, parent_id, level, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (organization_id, code)
DO UPDATE SET name=EXCLUDED.name, type=EXCLUDED.type, parent_id=EXCLUDED.parent_id, level=EXCLUDED.level, is_active=EXCLUDED.is_active, updated_at=NOW()
RETURNING id, created_at, updated_at`,
		a.OrganizationID, a.Code, a.Name, a.Type, a.ParentID, a.Level, a.IsActive).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return accounts.Account{}, err
	}
	return a, nil
}

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	var meta []byte
	err := row.Scan(&e.ID, &e.OrganizationID, &e.EntryDate, &e.Reference, &e.Currency, &e.ExchangeRate, &e.Source, &e.Description, &e.IsPosted, &meta, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return JournalEntry{}, err
	}
	if err := decodeMeta(meta, &e.Meta); err != nil {
		return JournalEntry{}, err
	}
	return e, nil
}

func encodeMeta(m Metadata) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("ledger: encode meta: %w", err)
	}
	return raw, nil
}

func decodeMeta(raw []byte, dest *Metadata) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("ledger: decode meta: %w", err)
	}
	return nil
}
