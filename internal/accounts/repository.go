package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository encapsulates DB operations for the chart of accounts. All
// operations are scoped to one organization.
type Repository interface {
	List(ctx context.Context, orgID int64) ([]Account, error)
	Paginate(ctx context.Context, orgID int64, page, perPage int, sort, dir string) ([]Account, int, error)
	Get(ctx context.Context, orgID, id int64) (Account, error)
	GetByCode(ctx context.Context, orgID int64, code string) (Account, error)
	Create(ctx context.Context, a Account) (Account, error)
	Update(ctx context.Context, a Account) error
	Delete(ctx context.Context, orgID, id int64) error
	Upsert(ctx context.Context, a Account) (Account, error)
	HasChildren(ctx context.Context, orgID, id int64) (bool, error)
	IsReferenced(ctx context.Context, id int64) (bool, error)
	CodeExists(ctx context.Context, orgID int64, code string, excludeID int64) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, organization_id, code, name, type, parent_id, level, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.OrganizationID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.Level, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) List(ctx context.Context, orgID int64) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE organization_id=$1 ORDER BY code`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) Paginate(ctx context.Context, orgID int64, page, perPage int, sort, dir string) ([]Account, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE organization_id=$1`, orgID).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := sortColumn(sort) + " " + sortDirection(dir)
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE organization_id=$1 ORDER BY `+order+` LIMIT $2 OFFSET $3`,
		orgID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, a)
	}
	return accounts, total, rows.Err()
}

func sortColumn(sort string) string {
	switch sort {
	case "name", "type", "code":
		return sort
	default:
		return "code"
	}
}

func sortDirection(dir string) string {
	if dir == "desc" {
		return "DESC"
	}
	return "ASC"
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE organization_id=$1 AND id=$2`, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) GetByCode(ctx context.Context, orgID int64, code string) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE organization_id=$1 AND code=$2`, orgID, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) Create(ctx context.Context, a Account) (Account, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO accounts (organization_id, code, name, type, parent_id, level, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at, updated_at`,
		a.OrganizationID, a.Code, a.Name, a.Type, a.ParentID, a.Level, a.IsActive).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueCodeViolation(err) {
			return Account{}, ErrDuplicateCode
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) Update(ctx context.Context, a Account) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET code=$3, name=$4, type=$5, parent_id=$6, level=$7, is_active=$8, updated_at=NOW()
WHERE organization_id=$1 AND id=$2`,
		a.OrganizationID, a.ID, a.Code, a.Name, a.Type, a.ParentID, a.Level, a.IsActive)
	if err != nil {
		if isUniqueCodeViolation(err) {
			return ErrDuplicateCode
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, orgID, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE organization_id=$1 AND id=$2`, orgID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert inserts or updates an account keyed by (organization_id, code).
// Used by the accounts CSV import.
func (r *repository) Upsert(ctx context.Context, a Account) (Account, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO accounts (organization_id, code, name, type, parent_id, level, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (organization_id, code)
DO UPDATE SET name=EXCLUDED.name, type=EXCLUDED.type, parent_id=EXCLUDED.parent_id, level=EXCLUDED.level, is_active=EXCLUDED.is_active, updated_at=NOW()
RETURNING id, created_at, updated_at`,
		a.OrganizationID, a.Code, a.Name, a.Type, a.ParentID, a.Level, a.IsActive).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

func (r *repository) HasChildren(ctx context.Context, orgID, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE organization_id=$1 AND parent_id=$2)`, orgID, id).Scan(&exists)
	return exists, err
}

// IsReferenced reports whether any journal line, AR invoice line or AP bill
// line points at the account.
func (r *repository) IsReferenced(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_lines WHERE account_id=$1)
OR EXISTS (SELECT 1 FROM ar_invoice_lines WHERE account_id=$1)
OR EXISTS (SELECT 1 FROM ap_bill_lines WHERE account_id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *repository) CodeExists(ctx context.Context, orgID int64, code string, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE organization_id=$1 AND code=$2 AND id<>$3)`,
		orgID, code, excludeID).Scan(&exists)
	return exists, err
}

func isUniqueCodeViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_accounts_org_code"
}
