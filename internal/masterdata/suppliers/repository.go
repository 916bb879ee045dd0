package suppliers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository encapsulates DB operations for supplier contacts, scoped to
// one organization.
type Repository interface {
	List(ctx context.Context, orgID int64, search string, page, perPage int, sort, dir string) ([]Supplier, int, error)
	Get(ctx context.Context, orgID, id int64) (Supplier, error)
	Create(ctx context.Context, s Supplier) (Supplier, error)
	Update(ctx context.Context, s Supplier) error
	Delete(ctx context.Context, orgID, id int64) error
	IsReferenced(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const supplierColumns = `id, organization_id, name, tin, address, email, is_active, created_at, updated_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.OrganizationID, &s.Name, &s.TIN, &s.Address, &s.Email, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *repository) List(ctx context.Context, orgID int64, search string, page, perPage int, sort, dir string) ([]Supplier, int, error) {
	pattern := "%" + search + "%"
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers WHERE organization_id=$1 AND (name ILIKE $2 OR tin ILIKE $2)`,
		orgID, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := sortColumn(sort) + " " + sortDirection(dir)
	rows, err := r.db.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers
WHERE organization_id=$1 AND (name ILIKE $2 OR tin ILIKE $2) ORDER BY `+order+` LIMIT $3 OFFSET $4`,
		orgID, pattern, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, s)
	}
	return list, total, rows.Err()
}

func sortColumn(sort string) string {
	switch sort {
	case "name", "tin", "created_at":
		return sort
	default:
		return "name"
	}
}

func sortDirection(dir string) string {
	if dir == "desc" {
		return "DESC"
	}
	return "ASC"
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (Supplier, error) {
	s, err := scanSupplier(r.db.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE organization_id=$1 AND id=$2`, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, ErrNotFound
		}
		return Supplier{}, err
	}
	return s, nil
}

func (r *repository) Create(ctx context.Context, s Supplier) (Supplier, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO suppliers (organization_id, name, tin, address, email, is_active)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at, updated_at`,
		s.OrganizationID, s.Name, s.TIN, s.Address, s.Email, s.IsActive).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Supplier{}, err
	}
	return s, nil
}

func (r *repository) Update(ctx context.Context, s Supplier) error {
	cmd, err := r.db.Exec(ctx, `UPDATE suppliers SET name=$3, tin=$4, address=$5, email=$6, is_active=$7, updated_at=NOW()
WHERE organization_id=$1 AND id=$2`,
		s.OrganizationID, s.ID, s.Name, s.TIN, s.Address, s.Email, s.IsActive)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, orgID, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM suppliers WHERE organization_id=$1 AND id=$2`, orgID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IsReferenced reports whether any AP bill points at the supplier.
func (r *repository) IsReferenced(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ap_bills WHERE supplier_id=$1)`, id).Scan(&exists)
	return exists, err
}
