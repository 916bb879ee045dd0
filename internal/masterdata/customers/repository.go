package customers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository encapsulates DB operations for customer contacts. All
// operations are scoped to one organization.
type Repository interface {
	List(ctx context.Context, orgID int64, search string, page, perPage int, sort, dir string) ([]Customer, int, error)
	Get(ctx context.Context, orgID, id int64) (Customer, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, c Customer) error
	Delete(ctx context.Context, orgID, id int64) error
	IsReferenced(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const customerColumns = `id, organization_id, name, tin, address, email, is_active, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.TIN, &c.Address, &c.Email, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *repository) List(ctx context.Context, orgID int64, search string, page, perPage int, sort, dir string) ([]Customer, int, error) {
	pattern := "%" + search + "%"
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE organization_id=$1 AND (name ILIKE $2 OR tin ILIKE $2)`,
		orgID, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := sortColumn(sort) + " " + sortDirection(dir)
	rows, err := r.db.Query(ctx, `SELECT `+customerColumns+` FROM customers
WHERE organization_id=$1 AND (name ILIKE $2 OR tin ILIKE $2) ORDER BY `+order+` LIMIT $3 OFFSET $4`,
		orgID, pattern, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, c)
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

func (r *repository) Get(ctx context.Context, orgID, id int64) (Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE organization_id=$1 AND id=$2`, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, c Customer) (Customer, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO customers (organization_id, name, tin, address, email, is_active)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at, updated_at`,
		c.OrganizationID, c.Name, c.TIN, c.Address, c.Email, c.IsActive).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Customer{}, err
	}
	return c, nil
}

func (r *repository) Update(ctx context.Context, c Customer) error {
	cmd, err := r.db.Exec(ctx, `UPDATE customers SET name=$3, tin=$4, address=$5, email=$6, is_active=$7, updated_at=NOW()
WHERE organization_id=$1 AND id=$2`,
		c.OrganizationID, c.ID, c.Name, c.TIN, c.Address, c.Email, c.IsActive)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, orgID, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM customers WHERE organization_id=$1 AND id=$2`, orgID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IsReferenced reports whether any AR invoice points at the customer.
func (r *repository) IsReferenced(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ar_invoices WHERE customer_id=$1)`, id).Scan(&exists)
	return exists, err
}
