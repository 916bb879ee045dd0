package ar

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openbooks-app/openbooks/internal/ledger"
	"github.com/openbooks-app/openbooks/internal/platform/db"
)

// ErrInvoiceNotFound indicates a missing invoice in the organization.
var ErrInvoiceNotFound = errors.New("ar: invoice not found")

// Repository encapsulates DB operations for AR invoices.
type Repository interface {
	List(ctx context.Context, orgID int64, filter ListFilter, page, perPage int) ([]Invoice, int, error)
	Get(ctx context.Context, orgID, id int64) (Invoice, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes invoice writes plus the ledger posting surface in the
// same transaction, so posting the generated journal entry and flipping the
// invoice status commit together.
type TxRepository interface {
	ledger.TxRepository
	GetInvoice(ctx context.Context, orgID, id int64) (Invoice, error)
	InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	UpdateInvoice(ctx context.Context, inv Invoice) error
	InsertInvoiceLines(ctx context.Context, invoiceID int64, lines []InvoiceLine) error
	DeleteInvoiceLines(ctx context.Context, invoiceID int64) error
	DeleteInvoice(ctx context.Context, orgID, id int64) error
	// ClaimDraft atomically flips status draft -> posted and reports whether
	// this caller won the claim.
	ClaimDraft(ctx context.Context, orgID, id int64) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const invoiceColumns = `id, organization_id, customer_id, invoice_no, invoice_date, due_date, currency, exchange_rate, status, subtotal, total, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.OrganizationID, &inv.CustomerID, &inv.InvoiceNo, &inv.InvoiceDate, &inv.DueDate,
		&inv.Currency, &inv.ExchangeRate, &inv.Status, &inv.Subtotal, &inv.Total, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

func (r *repository) List(ctx context.Context, orgID int64, filter ListFilter, page, perPage int) ([]Invoice, int, error) {
	where := ` WHERE organization_id=$1`
	args := []any{orgID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += ` AND status=$` + strconv.Itoa(len(args))
	}
	if filter.CustomerID != 0 {
		args = append(args, filter.CustomerID)
		where += ` AND customer_id=$` + strconv.Itoa(len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		where += ` AND invoice_date>=$` + strconv.Itoa(len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		where += ` AND invoice_date<=$` + strconv.Itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += ` AND invoice_no ILIKE $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ar_invoices`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, perPage, (page-1)*perPage)
	query := `SELECT ` + invoiceColumns + ` FROM ar_invoices` + where +
		` ORDER BY invoice_date DESC, id DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM ar_invoices WHERE organization_id=$1 AND id=$2`, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	inv.Lines, err = queryLines(ctx, r.db, inv.ID)
	return inv, err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{TxRepository: ledger.NewTxRepository(tx), tx: tx})
	})
}

type txRepository struct {
	ledger.TxRepository
	tx pgx.Tx
}

func (r *txRepository) GetInvoice(ctx context.Context, orgID, id int64) (Invoice, error) {
	inv, err := scanInvoice(r.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM ar_invoices WHERE organization_id=$1 AND id=$2`, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	inv.Lines, err = queryLines(ctx, r.tx, inv.ID)
	return inv, err
}

func (r *txRepository) InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO ar_invoices (organization_id, customer_id, invoice_no, invoice_date, due_date, currency, exchange_rate, status, subtotal, total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id, created_at, updated_at`,
		inv.OrganizationID, inv.CustomerID, inv.InvoiceNo, inv.InvoiceDate, inv.DueDate, inv.Currency, inv.ExchangeRate, inv.Status, inv.Subtotal, inv.Total).
		Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func (r *txRepository) UpdateInvoice(ctx context.Context, inv Invoice) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE ar_invoices SET customer_id=$3, invoice_no=$4, invoice_date=$5, due_date=$6, currency=$7, exchange_rate=$8, subtotal=$9, total=$10, updated_at=NOW()
WHERE organization_id=$1 AND id=$2`,
		inv.OrganizationID, inv.ID, inv.CustomerID, inv.InvoiceNo, inv.InvoiceDate, inv.DueDate, inv.Currency, inv.ExchangeRate, inv.Subtotal, inv.Total)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *txRepository) InsertInvoiceLines(ctx context.Context, invoiceID int64, lines []InvoiceLine) error {
	for i := range lines {
		err := r.tx.QueryRow(ctx, `INSERT INTO ar_invoice_lines (ar_invoice_id, account_id, description, qty, unit_price, amount, line_no)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			invoiceID, lines[i].AccountID, lines[i].Description, lines[i].Qty, lines[i].UnitPrice, lines[i].Amount, lines[i].LineNo).
			Scan(&lines[i].ID)
		if err != nil {
			return err
		}
		lines[i].InvoiceID = invoiceID
	}
	return nil
}

func (r *txRepository) DeleteInvoiceLines(ctx context.Context, invoiceID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM ar_invoice_lines WHERE ar_invoice_id=$1`, invoiceID)
	return err
}

func (r *txRepository) DeleteInvoice(ctx context.Context, orgID, id int64) error {
	if err := r.DeleteInvoiceLines(ctx, id); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM ar_invoices WHERE organization_id=$1 AND id=$2`, orgID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *txRepository) ClaimDraft(ctx context.Context, orgID, id int64) (bool, error) {
	cmd, err := r.tx.Exec(ctx, `UPDATE ar_invoices SET status=$3, updated_at=NOW() WHERE organization_id=$1 AND id=$2 AND status=$4`,
		orgID, id, StatusPosted, StatusDraft)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q queryer, invoiceID int64) ([]InvoiceLine, error) {
	rows, err := q.Query(ctx, `SELECT id, ar_invoice_id, account_id, description, qty, unit_price, amount, line_no
FROM ar_invoice_lines WHERE ar_invoice_id=$1 ORDER BY line_no`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []InvoiceLine
	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.AccountID, &l.Description, &l.Qty, &l.UnitPrice, &l.Amount, &l.LineNo); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
