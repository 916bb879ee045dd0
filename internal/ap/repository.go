package ap

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openbooks-app/openbooks/internal/ledger"
	"github.com/openbooks-app/openbooks/internal/platform/db"
)

// ErrBillNotFound indicates a missing bill in the organization.
var ErrBillNotFound = errors.New("ap: bill not found")

// Repository encapsulates DB operations for AP bills.
type Repository interface {
	List(ctx context.Context, orgID int64, filter ListFilter, page, perPage int) ([]Bill, int, error)
	Get(ctx context.Context, orgID, id int64) (Bill, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes bill writes plus the ledger posting surface in the
// same transaction, so posting the generated journal entry and flipping the
// bill status commit together.
type TxRepository interface {
	ledger.TxRepository
	GetBill(ctx context.Context, orgID, id int64) (Bill, error)
	InsertBill(ctx context.Context, b Bill) (Bill, error)
	UpdateBill(ctx context.Context, b Bill) error
	InsertBillLines(ctx context.Context, billID int64, lines []BillLine) error
	DeleteBillLines(ctx context.Context, billID int64) error
	DeleteBill(ctx context.Context, orgID, id int64) error
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

const billColumns = `id, organization_id, supplier_id, bill_no, bill_date, due_date, currency, exchange_rate, status, subtotal, total, created_at, updated_at`

func scanBill(row pgx.Row) (Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.OrganizationID, &b.SupplierID, &b.BillNo, &b.BillDate, &b.DueDate,
		&b.Currency, &b.ExchangeRate, &b.Status, &b.Subtotal, &b.Total, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (r *repository) List(ctx context.Context, orgID int64, filter ListFilter, page, perPage int) ([]Bill, int, error) {
	where := ` WHERE organization_id=$1`
	args := []any{orgID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += ` AND status=$` + strconv.Itoa(len(args))
	}
	if filter.SupplierID != 0 {
		args = append(args, filter.SupplierID)
		where += ` AND supplier_id=$` + strconv.Itoa(len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		where += ` AND bill_date>=$` + strconv.Itoa(len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		where += ` AND bill_date<=$` + strconv.Itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += ` AND bill_no ILIKE $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ap_bills`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, perPage, (page-1)*perPage)
	query := `SELECT ` + billColumns + ` FROM ap_bills` + where +
		` ORDER BY bill_date DESC, id DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var bills []Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		bills = append(bills, b)
	}
	return bills, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (Bill, error) {
	b, err := scanBill(r.db.QueryRow(ctx, `SELECT `+billColumns+` FROM ap_bills WHERE organization_id=$1 AND id=$2`, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bill{}, ErrBillNotFound
		}
		return Bill{}, err
	}
	b.Lines, err = queryLines(ctx, r.db, b.ID)
	return b, err
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

func (r *txRepository) GetBill(ctx context.Context, orgID, id int64) (Bill, error) {
	b, err := scanBill(r.tx.QueryRow(ctx, `SELECT `+billColumns+` FROM ap_bills WHERE organization_id=$1 AND id=$2`, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bill{}, ErrBillNotFound
		}
		return Bill{}, err
	}
	b.Lines, err = queryLines(ctx, r.tx, b.ID)
	return b, err
}

func (r *txRepository) InsertBill(ctx context.Context, b Bill) (Bill, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO ap_bills (organization_id, supplier_id, bill_no, bill_date, due_date, currency, exchange_rate, status, subtotal, total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id, created_at, updated_at`,
		b.OrganizationID, b.SupplierID, b.BillNo, b.BillDate, b.DueDate, b.Currency, b.ExchangeRate, b.Status, b.Subtotal, b.Total).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Bill{}, err
	}
	return b, nil
}

func (r *txRepository) UpdateBill(ctx context.Context, b Bill) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE ap_bills SET supplier_id=$3, bill_no=$4, bill_date=$5, due_date=$6, currency=$7, exchange_rate=$8, subtotal=$9, total=$10, updated_at=NOW()
WHERE organization_id=$1 AND id=$2`,
		b.OrganizationID, b.ID, b.SupplierID, b.BillNo, b.BillDate, b.DueDate, b.Currency, b.ExchangeRate, b.Subtotal, b.Total)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrBillNotFound
	}
	return nil
}

func (r *txRepository) InsertBillLines(ctx context.Context, billID int64, lines []BillLine) error {
	for i := range lines {
		err := r.tx.QueryRow(ctx, `INSERT INTO ap_bill_lines (ap_bill_id, account_id, description, qty, unit_price, amount, line_no)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			billID, lines[i].AccountID, lines[i].Description, lines[i].Qty, lines[i].UnitPrice, lines[i].Amount, lines[i].LineNo).
			Scan(&lines[i].ID)
		if err != nil {
			return err
		}
		lines[i].BillID = billID
	}
	return nil
}

func (r *txRepository) DeleteBillLines(ctx context.Context, billID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM ap_bill_lines WHERE ap_bill_id=$1`, billID)
	return err
}

func (r *txRepository) DeleteBill(ctx context.Context, orgID, id int64) error {
	if err := r.DeleteBillLines(ctx, id); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM ap_bills WHERE organization_id=$1 AND id=$2`, orgID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrBillNotFound
	}
	return nil
}

func (r *txRepository) ClaimDraft(ctx context.Context, orgID, id int64) (bool, error) {
	cmd, err := r.tx.Exec(ctx, `UPDATE ap_bills SET status=$3, updated_at=NOW() WHERE organization_id=$1 AND id=$2 AND status=$4`,
		orgID, id, StatusPosted, StatusDraft)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q queryer, billID int64) ([]BillLine, error) {
	rows, err := q.Query(ctx, `SELECT id, ap_bill_id, account_id, description, qty, unit_price, amount, line_no
FROM ap_bill_lines WHERE ap_bill_id=$1 ORDER BY line_no`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []BillLine
	for rows.Next() {
		var l BillLine
		if err := rows.Scan(&l.ID, &l.BillID, &l.AccountID, &l.Description, &l.Qty, &l.UnitPrice, &l.Amount, &l.LineNo); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
