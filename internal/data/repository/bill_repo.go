package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrBillStateChanged is returned when a guarded bill transition matched no row.
var ErrBillStateChanged = errors.New("bill state changed concurrently")

type BillRepository interface {
	FindByID(ctx context.Context, dept entity.Department, id uuid.UUID) (*entity.Bill, error)
	FindLatestUnpaid(ctx context.Context, dept entity.Department, accountNumber string) (*entity.Bill, error)
	FindByAccount(ctx context.Context, dept entity.Department, accountNumber string, limit, offset int) ([]*entity.Bill, error)
	CountByAccount(ctx context.Context, dept entity.Department, accountNumber string) (int64, error)
	MarkPending(ctx context.Context, dept entity.Department, id uuid.UUID) (bool, error)
	MarkPaid(ctx context.Context, dept entity.Department, id uuid.UUID, paidAt time.Time) error
	RevertToUnpaid(ctx context.Context, dept entity.Department, id uuid.UUID) error
}

type billRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBillRepository(db database.PgxIface, log *zap.Logger) BillRepository {
	return &billRepository{
		db:  db,
		log: log.With(zap.String("repository", "bill")),
	}
}

const billColumns = `id, account_number, amount, status, billing_date, due_date, paid_date, created_at, updated_at`

func (r *billRepository) FindByID(ctx context.Context, dept entity.Department, id uuid.UUID) (*entity.Bill, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, billColumns, dept.BillsTable())

	bill, err := scanBill(r.db.QueryRow(ctx, query, id), dept)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find bill by ID",
			zap.Error(err),
			zap.String("department", string(dept)),
			zap.String("bill_id", id.String()),
		)
		return nil, fmt.Errorf("find %s bill %s: %w", dept, id.String(), err)
	}

	return bill, nil
}

// FindLatestUnpaid returns the most recent UNPAID bill for the account, or nil.
func (r *billRepository) FindLatestUnpaid(ctx context.Context, dept entity.Department, accountNumber string) (*entity.Bill, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE account_number = $1 AND status = 'UNPAID'
		ORDER BY billing_date DESC
		LIMIT 1
	`, billColumns, dept.BillsTable())

	bill, err := scanBill(r.db.QueryRow(ctx, query, accountNumber), dept)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find unpaid bill",
			zap.Error(err),
			zap.String("department", string(dept)),
			zap.String("account_number", accountNumber),
		)
		return nil, fmt.Errorf("find unpaid %s bill for %s: %w", dept, accountNumber, err)
	}

	return bill, nil
}

func (r *billRepository) FindByAccount(ctx context.Context, dept entity.Department, accountNumber string, limit, offset int) ([]*entity.Bill, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE account_number = $1
		ORDER BY billing_date DESC
		LIMIT $2 OFFSET $3
	`, billColumns, dept.BillsTable())

	rows, err := r.db.Query(ctx, query, accountNumber, limit, offset)
	if err != nil {
		r.log.Error("Failed to list bills",
			zap.Error(err),
			zap.String("department", string(dept)),
			zap.String("account_number", accountNumber),
		)
		return nil, fmt.Errorf("list %s bills for %s: %w", dept, accountNumber, err)
	}
	defer rows.Close()

	var bills []*entity.Bill
	for rows.Next() {
		bill, err := scanBill(rows, dept)
		if err != nil {
			r.log.Error("Failed to scan bill row", zap.Error(err))
			return nil, fmt.Errorf("scan bill row: %w", err)
		}
		bills = append(bills, bill)
	}

	if err := rows.Err(); err != nil {
		r.log.Error("Rows iteration error", zap.Error(err))
		return nil, fmt.Errorf("iterate bill rows: %w", err)
	}

	return bills, nil
}

func (r *billRepository) CountByAccount(ctx context.Context, dept entity.Department, accountNumber string) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE account_number = $1`, dept.BillsTable())

	var count int64
	if err := r.db.QueryRow(ctx, query, accountNumber).Scan(&count); err != nil {
		r.log.Error("Failed to count bills",
			zap.Error(err),
			zap.String("department", string(dept)),
		)
		return 0, fmt.Errorf("count %s bills for %s: %w", dept, accountNumber, err)
	}

	return count, nil
}

// MarkPending moves UNPAID to PENDING_PAYMENT. It reports false when another
// caller already took the bill.
func (r *billRepository) MarkPending(ctx context.Context, dept entity.Department, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'PENDING_PAYMENT', updated_at = $2
		WHERE id = $1 AND status = 'UNPAID'
	`, dept.BillsTable())

	result, err := r.db.Exec(ctx, query, id, time.Now())
	if err != nil {
		r.log.Error("Failed to lock bill",
			zap.Error(err),
			zap.String("department", string(dept)),
			zap.String("bill_id", id.String()),
		)
		return false, fmt.Errorf("mark %s bill %s pending: %w", dept, id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *billRepository) MarkPaid(ctx context.Context, dept entity.Department, id uuid.UUID, paidAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'PAID', paid_date = $2, updated_at = $2
		WHERE id = $1 AND status = 'PENDING_PAYMENT'
	`, dept.BillsTable())

	result, err := r.db.Exec(ctx, query, id, paidAt)
	if err != nil {
		r.log.Error("Failed to mark bill paid",
			zap.Error(err),
			zap.String("department", string(dept)),
			zap.String("bill_id", id.String()),
		)
		return fmt.Errorf("mark %s bill %s paid: %w", dept, id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("mark %s bill %s paid: %w", dept, id.String(), ErrBillStateChanged)
	}

	return nil
}

// RevertToUnpaid releases a bill held by a failed settlement, whether it is
// still PENDING_PAYMENT or already PAID. A bill backed by a SUCCESS payment is
// left alone.
func (r *billRepository) RevertToUnpaid(ctx context.Context, dept entity.Department, id uuid.UUID) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'UNPAID', paid_date = NULL, updated_at = $2
		WHERE id = $1
		  AND status IN ('PENDING_PAYMENT', 'PAID')
		  AND NOT EXISTS (SELECT 1 FROM %s WHERE bill_id = $1 AND status = 'SUCCESS')
	`, dept.BillsTable(), dept.PaymentsTable())

	if _, err := r.db.Exec(ctx, query, id, time.Now()); err != nil {
		r.log.Error("Failed to revert bill",
			zap.Error(err),
			zap.String("department", string(dept)),
			zap.String("bill_id", id.String()),
		)
		return fmt.Errorf("revert %s bill %s: %w", dept, id.String(), err)
	}

	return nil
}

func scanBill(row pgx.Row, dept entity.Department) (*entity.Bill, error) {
	bill := entity.Bill{Department: dept}
	err := row.Scan(
		&bill.ID,
		&bill.AccountNumber,
		&bill.Amount,
		&bill.Status,
		&bill.BillingDate,
		&bill.DueDate,
		&bill.PaidDate,
		&bill.CreatedAt,
		&bill.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &bill, nil
}
