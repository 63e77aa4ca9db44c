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
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// ErrDuplicateSuccess is returned when a bill, or a gateway payment, already
// backs a SUCCESS payment.
var ErrDuplicateSuccess = errors.New("bill already has a successful payment")

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, dept entity.Department, id uuid.UUID) (*entity.Payment, error)
	FindSuccessfulByBill(ctx context.Context, dept entity.Department, billID uuid.UUID) (*entity.Payment, error)
	FindByGatewayOrderID(ctx context.Context, dept entity.Department, orderID string) (*entity.Payment, error)
	FindSuccessfulByGatewayPayment(ctx context.Context, dept entity.Department, gatewayPaymentID string) (*entity.Payment, error)
	UpdateStatus(ctx context.Context, dept entity.Department, id uuid.UUID, status entity.PaymentStatus) error
	MarkCaptured(ctx context.Context, dept entity.Department, id uuid.UUID, gatewayPaymentID string) (bool, error)
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, user_id, account_number, bill_id, amount, reference, status,
	gateway_order_id, gateway_payment_id, gateway_signature, created_at, updated_at`

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, account_number, bill_id, amount, reference, status,
		                gateway_order_id, gateway_payment_id, gateway_signature, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, payment.Department.PaymentsTable())

	_, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.UserID,
		payment.AccountNumber,
		payment.BillID,
		payment.Amount,
		payment.Reference,
		payment.Status,
		payment.GatewayOrderID,
		payment.GatewayPaymentID,
		payment.GatewaySignature,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("department", string(payment.Department)),
			zap.String("bill_id", payment.BillID.String()),
		)
		return fmt.Errorf("create %s payment: %w", payment.Department, err)
	}

	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, dept entity.Department, id uuid.UUID) (*entity.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, paymentColumns, dept.PaymentsTable())
	return r.findOne(ctx, dept, query, id)
}

func (r *paymentRepository) FindSuccessfulByBill(ctx context.Context, dept entity.Department, billID uuid.UUID) (*entity.Payment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE bill_id = $1 AND status = 'SUCCESS'
		LIMIT 1
	`, paymentColumns, dept.PaymentsTable())
	return r.findOne(ctx, dept, query, billID)
}

func (r *paymentRepository) FindByGatewayOrderID(ctx context.Context, dept entity.Department, orderID string) (*entity.Payment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE gateway_order_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, paymentColumns, dept.PaymentsTable())
	return r.findOne(ctx, dept, query, orderID)
}

func (r *paymentRepository) FindSuccessfulByGatewayPayment(ctx context.Context, dept entity.Department, gatewayPaymentID string) (*entity.Payment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE gateway_payment_id = $1 AND status = 'SUCCESS'
		LIMIT 1
	`, paymentColumns, dept.PaymentsTable())
	return r.findOne(ctx, dept, query, gatewayPaymentID)
}

func (r *paymentRepository) findOne(ctx context.Context, dept entity.Department, query string, arg any) (*entity.Payment, error) {
	payment := entity.Payment{Department: dept}
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&payment.ID,
		&payment.UserID,
		&payment.AccountNumber,
		&payment.BillID,
		&payment.Amount,
		&payment.Reference,
		&payment.Status,
		&payment.GatewayOrderID,
		&payment.GatewayPaymentID,
		&payment.GatewaySignature,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment",
			zap.Error(err),
			zap.String("department", string(dept)),
			zap.Any("key", arg),
		)
		return nil, fmt.Errorf("find %s payment: %w", dept, err)
	}

	return &payment, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, dept entity.Department, id uuid.UUID, status entity.PaymentStatus) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $2, updated_at = $3
		WHERE id = $1
	`, dept.PaymentsTable())

	result, err := r.db.Exec(ctx, query, id, status, time.Now())
	if err != nil {
		r.log.Error("Failed to update payment status",
			zap.Error(err),
			zap.String("department", string(dept)),
			zap.String("payment_id", id.String()),
			zap.String("status", string(status)),
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("update %s payment %s: %w", dept, id.String(), ErrDuplicateSuccess)
		}
		return fmt.Errorf("update %s payment %s: %w", dept, id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s payment %s not found", dept, id.String())
	}

	return nil
}

// MarkCaptured sets an INITIATED payment to SUCCESS from the gateway callback.
// It reports false for any other status; a FAILED attempt stays FAILED.
func (r *paymentRepository) MarkCaptured(ctx context.Context, dept entity.Department, id uuid.UUID, gatewayPaymentID string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'SUCCESS',
		    gateway_payment_id = COALESCE(gateway_payment_id, NULLIF($2, '')),
		    updated_at = $3
		WHERE id = $1 AND status = 'INITIATED'
	`, dept.PaymentsTable())

	result, err := r.db.Exec(ctx, query, id, gatewayPaymentID, time.Now())
	if err != nil {
		r.log.Error("Failed to mark payment captured",
			zap.Error(err),
			zap.String("department", string(dept)),
			zap.String("payment_id", id.String()),
		)
		if isUniqueViolation(err) {
			return false, fmt.Errorf("capture %s payment %s: %w", dept, id.String(), ErrDuplicateSuccess)
		}
		return false, fmt.Errorf("capture %s payment %s: %w", dept, id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
