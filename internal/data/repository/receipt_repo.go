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

type ReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.Receipt) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error)
	IncrementPrintCount(ctx context.Context, id uuid.UUID, ignoreLimit bool) (*entity.Receipt, error)
}

type receiptRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReceiptRepository(db database.PgxIface, log *zap.Logger) ReceiptRepository {
	return &receiptRepository{
		db:  db,
		log: log.With(zap.String("repository", "receipt")),
	}
}

const receiptColumns = `id, payment_id, user_id, department, account_number, reference,
	amount, print_count, max_prints, created_at, updated_at`

func (r *receiptRepository) Create(ctx context.Context, receipt *entity.Receipt) error {
	query := `
		INSERT INTO receipts (id, payment_id, user_id, department, account_number, reference,
		                      amount, print_count, max_prints, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		receipt.ID,
		receipt.PaymentID,
		receipt.UserID,
		receipt.Department,
		receipt.AccountNumber,
		receipt.Reference,
		receipt.Amount,
		receipt.PrintCount,
		receipt.MaxPrints,
		receipt.CreatedAt,
		receipt.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create receipt",
			zap.Error(err),
			zap.String("payment_id", receipt.PaymentID.String()),
		)
		return fmt.Errorf("create receipt for payment %s: %w", receipt.PaymentID.String(), err)
	}

	return nil
}

func (r *receiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	query := fmt.Sprintf(`SELECT %s FROM receipts WHERE id = $1`, receiptColumns)

	receipt, err := scanReceipt(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find receipt",
			zap.Error(err),
			zap.String("receipt_id", id.String()),
		)
		return nil, fmt.Errorf("find receipt %s: %w", id.String(), err)
	}

	return receipt, nil
}

// IncrementPrintCount bumps print_count while it is below max_prints, unless
// ignoreLimit is set. A nil receipt means the limit was reached (or the row is gone).
func (r *receiptRepository) IncrementPrintCount(ctx context.Context, id uuid.UUID, ignoreLimit bool) (*entity.Receipt, error) {
	query := fmt.Sprintf(`
		UPDATE receipts
		SET print_count = print_count + 1, updated_at = $3
		WHERE id = $1 AND ($2 OR print_count < max_prints)
		RETURNING %s
	`, receiptColumns)

	receipt, err := scanReceipt(r.db.QueryRow(ctx, query, id, ignoreLimit, time.Now()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to increment print count",
			zap.Error(err),
			zap.String("receipt_id", id.String()),
		)
		return nil, fmt.Errorf("increment print count %s: %w", id.String(), err)
	}

	return receipt, nil
}

func scanReceipt(row pgx.Row) (*entity.Receipt, error) {
	var receipt entity.Receipt
	err := row.Scan(
		&receipt.ID,
		&receipt.PaymentID,
		&receipt.UserID,
		&receipt.Department,
		&receipt.AccountNumber,
		&receipt.Reference,
		&receipt.Amount,
		&receipt.PrintCount,
		&receipt.MaxPrints,
		&receipt.CreatedAt,
		&receipt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}
