package repository

import (
	"context"
	"errors"
	"fmt"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// OrderRepository keeps the bill each gateway order was opened for.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.PaymentOrder) error
	FindByGatewayOrderID(ctx context.Context, orderID string) (*entity.PaymentOrder, error)
}

type orderRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewOrderRepository(db database.PgxIface, log *zap.Logger) OrderRepository {
	return &orderRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment_order")),
	}
}

func (r *orderRepository) Create(ctx context.Context, order *entity.PaymentOrder) error {
	query := `
		INSERT INTO payment_orders (gateway_order_id, department, bill_id, account_number,
		                            user_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		order.GatewayOrderID,
		order.Department,
		order.BillID,
		order.AccountNumber,
		order.UserID,
		order.Amount,
		order.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create payment order",
			zap.Error(err),
			zap.String("gateway_order_id", order.GatewayOrderID),
		)
		return fmt.Errorf("create payment order %s: %w", order.GatewayOrderID, err)
	}

	return nil
}

func (r *orderRepository) FindByGatewayOrderID(ctx context.Context, orderID string) (*entity.PaymentOrder, error) {
	query := `
		SELECT gateway_order_id, department, bill_id, account_number, user_id, amount, created_at
		FROM payment_orders
		WHERE gateway_order_id = $1
	`

	var order entity.PaymentOrder
	err := r.db.QueryRow(ctx, query, orderID).Scan(
		&order.GatewayOrderID,
		&order.Department,
		&order.BillID,
		&order.AccountNumber,
		&order.UserID,
		&order.Amount,
		&order.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment order",
			zap.Error(err),
			zap.String("gateway_order_id", orderID),
		)
		return nil, fmt.Errorf("find payment order %s: %w", orderID, err)
	}

	return &order, nil
}
