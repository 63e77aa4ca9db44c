package memory

import (
	"context"
	"fmt"
	"sync"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"
)

var _ repository.OrderRepository = (*OrderRepository)(nil)

type OrderRepository struct {
	mu     sync.Mutex
	orders map[string]entity.PaymentOrder
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]entity.PaymentOrder)}
}

func (r *OrderRepository) Create(_ context.Context, order *entity.PaymentOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.GatewayOrderID]; ok {
		return fmt.Errorf("payment order %s already exists", order.GatewayOrderID)
	}
	r.orders[order.GatewayOrderID] = *order
	return nil
}

func (r *OrderRepository) FindByGatewayOrderID(_ context.Context, orderID string) (*entity.PaymentOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return nil, nil
	}
	return &order, nil
}
