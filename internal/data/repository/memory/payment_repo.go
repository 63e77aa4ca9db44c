package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"

	"github.com/google/uuid"
)

var _ repository.PaymentRepository = (*PaymentRepository)(nil)

// PaymentRepository mirrors the partial unique indexes on SUCCESS payments.
type PaymentRepository struct {
	mu       sync.Mutex
	payments map[uuid.UUID]entity.Payment
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{payments: make(map[uuid.UUID]entity.Payment)}
}

// All returns a snapshot of every stored payment.
func (r *PaymentRepository) All() []entity.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Payment, 0, len(r.payments))
	for _, p := range r.payments {
		out = append(out, p)
	}
	return out
}

func (r *PaymentRepository) Create(_ context.Context, payment *entity.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if payment.Status == entity.PaymentStatusSuccess && r.hasSuccess(payment.Department, *payment, uuid.Nil) {
		return fmt.Errorf("create %s payment: %w", payment.Department, repository.ErrDuplicateSuccess)
	}
	r.payments[payment.ID] = *payment
	return nil
}

func (r *PaymentRepository) FindByID(_ context.Context, dept entity.Department, id uuid.UUID) (*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[id]
	if !ok || payment.Department != dept {
		return nil, nil
	}
	return &payment, nil
}

func (r *PaymentRepository) FindSuccessfulByBill(_ context.Context, dept entity.Department, billID uuid.UUID) (*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, payment := range r.payments {
		if payment.Department == dept && payment.BillID == billID && payment.Status == entity.PaymentStatusSuccess {
			return &payment, nil
		}
	}
	return nil, nil
}

func (r *PaymentRepository) FindByGatewayOrderID(_ context.Context, dept entity.Department, orderID string) (*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.Payment
	for _, payment := range r.payments {
		if payment.Department != dept || payment.GatewayOrderID != orderID {
			continue
		}
		if latest == nil || payment.CreatedAt.After(latest.CreatedAt) {
			p := payment
			latest = &p
		}
	}
	return latest, nil
}

func (r *PaymentRepository) FindSuccessfulByGatewayPayment(_ context.Context, dept entity.Department, gatewayPaymentID string) (*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, payment := range r.payments {
		if payment.Department == dept && payment.Status == entity.PaymentStatusSuccess &&
			payment.GatewayPaymentID != nil && *payment.GatewayPaymentID == gatewayPaymentID {
			return &payment, nil
		}
	}
	return nil, nil
}

func (r *PaymentRepository) UpdateStatus(_ context.Context, dept entity.Department, id uuid.UUID, status entity.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[id]
	if !ok || payment.Department != dept {
		return fmt.Errorf("%s payment %s not found", dept, id.String())
	}
	if status == entity.PaymentStatusSuccess && r.hasSuccess(dept, payment, id) {
		return fmt.Errorf("update %s payment %s: %w", dept, id.String(), repository.ErrDuplicateSuccess)
	}
	payment.Status = status
	payment.UpdatedAt = time.Now()
	r.payments[id] = payment
	return nil
}

func (r *PaymentRepository) MarkCaptured(_ context.Context, dept entity.Department, id uuid.UUID, gatewayPaymentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[id]
	if !ok || payment.Department != dept || payment.Status != entity.PaymentStatusInitiated {
		return false, nil
	}
	if payment.GatewayPaymentID == nil && gatewayPaymentID != "" {
		payment.GatewayPaymentID = &gatewayPaymentID
	}
	if r.hasSuccess(dept, payment, id) {
		return false, fmt.Errorf("capture %s payment %s: %w", dept, id.String(), repository.ErrDuplicateSuccess)
	}
	payment.Status = entity.PaymentStatusSuccess
	payment.UpdatedAt = time.Now()
	r.payments[id] = payment
	return true, nil
}

// hasSuccess mirrors the partial unique indexes on bill_id and gateway_payment_id.
func (r *PaymentRepository) hasSuccess(dept entity.Department, candidate entity.Payment, except uuid.UUID) bool {
	for id, payment := range r.payments {
		if id == except || payment.Department != dept || payment.Status != entity.PaymentStatusSuccess {
			continue
		}
		if payment.BillID == candidate.BillID {
			return true
		}
		if payment.GatewayPaymentID != nil && candidate.GatewayPaymentID != nil &&
			*payment.GatewayPaymentID == *candidate.GatewayPaymentID {
			return true
		}
	}
	return false
}
