package memory

import (
	"context"
	"sync"
	"time"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"

	"github.com/google/uuid"
)

var _ repository.ReceiptRepository = (*ReceiptRepository)(nil)

type ReceiptRepository struct {
	mu       sync.Mutex
	receipts map[uuid.UUID]entity.Receipt
}

func NewReceiptRepository() *ReceiptRepository {
	return &ReceiptRepository{receipts: make(map[uuid.UUID]entity.Receipt)}
}

// All returns a snapshot of every stored receipt.
func (r *ReceiptRepository) All() []entity.Receipt {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Receipt, 0, len(r.receipts))
	for _, receipt := range r.receipts {
		out = append(out, receipt)
	}
	return out
}

func (r *ReceiptRepository) Create(_ context.Context, receipt *entity.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts[receipt.ID] = *receipt
	return nil
}

func (r *ReceiptRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	receipt, ok := r.receipts[id]
	if !ok {
		return nil, nil
	}
	return &receipt, nil
}

func (r *ReceiptRepository) IncrementPrintCount(_ context.Context, id uuid.UUID, ignoreLimit bool) (*entity.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	receipt, ok := r.receipts[id]
	if !ok || (!ignoreLimit && receipt.PrintCount >= receipt.MaxPrints) {
		return nil, nil
	}
	receipt.PrintCount++
	receipt.UpdatedAt = time.Now()
	r.receipts[id] = receipt
	return &receipt, nil
}
