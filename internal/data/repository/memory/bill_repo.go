package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"

	"github.com/google/uuid"
)

var _ repository.BillRepository = (*BillRepository)(nil)

type BillRepository struct {
	mu    sync.Mutex
	bills map[uuid.UUID]entity.Bill
}

func NewBillRepository() *BillRepository {
	return &BillRepository{bills: make(map[uuid.UUID]entity.Bill)}
}

// Add stores a bill as-is.
func (r *BillRepository) Add(bill *entity.Bill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bills[bill.ID] = *bill
}

func (r *BillRepository) FindByID(_ context.Context, dept entity.Department, id uuid.UUID) (*entity.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bill, ok := r.bills[id]
	if !ok || bill.Department != dept {
		return nil, nil
	}
	return &bill, nil
}

func (r *BillRepository) FindLatestUnpaid(_ context.Context, dept entity.Department, accountNumber string) (*entity.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.Bill
	for _, bill := range r.bills {
		if bill.Department != dept || bill.AccountNumber != accountNumber || bill.Status != entity.BillStatusUnpaid {
			continue
		}
		if latest == nil || bill.BillingDate.After(latest.BillingDate) {
			b := bill
			latest = &b
		}
	}
	return latest, nil
}

func (r *BillRepository) FindByAccount(_ context.Context, dept entity.Department, accountNumber string, limit, offset int) ([]*entity.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var bills []*entity.Bill
	for _, bill := range r.bills {
		if bill.Department == dept && bill.AccountNumber == accountNumber {
			b := bill
			bills = append(bills, &b)
		}
	}
	sort.Slice(bills, func(i, j int) bool {
		return bills[i].BillingDate.After(bills[j].BillingDate)
	})
	if offset >= len(bills) {
		return nil, nil
	}
	end := offset + limit
	if end > len(bills) {
		end = len(bills)
	}
	return bills[offset:end], nil
}

func (r *BillRepository) CountByAccount(_ context.Context, dept entity.Department, accountNumber string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, bill := range r.bills {
		if bill.Department == dept && bill.AccountNumber == accountNumber {
			count++
		}
	}
	return count, nil
}

func (r *BillRepository) MarkPending(_ context.Context, dept entity.Department, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bill, ok := r.bills[id]
	if !ok || bill.Department != dept || bill.Status != entity.BillStatusUnpaid {
		return false, nil
	}
	bill.Status = entity.BillStatusPendingPayment
	bill.UpdatedAt = time.Now()
	r.bills[id] = bill
	return true, nil
}

func (r *BillRepository) MarkPaid(_ context.Context, dept entity.Department, id uuid.UUID, paidAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bill, ok := r.bills[id]
	if !ok || bill.Department != dept || bill.Status != entity.BillStatusPendingPayment {
		return fmt.Errorf("mark %s bill %s paid: %w", dept, id.String(), repository.ErrBillStateChanged)
	}
	bill.Status = entity.BillStatusPaid
	bill.PaidDate = &paidAt
	bill.UpdatedAt = paidAt
	r.bills[id] = bill
	return nil
}

// RevertToUnpaid cannot see payments; callers check for a SUCCESS payment first.
func (r *BillRepository) RevertToUnpaid(_ context.Context, dept entity.Department, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bill, ok := r.bills[id]
	if !ok || bill.Department != dept || bill.Status == entity.BillStatusUnpaid {
		return nil
	}
	bill.Status = entity.BillStatusUnpaid
	bill.PaidDate = nil
	bill.UpdatedAt = time.Now()
	r.bills[id] = bill
	return nil
}
