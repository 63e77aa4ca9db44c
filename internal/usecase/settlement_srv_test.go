package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"
	"citizen-kiosk/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// settlementRequest signs a payment for the bill under an order opened for it.
func (e *testEnv) settlementRequest(bill *entity.Bill, orderID, paymentID string) SettlementRequest {
	e.openOrder(bill, orderID)
	return SettlementRequest{
		UserID:        uuid.New(),
		Actor:         "9000000001",
		IPAddress:     "10.0.0.7",
		Department:    bill.Department,
		AccountNumber: bill.AccountNumber,
		BillID:        bill.ID,
		Amount:        bill.Amount,
		OrderID:       orderID,
		PaymentID:     paymentID,
		Signature:     sign(orderID, paymentID),
	}
}

func TestSettlement_PaysUnpaidBill(t *testing.T) {
	env := newTestEnv(t)
	bill := env.addBill(entity.DepartmentElectricity, "ELEC-1001", "1250.50", entity.BillStatusUnpaid)
	req := env.settlementRequest(bill, "order_abc", "pay_abc")

	result, err := env.service.Settlement.Settle(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, entity.PaymentStatusSuccess, result.Payment.Status)
	assert.True(t, result.Payment.Amount.Equal(bill.Amount))
	assert.Regexp(t, `^PAY-\d{8}-[0-9A-F]{12}$`, result.Payment.Reference)
	require.NotNil(t, result.Receipt)
	assert.Equal(t, 0, result.Receipt.PrintCount)
	assert.Equal(t, result.Payment.ID, result.Receipt.PaymentID)

	stored := env.bill(t, bill)
	assert.Equal(t, entity.BillStatusPaid, stored.Status)
	assert.NotNil(t, stored.PaidDate)
	assert.Equal(t, 1, env.successfulPayments(bill.ID))
	assert.Contains(t, env.audits.Actions(), entity.AuditPaymentSuccess)

	// Same call again
	_, err = env.service.Settlement.Settle(context.Background(), req)
	appErr := requireAppError(t, err, utils.KindConflict)
	assert.Equal(t, "Bill already paid", appErr.Message)
	assert.Equal(t, 1, env.successfulPayments(bill.ID))
}

func TestSettlement_TamperedSignature(t *testing.T) {
	env := newTestEnv(t)
	bill := env.addBill(entity.DepartmentWater, "WTR-2002", "480.00", entity.BillStatusUnpaid)
	req := env.settlementRequest(bill, "order_def", "pay_def")
	req.Signature = sign("order_def", "pay_other")

	_, err := env.service.Settlement.Settle(context.Background(), req)
	appErr := requireAppError(t, err, utils.KindAuthentication)
	assert.Equal(t, "invalid_signature", appErr.Reason)

	assert.Equal(t, entity.BillStatusUnpaid, env.bill(t, bill).Status)
	assert.Empty(t, env.payments.All())

	entries := env.audits.Entries()
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, entity.AuditPaymentFailed, last.Action)
	assert.Equal(t, entity.SeverityCritical, last.Severity)
}

func TestSettlement_BusinessRuleFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   entity.BillStatus
		mutate   func(req *SettlementRequest)
		wantKind utils.ErrorKind
	}{
		{
			name:     "amount mismatch",
			status:   entity.BillStatusUnpaid,
			mutate:   func(req *SettlementRequest) { req.Amount = decimal.RequireFromString("1.00") },
			wantKind: utils.KindValidation,
		},
		{
			name:     "bill belongs to another account",
			status:   entity.BillStatusUnpaid,
			mutate:   func(req *SettlementRequest) { req.AccountNumber = "GAS-0000" },
			wantKind: utils.KindNotFound,
		},
		{
			name:     "bill already paid",
			status:   entity.BillStatusPaid,
			mutate:   func(req *SettlementRequest) {},
			wantKind: utils.KindConflict,
		},
		{
			name:     "payment in progress",
			status:   entity.BillStatusPendingPayment,
			mutate:   func(req *SettlementRequest) {},
			wantKind: utils.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			bill := env.addBill(entity.DepartmentGas, "GAS-3003", "799.99", tt.status)
			req := env.settlementRequest(bill, "order_x", "pay_x")
			tt.mutate(&req)

			_, err := env.service.Settlement.Settle(context.Background(), req)
			requireAppError(t, err, tt.wantKind)

			assert.Equal(t, tt.status, env.bill(t, bill).Status)
			assert.Empty(t, env.payments.All())
		})
	}
}

func TestSettlement_StaleBillID(t *testing.T) {
	env := newTestEnv(t)
	older := env.addBill(entity.DepartmentMunicipal, "MUN-4004", "300.00", entity.BillStatusUnpaid)
	newer := env.addBill(entity.DepartmentMunicipal, "MUN-4004", "300.00", entity.BillStatusUnpaid)
	newer.BillingDate = older.BillingDate.AddDate(0, 1, 0)
	env.bills.Add(newer)

	req := env.settlementRequest(older, "order_y", "pay_y")
	_, err := env.service.Settlement.Settle(context.Background(), req)
	requireAppError(t, err, utils.KindValidation)

	assert.Equal(t, entity.BillStatusUnpaid, env.bill(t, older).Status)
	assert.Equal(t, entity.BillStatusUnpaid, env.bill(t, newer).Status)
}

func TestSettlement_ConcurrentAttemptsSettleOnce(t *testing.T) {
	env := newTestEnv(t)
	bill := env.addBill(entity.DepartmentTransport, "TRN-5005", "150.00", entity.BillStatusUnpaid)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)

	req := env.settlementRequest(bill, "order_race", "pay_race")
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.service.Settlement.Settle(context.Background(), req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			successes++
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Len(t, failures, workers-1)
	for _, err := range failures {
		kind := utils.ErrorKindOf(err)
		assert.Contains(t, []utils.ErrorKind{utils.KindConflict, utils.KindNotFound}, kind, err.Error())
	}

	assert.Equal(t, entity.BillStatusPaid, env.bill(t, bill).Status)
	assert.Equal(t, 1, env.successfulPayments(bill.ID))
}

// engine builds a settlement engine over the env's stores with swappable bill
// and payment repositories.
func (e *testEnv) engine(bills repository.BillRepository, payments repository.PaymentRepository, now func() time.Time) SettlementEngine {
	receipts := NewReceiptService(e.receipts, e.service.Audit, 1, now, zap.NewNop())
	return NewSettlementEngine(
		bills,
		payments,
		e.orders,
		NewHMACSignatureVerifier(testKeySecret),
		receipts,
		e.service.Audit,
		now,
		zap.NewNop(),
	)
}

// failingMarkPaid lets the bill lock succeed and then fails the PAID transition
type failingMarkPaid struct {
	repository.BillRepository
}

func (f failingMarkPaid) MarkPaid(context.Context, entity.Department, uuid.UUID, time.Time) error {
	return errors.New("connection reset")
}

func TestSettlement_RollsBackOnFailure(t *testing.T) {
	env := newTestEnv(t)
	bill := env.addBill(entity.DepartmentPDS, "PDS-6006", "75.25", entity.BillStatusUnpaid)

	engine := env.engine(failingMarkPaid{env.bills}, env.payments, nil)

	_, err := engine.Settle(context.Background(), env.settlementRequest(bill, "order_z", "pay_z"))
	requireAppError(t, err, utils.KindInfrastructure)

	assert.Equal(t, entity.BillStatusUnpaid, env.bill(t, bill).Status)

	payments := env.payments.All()
	require.Len(t, payments, 1)
	assert.Equal(t, entity.PaymentStatusFailed, payments[0].Status)
	assert.Empty(t, env.receipts.All())
	assert.Contains(t, env.audits.Actions(), entity.AuditPaymentFailed)

	// The reverted bill can still be paid
	_, err = env.service.Settlement.Settle(context.Background(), env.settlementRequest(bill, "order_z2", "pay_z2"))
	require.NoError(t, err)
	assert.Equal(t, entity.BillStatusPaid, env.bill(t, bill).Status)
}

// failingSuccessUpdate lets the bill reach PAID and then fails the SUCCESS transition
type failingSuccessUpdate struct {
	repository.PaymentRepository
}

func (f failingSuccessUpdate) UpdateStatus(ctx context.Context, dept entity.Department, id uuid.UUID, status entity.PaymentStatus) error {
	if status == entity.PaymentStatusSuccess {
		return errors.New("connection reset")
	}
	return f.PaymentRepository.UpdateStatus(ctx, dept, id, status)
}

func TestSettlement_RollsBackPaidBillWhenPaymentUpdateFails(t *testing.T) {
	env := newTestEnv(t)
	bill := env.addBill(entity.DepartmentElectricity, "ELEC-8008", "410.00", entity.BillStatusUnpaid)
	engine := env.engine(env.bills, failingSuccessUpdate{env.payments}, nil)

	_, err := engine.Settle(context.Background(), env.settlementRequest(bill, "order_p", "pay_p"))
	requireAppError(t, err, utils.KindInfrastructure)

	stored := env.bill(t, bill)
	assert.Equal(t, entity.BillStatusUnpaid, stored.Status)
	assert.Nil(t, stored.PaidDate)

	payments := env.payments.All()
	require.Len(t, payments, 1)
	assert.Equal(t, entity.PaymentStatusFailed, payments[0].Status)
	assert.Equal(t, 0, env.successfulPayments(bill.ID))
	assert.Empty(t, env.receipts.All())

	_, err = env.service.Settlement.Settle(context.Background(), env.settlementRequest(bill, "order_p2", "pay_p2"))
	require.NoError(t, err)
	assert.Equal(t, entity.BillStatusPaid, env.bill(t, bill).Status)
	assert.Equal(t, 1, env.successfulPayments(bill.ID))
}

func TestSettlement_GatewayPaymentSettlesOneBill(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	small := env.addBill(entity.DepartmentWater, "WTR-1001", "1.00", entity.BillStatusUnpaid)
	large := env.addBill(entity.DepartmentWater, "WTR-1002", "5000.00", entity.BillStatusUnpaid)
	other := env.addBill(entity.DepartmentElectricity, "ELEC-1003", "5000.00", entity.BillStatusUnpaid)

	req := env.settlementRequest(small, "order_small", "pay_small")
	_, err := env.service.Settlement.Settle(ctx, req)
	require.NoError(t, err)

	for _, target := range []*entity.Bill{large, other} {
		replay := req
		replay.Department = target.Department
		replay.AccountNumber = target.AccountNumber
		replay.BillID = target.ID
		replay.Amount = target.Amount

		_, err = env.service.Settlement.Settle(ctx, replay)
		appErr := requireAppError(t, err, utils.KindConflict)
		assert.Equal(t, "Payment already used", appErr.Message)

		assert.Equal(t, entity.BillStatusUnpaid, env.bill(t, target).Status)
		assert.Equal(t, 0, env.successfulPayments(target.ID))
	}
	assert.Len(t, env.payments.All(), 1)
}

func TestSettlement_OrderMustBeOpenedForBill(t *testing.T) {
	tests := []struct {
		name    string
		orderID string
	}{
		{name: "order opened for another bill", orderID: "order_small"},
		{name: "order never opened", orderID: "order_unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			small := env.addBill(entity.DepartmentGas, "GAS-1001", "1.00", entity.BillStatusUnpaid)
			large := env.addBill(entity.DepartmentGas, "GAS-1002", "5000.00", entity.BillStatusUnpaid)
			env.openOrder(small, "order_small")

			req := SettlementRequest{
				UserID:        uuid.New(),
				Actor:         "9000000001",
				Department:    large.Department,
				AccountNumber: large.AccountNumber,
				BillID:        large.ID,
				Amount:        large.Amount,
				OrderID:       tt.orderID,
				PaymentID:     "pay_small",
				Signature:     sign(tt.orderID, "pay_small"),
			}

			_, err := env.service.Settlement.Settle(context.Background(), req)
			requireAppError(t, err, utils.KindValidation)

			assert.Equal(t, entity.BillStatusUnpaid, env.bill(t, large).Status)
			assert.Empty(t, env.payments.All())
			assert.Contains(t, env.audits.Actions(), entity.AuditPaymentFailed)
		})
	}
}

func TestSettlement_UsesEngineClock(t *testing.T) {
	env := newTestEnv(t)
	clock := newFakeClock()
	bill := env.addBill(entity.DepartmentMunicipal, "MUN-9009", "60.00", entity.BillStatusUnpaid)
	engine := env.engine(env.bills, env.payments, clock.Now)

	result, err := engine.Settle(context.Background(), env.settlementRequest(bill, "order_k", "pay_k"))
	require.NoError(t, err)

	assert.Equal(t, clock.Now(), result.Payment.CreatedAt)
	assert.Regexp(t, `^PAY-20260301-`, result.Payment.Reference)
	require.NotNil(t, result.Receipt)
	assert.Equal(t, clock.Now(), result.Receipt.CreatedAt)

	stored := env.bill(t, bill)
	require.NotNil(t, stored.PaidDate)
	assert.Equal(t, clock.Now(), *stored.PaidDate)
}

func TestSettlement_SurvivesCancelledContext(t *testing.T) {
	env := newTestEnv(t)
	bill := env.addBill(entity.DepartmentElectricity, "ELEC-7007", "99.00", entity.BillStatusUnpaid)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.service.Settlement.Settle(ctx, env.settlementRequest(bill, "order_c", "pay_c"))
	require.NoError(t, err)
	assert.Equal(t, entity.BillStatusPaid, env.bill(t, bill).Status)
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount  string
		want    int64
		wantErr bool
	}{
		{amount: "1250.50", want: 125050},
		{amount: "1", want: 100},
		{amount: "0.01", want: 1},
		{amount: "0", wantErr: true},
		{amount: "-5", wantErr: true},
		{amount: "10.005", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got, err := toMinorUnits(decimal.RequireFromString(tt.amount))
			if tt.wantErr {
				requireAppError(t, err, utils.KindValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
