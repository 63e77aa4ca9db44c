package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"
	"citizen-kiosk/internal/data/repository/memory"
	"citizen-kiosk/internal/gateway"
	"citizen-kiosk/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	testDemoPhone = "9876543210"
	testDemoCode  = "123456"
	testKeySecret = "test_key_secret"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// skewClock follows the wall clock shifted by an offset. Token checks use wall
// time, so session tests shift instead of freezing.
type skewClock struct {
	mu     sync.Mutex
	offset time.Duration
}

func (c *skewClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

func (c *skewClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

// captureSMS remembers the last code sent to each phone
type captureSMS struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *captureSMS) SendOTP(_ context.Context, phone, code string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codes == nil {
		s.codes = make(map[string]string)
	}
	s.codes[phone] = code
	return nil
}

func (s *captureSMS) Last(phone string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[phone]
}

type testEnv struct {
	repo     *repository.Repository
	users    *memory.UserRepository
	sessions *memory.SessionRepository
	bills    *memory.BillRepository
	payments *memory.PaymentRepository
	orders   *memory.OrderRepository
	receipts *memory.ReceiptRepository
	audits   *memory.AuditRepository
	sms      *captureSMS
	clock    *skewClock
	config   *utils.Config
	service  *Service
}

func testConfig() *utils.Config {
	return &utils.Config{
		App: utils.AppConfig{Name: "citizen-kiosk-test"},
		JWT: utils.JWTConfig{
			Secret:        "test-jwt-secret",
			ExpiryMinutes: 5,
			CookieName:    "access_token",
		},
		OTP: utils.OTPConfig{
			ExpiryMinutes: 5,
			HashCost:      4,
			Demo: utils.DemoOTPConfig{
				Enabled: true,
				Phone:   testDemoPhone,
				Code:    testDemoCode,
			},
		},
		RateLimit: utils.RateLimitConfig{
			OTPLimit:           3,
			OTPWindowMinutes:   10,
			LoginLimit:         5,
			LoginWindowMinutes: 15,
		},
		Payment: utils.PaymentConfig{
			KeyID:            "rzp_test_key",
			KeySecret:        testKeySecret,
			Currency:         "INR",
			ReceiptMaxPrints: 1,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, testConfig())
}

func newTestEnvWithConfig(t *testing.T, config *utils.Config) *testEnv {
	t.Helper()

	env := &testEnv{
		users:    memory.NewUserRepository(),
		sessions: memory.NewSessionRepository(),
		bills:    memory.NewBillRepository(),
		payments: memory.NewPaymentRepository(),
		orders:   memory.NewOrderRepository(),
		receipts: memory.NewReceiptRepository(),
		audits:   memory.NewAuditRepository(),
		sms:      &captureSMS{},
		clock:    &skewClock{},
		config:   config,
	}
	env.repo = &repository.Repository{
		User:      env.users,
		Session:   env.sessions,
		Bill:      env.bills,
		Payment:   env.payments,
		Order:     env.orders,
		Receipt:   env.receipts,
		Audit:     env.audits,
		OTP:       memory.NewOTPStore(),
		RateLimit: memory.NewRateLimitStore(),
	}
	env.service = NewService(env.repo, Deps{
		Gateway: gateway.NewSandboxGateway(config.Payment.KeyID),
		SMS:     env.sms,
		Now:     env.clock.Now,
	}, config, zap.NewNop())

	return env
}

func (e *testEnv) addBill(dept entity.Department, account string, amount string, status entity.BillStatus) *entity.Bill {
	now := time.Now()
	bill := &entity.Bill{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Department:    dept,
		AccountNumber: account,
		Amount:        decimal.RequireFromString(amount),
		Status:        status,
		BillingDate:   now.AddDate(0, 0, -10),
		DueDate:       now.AddDate(0, 0, 20),
	}
	e.bills.Add(bill)
	return bill
}

func (e *testEnv) bill(t *testing.T, bill *entity.Bill) *entity.Bill {
	t.Helper()
	found, err := e.bills.FindByID(context.Background(), bill.Department, bill.ID)
	if err != nil || found == nil {
		t.Fatalf("bill %s missing: %v", bill.ID, err)
	}
	return found
}

func (e *testEnv) successfulPayments(billID uuid.UUID) int {
	count := 0
	for _, p := range e.payments.All() {
		if p.BillID == billID && p.Status == entity.PaymentStatusSuccess {
			count++
		}
	}
	return count
}

// openOrder records the gateway order a kiosk would have created for the bill.
func (e *testEnv) openOrder(bill *entity.Bill, orderID string) {
	if existing, _ := e.orders.FindByGatewayOrderID(context.Background(), orderID); existing != nil {
		return
	}
	err := e.orders.Create(context.Background(), &entity.PaymentOrder{
		GatewayOrderID: orderID,
		Department:     bill.Department,
		BillID:         bill.ID,
		AccountNumber:  bill.AccountNumber,
		UserID:         uuid.New(),
		Amount:         bill.Amount,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		panic(err)
	}
}

func sign(orderID, paymentID string) string {
	return NewHMACSignatureVerifier(testKeySecret).Sign(orderID, paymentID)
}

func kioskIdentity() utils.Identity {
	return utils.Identity{
		UserID:      uuid.New(),
		PhoneNumber: "9000000001",
		Role:        string(entity.RoleKioskUser),
		SessionID:   uuid.New(),
	}
}
