package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"citizen-kiosk/internal/adaptor"
	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"
	"citizen-kiosk/internal/data/repository/memory"
	"citizen-kiosk/internal/gateway"
	"citizen-kiosk/internal/usecase"
	"citizen-kiosk/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	demoPhone = "9876543210"
	demoCode  = "123456"
	keySecret = "wire_test_secret"
)

type testApp struct {
	router *chi.Mux
	bills  *memory.BillRepository
}

func newTestApp(t *testing.T, checks map[string]adaptor.HealthCheck) *testApp {
	t.Helper()

	config := &utils.Config{
		App: utils.AppConfig{Name: "citizen-kiosk-test", AllowedOrigins: []string{"http://localhost:5173"}},
		JWT: utils.JWTConfig{Secret: "wire-jwt-secret", ExpiryMinutes: 5, CookieName: "access_token"},
		OTP: utils.OTPConfig{
			ExpiryMinutes: 5,
			HashCost:      4,
			Demo:          utils.DemoOTPConfig{Enabled: true, Phone: demoPhone, Code: demoCode},
		},
		RateLimit: utils.RateLimitConfig{OTPLimit: 3, OTPWindowMinutes: 10, LoginLimit: 5, LoginWindowMinutes: 15},
		Payment:   utils.PaymentConfig{KeyID: "rzp_test", KeySecret: keySecret, Currency: "INR", ReceiptMaxPrints: 1},
	}

	bills := memory.NewBillRepository()
	repo := &repository.Repository{
		User:      memory.NewUserRepository(),
		Session:   memory.NewSessionRepository(),
		Bill:      bills,
		Payment:   memory.NewPaymentRepository(),
		Order:     memory.NewOrderRepository(),
		Receipt:   memory.NewReceiptRepository(),
		Audit:     memory.NewAuditRepository(),
		OTP:       memory.NewOTPStore(),
		RateLimit: memory.NewRateLimitStore(),
	}
	service := usecase.NewService(repo, usecase.Deps{Gateway: gateway.NewSandboxGateway("rzp_test")}, config, zap.NewNop())

	if checks == nil {
		checks = map[string]adaptor.HealthCheck{"postgres": func(context.Context) error { return nil }}
	}
	app := Wiring(service, checks, config, zap.NewNop())

	return &testApp{router: app.Router, bills: bills}
}

func (a *testApp) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if raw, ok := body.([]byte); ok {
		reader = bytes.NewReader(raw)
	} else if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func (a *testApp) login(t *testing.T) *http.Cookie {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/auth/send-otp", map[string]string{"phone": demoPhone}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/auth/verify-otp", map[string]string{"phone": demoPhone, "otp": demoCode}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == "access_token" {
			return c
		}
	}
	t.Fatal("access_token cookie not set")
	return nil
}

func (a *testApp) addBill(account, amount string) *entity.Bill {
	now := time.Now()
	bill := &entity.Bill{
		Base:          entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Department:    entity.DepartmentElectricity,
		AccountNumber: account,
		Amount:        decimal.RequireFromString(amount),
		Status:        entity.BillStatusUnpaid,
		BillingDate:   now.AddDate(0, 0, -5),
		DueDate:       now.AddDate(0, 0, 25),
	}
	a.bills.Add(bill)
	return bill
}

func TestRoutes_LoginFlow(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(t, http.MethodPost, "/api/auth/send-otp", map[string]string{"phone": demoPhone}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, demoCode, data["otp"])
	assert.Equal(t, "5 minutes", data["expiresIn"])

	rec = app.do(t, http.MethodPost, "/api/auth/verify-otp", map[string]string{"phone": demoPhone, "otp": demoCode}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, "access_token", cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)

	user := decodeBody(t, rec)["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "KIOSK_USER", user["role"])

	rec = app.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, demoPhone, me["phoneNumber"])

	rec = app.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)

	rec = app.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoutes_AuthErrors(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(t, http.MethodPost, "/api/auth/verify-otp", map[string]string{"phone": "9000000001", "otp": "000000"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "otp_not_found", decodeBody(t, rec)["reason"])

	rec = app.do(t, http.MethodPost, "/api/auth/send-otp", []byte(`{bad json`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/auth/send-otp", map[string]string{"phone": "12"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["errors"], "Phone")

	for _, path := range []string{"/api/auth/me", "/api/bills/ELECTRICITY/ELEC-1", "/api/receipts/" + uuid.NewString()} {
		rec = app.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRoutes_SendOTPRateLimited(t *testing.T) {
	app := newTestApp(t, nil)

	for i := 0; i < 3; i++ {
		rec := app.do(t, http.MethodPost, "/api/auth/send-otp", map[string]string{"phone": "9000000009"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := app.do(t, http.MethodPost, "/api/auth/send-otp", map[string]string{"phone": "9000000009"}, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, strconv.Itoa(1200), rec.Header().Get("Retry-After"))
	assert.Equal(t, float64(1200), decodeBody(t, rec)["data"].(map[string]any)["retry_after"])
}

func TestRoutes_PaymentFlow(t *testing.T) {
	app := newTestApp(t, nil)
	cookie := app.login(t)
	bill := app.addBill("ELEC-1001", "1250.50")

	rec := app.do(t, http.MethodGet, "/api/bills/ELECTRICITY/ELEC-1001?page=1&per_page=5", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decodeBody(t, rec)["data"].(map[string]any)["data"].([]any)
	require.Len(t, listed, 1)

	rec = app.do(t, http.MethodPost, "/api/payments/create-order", map[string]any{
		"amount":        "1250.50",
		"accountNumber": "ELEC-1001",
		"department":    "ELECTRICITY",
		"billId":        bill.ID.String(),
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, float64(125050), order["amount"])
	orderID := order["orderId"].(string)

	verify := map[string]any{
		"orderId":       orderID,
		"paymentId":     "pay_wire",
		"signature":     usecase.NewHMACSignatureVerifier(keySecret).Sign(orderID, "pay_wire"),
		"department":    "ELECTRICITY",
		"accountNumber": "ELEC-1001",
		"billId":        bill.ID.String(),
		"amount":        "1250.50",
	}
	rec = app.do(t, http.MethodPost, "/api/payments/verify", verify, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	settled := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, true, settled["success"])
	receiptID := settled["receiptId"].(string)

	rec = app.do(t, http.MethodPost, "/api/payments/verify", verify, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Bill already paid", decodeBody(t, rec)["message"])

	rec = app.do(t, http.MethodGet, "/api/receipts/"+receiptID, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/receipts/"+receiptID+"/print", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), decodeBody(t, rec)["data"].(map[string]any)["printCount"])

	rec = app.do(t, http.MethodPost, "/api/receipts/"+receiptID+"/print", map[string]bool{"override": true}, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/receipts/"+receiptID+"/print", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/receipts/not-a-uuid", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutes_TamperedSignature(t *testing.T) {
	app := newTestApp(t, nil)
	cookie := app.login(t)
	bill := app.addBill("ELEC-2002", "10.00")

	rec := app.do(t, http.MethodPost, "/api/payments/verify", map[string]any{
		"orderId":       "order_t",
		"paymentId":     "pay_t",
		"signature":     "deadbeef",
		"department":    "ELECTRICITY",
		"accountNumber": "ELEC-2002",
		"billId":        bill.ID.String(),
		"amount":        "10.00",
	}, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_signature", decodeBody(t, rec)["reason"])

	stored, err := app.bills.FindByID(context.Background(), entity.DepartmentElectricity, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BillStatusUnpaid, stored.Status)
}

func TestRoutes_Webhook(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(t, http.MethodPost, "/api/payments/webhook", []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_unknown"}}}}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["data"].(map[string]any)["received"])
}

func TestRoutes_Health(t *testing.T) {
	app := newTestApp(t, nil)
	rec := app.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "up", decodeBody(t, rec)["data"].(map[string]any)["postgres"])

	down := newTestApp(t, map[string]adaptor.HealthCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	rec = down.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "down", decodeBody(t, rec)["data"].(map[string]any)["redis"])
}
