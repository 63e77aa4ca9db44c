package repository

import (
	"citizen-kiosk/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	User      UserRepository
	Session   SessionRepository
	Bill      BillRepository
	Payment   PaymentRepository
	Order     OrderRepository
	Receipt   ReceiptRepository
	Audit     AuditRepository
	OTP       OTPStore
	RateLimit RateLimitStore
}

// NewRepository wires the Postgres repositories. The OTP and rate-limit stores
// are chosen by the caller (Redis or in-memory).
func NewRepository(db database.PgxIface, otp OTPStore, rateLimit RateLimitStore, log *zap.Logger) *Repository {
	return &Repository{
		User:      NewUserRepository(db, log),
		Session:   NewSessionRepository(db, log),
		Bill:      NewBillRepository(db, log),
		Payment:   NewPaymentRepository(db, log),
		Order:     NewOrderRepository(db, log),
		Receipt:   NewReceiptRepository(db, log),
		Audit:     NewAuditRepository(db, log),
		OTP:       otp,
		RateLimit: rateLimit,
	}
}
