package usecase

import (
	"time"

	"citizen-kiosk/internal/data/repository"
	"citizen-kiosk/internal/gateway"
	"citizen-kiosk/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Auth       AuthService
	User       UserService
	Bill       BillService
	Payment    PaymentService
	Receipt    ReceiptService
	Settlement SettlementEngine
	Audit      AuditService
}

// Deps are the collaborators built outside the service layer.
type Deps struct {
	Gateway   gateway.PaymentGateway
	Publisher AuditPublisher
	SMS       SMSSender
	// Now is the service clock; nil means time.Now.
	Now func() time.Time
}

func NewService(repo *repository.Repository, deps Deps, config *utils.Config, log *zap.Logger) *Service {
	audit := NewAuditService(repo.Audit, deps.Publisher, deps.Now, log)
	limiter := NewRateLimiter(repo.RateLimit, deps.Now, log)
	otp := NewOTPService(repo.OTP, NewCodeSource(config.OTP.Demo), config.OTP, deps.Now, log)
	tokens := utils.NewTokenManager(config.JWT.Secret, config.JWT.Expiry(), config.App.Name)

	sms := deps.SMS
	if sms == nil {
		sms = NewLogSMSSender(log)
	}

	receipts := NewReceiptService(repo.Receipt, audit, config.Payment.ReceiptMaxPrints, deps.Now, log)
	engine := NewSettlementEngine(
		repo.Bill,
		repo.Payment,
		repo.Order,
		NewHMACSignatureVerifier(config.Payment.KeySecret),
		receipts,
		audit,
		deps.Now,
		log,
	)

	return &Service{
		Auth:       NewAuthService(repo, limiter, otp, sms, audit, tokens, config, deps.Now, log),
		User:       NewUserService(repo.User, log),
		Bill:       NewBillService(repo.Bill, log),
		Payment:    NewPaymentService(repo, deps.Gateway, engine, NewHMACWebhookVerifier(config.Payment.WebhookSecret), audit, config.Payment.Currency, deps.Now, log),
		Receipt:    receipts,
		Settlement: engine,
		Audit:      audit,
	}
}
