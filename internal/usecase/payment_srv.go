package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"
	"citizen-kiosk/internal/dto/request"
	"citizen-kiosk/internal/dto/response"
	"citizen-kiosk/internal/gateway"
	"citizen-kiosk/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const eventPaymentCaptured = "payment.captured"

type PaymentService interface {
	CreateOrder(ctx context.Context, identity utils.Identity, req *request.CreateOrderRequest, meta request.ClientMeta) (*response.CreateOrderResponse, error)
	VerifyPayment(ctx context.Context, identity utils.Identity, req *request.VerifyPaymentRequest, meta request.ClientMeta) (*response.SettlementResponse, error)
	HandleWebhook(ctx context.Context, body []byte, signature string, meta request.ClientMeta) error
}

type paymentService struct {
	repo     *repository.Repository
	gateway  gateway.PaymentGateway
	engine   SettlementEngine
	webhooks WebhookVerifier
	audit    AuditService
	currency string
	now      func() time.Time
	log      *zap.Logger
}

func NewPaymentService(
	repo *repository.Repository,
	gw gateway.PaymentGateway,
	engine SettlementEngine,
	webhooks WebhookVerifier,
	audit AuditService,
	currency string,
	now func() time.Time,
	log *zap.Logger,
) PaymentService {
	if now == nil {
		now = time.Now
	}
	return &paymentService{
		repo:     repo,
		gateway:  gw,
		engine:   engine,
		webhooks: webhooks,
		audit:    audit,
		currency: currency,
		now:      now,
		log:      log.With(zap.String("service", "payment")),
	}
}

func (s *paymentService) CreateOrder(ctx context.Context, identity utils.Identity, req *request.CreateOrderRequest, meta request.ClientMeta) (*response.CreateOrderResponse, error) {
	// 1. Validate
	if err := utils.Validate(req); err != nil {
		return nil, err
	}

	minor, err := toMinorUnits(req.Amount)
	if err != nil {
		return nil, err
	}

	billID, err := uuid.Parse(req.BillReference())
	if err != nil {
		return nil, utils.NewValidationError("Invalid bill reference", map[string]string{"billId": "Must be a valid UUID"})
	}
	dept := entity.Department(req.Department)

	// 2. Bill must be payable
	bill, err := s.repo.Bill.FindByID(ctx, dept, billID)
	if err != nil {
		return nil, utils.NewInfrastructureError("failed to load bill", err)
	}
	if bill == nil || bill.AccountNumber != req.AccountNumber {
		return nil, utils.NewNotFoundError("Bill not found")
	}
	switch bill.Status {
	case entity.BillStatusPaid:
		return nil, utils.NewConflictError("Bill already paid")
	case entity.BillStatusPendingPayment:
		return nil, utils.NewConflictError("Bill payment already in progress")
	}
	if !req.Amount.Equal(bill.Amount) {
		return nil, utils.NewValidationError("Amount does not match bill",
			map[string]string{"amount": "expected " + bill.Amount.StringFixed(2)})
	}

	// 3. Gateway order
	order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   minor,
		Currency: s.currency,
		Receipt:  utils.GenerateReceiptNumber(string(dept), s.now()),
		Notes: map[string]string{
			"department":    string(dept),
			"accountNumber": req.AccountNumber,
			"billId":        bill.ID.String(),
		},
	})
	if err != nil {
		s.log.Error("Failed to create gateway order", zap.Error(err), zap.String("bill_id", bill.ID.String()))
		return nil, utils.NewInfrastructureError("failed to create payment order", err)
	}

	// 4. Bind the order to this bill for settlement
	if err := s.repo.Order.Create(ctx, &entity.PaymentOrder{
		GatewayOrderID: order.ID,
		Department:     dept,
		BillID:         bill.ID,
		AccountNumber:  bill.AccountNumber,
		UserID:         identity.UserID,
		Amount:         bill.Amount,
		CreatedAt:      s.now(),
	}); err != nil {
		return nil, utils.NewInfrastructureError("failed to create payment order", err)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:    entity.AuditPaymentOrderCreated,
		Actor:     identity.PhoneNumber,
		IPAddress: meta.IPAddress,
		Metadata: map[string]any{
			"department":       string(dept),
			"account_number":   req.AccountNumber,
			"bill_id":          bill.ID.String(),
			"gateway_order_id": order.ID,
			"amount_minor":     minor,
		},
	})

	return &response.CreateOrderResponse{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Receipt:  order.Receipt,
		KeyID:    s.gateway.KeyID(),
	}, nil
}

func (s *paymentService) VerifyPayment(ctx context.Context, identity utils.Identity, req *request.VerifyPaymentRequest, meta request.ClientMeta) (*response.SettlementResponse, error) {
	if err := utils.Validate(req); err != nil {
		return nil, err
	}

	billID, err := uuid.Parse(req.BillID)
	if err != nil {
		return nil, utils.NewValidationError("Invalid bill reference", map[string]string{"billId": "Must be a valid UUID"})
	}

	result, err := s.engine.Settle(ctx, SettlementRequest{
		UserID:        identity.UserID,
		Actor:         identity.PhoneNumber,
		IPAddress:     meta.IPAddress,
		Department:    entity.Department(req.Department),
		AccountNumber: req.AccountNumber,
		BillID:        billID,
		Amount:        req.Amount,
		OrderID:       req.OrderID,
		PaymentID:     req.PaymentID,
		Signature:     req.Signature,
	})
	if err != nil {
		return nil, err
	}

	resp := response.SettlementToResponse(result.Payment, result.Receipt)
	return &resp, nil
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook reconciles a captured payment by gateway order id. Only an
// INITIATED payment is captured; unknown orders and other events are
// acknowledged without change.
func (s *paymentService) HandleWebhook(ctx context.Context, body []byte, signature string, meta request.ClientMeta) error {
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "payment.webhook", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	// 1. Authenticate callback
	if !s.webhooks.VerifyWebhook(body, signature) {
		s.log.Warn("Webhook signature mismatch", zap.String("ip", meta.IPAddress))
		span.SetStatus(codes.Error, "invalid signature")
		return utils.NewAuthenticationError("Invalid webhook signature", "invalid_signature")
	}

	// 2. Decode
	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return utils.NewValidationError("Invalid webhook payload", nil)
	}
	entityData := event.Payload.Payment.Entity
	span.SetAttributes(
		attribute.String("event", event.Event),
		attribute.String("gateway_order_id", entityData.OrderID),
	)

	if event.Event != eventPaymentCaptured || entityData.OrderID == "" {
		s.log.Debug("Webhook event ignored", zap.String("event", event.Event))
		return nil
	}

	// 3. Locate payment across departments
	for _, dept := range entity.Departments {
		payment, err := s.repo.Payment.FindByGatewayOrderID(ctx, dept, entityData.OrderID)
		if err != nil {
			span.RecordError(err)
			return utils.NewInfrastructureError("failed to reconcile payment", err)
		}
		if payment == nil {
			continue
		}

		// 4. Idempotent capture
		changed, err := s.repo.Payment.MarkCaptured(ctx, dept, payment.ID, entityData.ID)
		if err != nil && !errors.Is(err, repository.ErrDuplicateSuccess) {
			span.RecordError(err)
			return utils.NewInfrastructureError("failed to reconcile payment", err)
		}
		if err != nil {
			s.log.Warn("Captured payment for an already settled bill",
				zap.String("payment_id", payment.ID.String()),
				zap.String("bill_id", payment.BillID.String()))
		}
		if !changed && payment.Status == entity.PaymentStatusFailed {
			s.log.Warn("Capture for a failed settlement attempt left unchanged",
				zap.String("payment_id", payment.ID.String()),
				zap.String("gateway_payment_id", entityData.ID))
		}

		s.audit.Record(ctx, AuditEntry{
			Action:    entity.AuditPaymentWebhook,
			Actor:     "gateway",
			IPAddress: meta.IPAddress,
			Metadata: map[string]any{
				"event":              event.Event,
				"department":         string(dept),
				"payment_id":         payment.ID.String(),
				"gateway_order_id":   entityData.OrderID,
				"gateway_payment_id": entityData.ID,
				"status_changed":     changed,
			},
		})
		return nil
	}

	s.log.Warn("Webhook for unknown order", zap.String("gateway_order_id", entityData.OrderID))
	return nil
}

// toMinorUnits converts a rupee amount to paise, rejecting fractions of a paisa.
func toMinorUnits(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, utils.NewValidationError("Amount must be greater than zero", map[string]string{"amount": "must be positive"})
	}
	minor := amount.Shift(2)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, utils.NewValidationError("Amount has more than two decimal places", map[string]string{"amount": "at most 2 decimal places"})
	}
	return minor.IntPart(), nil
}
