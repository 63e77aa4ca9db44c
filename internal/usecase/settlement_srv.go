package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"
	"citizen-kiosk/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("citizen-kiosk/usecase")

// SettlementRequest is a gateway-confirmed payment claimed by the kiosk client.
type SettlementRequest struct {
	UserID        uuid.UUID
	Actor         string
	IPAddress     string
	Department    entity.Department
	AccountNumber string
	BillID        uuid.UUID
	Amount        decimal.Decimal
	OrderID       string
	PaymentID     string
	Signature     string
}

type SettlementResult struct {
	Payment *entity.Payment
	Receipt *entity.Receipt
}

// SettlementEngine turns one verified payment into exactly one PAID bill and
// one SUCCESS payment.
type SettlementEngine interface {
	Settle(ctx context.Context, req SettlementRequest) (*SettlementResult, error)
}

type settlementEngine struct {
	bills    repository.BillRepository
	payments repository.PaymentRepository
	orders   repository.OrderRepository
	verifier SignatureVerifier
	receipts ReceiptService
	audit    AuditService
	now      func() time.Time
	log      *zap.Logger
}

func NewSettlementEngine(
	bills repository.BillRepository,
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	verifier SignatureVerifier,
	receipts ReceiptService,
	audit AuditService,
	now func() time.Time,
	log *zap.Logger,
) SettlementEngine {
	if now == nil {
		now = time.Now
	}
	return &settlementEngine{
		bills:    bills,
		payments: payments,
		orders:   orders,
		verifier: verifier,
		receipts: receipts,
		audit:    audit,
		now:      now,
		log:      log.With(zap.String("service", "settlement")),
	}
}

// Settle runs to completion even if the caller goes away.
func (s *settlementEngine) Settle(ctx context.Context, req SettlementRequest) (*SettlementResult, error) {
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "settlement.settle")
	defer span.End()
	span.SetAttributes(
		attribute.String("department", string(req.Department)),
		attribute.String("bill_id", req.BillID.String()),
		attribute.String("gateway_order_id", req.OrderID),
	)

	result, err := s.settle(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("payment_id", result.Payment.ID.String()))
	return result, nil
}

func (s *settlementEngine) settle(ctx context.Context, req SettlementRequest) (*SettlementResult, error) {
	// 1. Signature is the trust boundary; nothing is touched before it passes
	if !s.verifier.Verify(req.OrderID, req.PaymentID, req.Signature) {
		s.log.Warn("Payment signature mismatch",
			zap.String("gateway_order_id", req.OrderID),
			zap.String("account_number", req.AccountNumber))
		s.auditFailure(ctx, req, "signature mismatch", entity.SeverityCritical)
		return nil, utils.NewAuthenticationError("Payment verification failed", "invalid_signature")
	}

	// 2. Retry of an already settled bill
	if req.BillID != uuid.Nil {
		existing, err := s.payments.FindSuccessfulByBill(ctx, req.Department, req.BillID)
		if err != nil {
			return nil, utils.NewInfrastructureError("failed to check payment", err)
		}
		if existing != nil {
			return nil, utils.NewConflictError("Bill already paid")
		}
	}

	// 3. A gateway payment settles one bill only
	if err := s.checkGatewayPaymentUnused(ctx, req); err != nil {
		return nil, err
	}

	// 4. Outstanding bill for the account
	bill, err := s.bills.FindLatestUnpaid(ctx, req.Department, req.AccountNumber)
	if err != nil {
		return nil, utils.NewInfrastructureError("failed to load bill", err)
	}
	if bill == nil {
		return nil, s.noUnpaidBill(ctx, req)
	}
	if req.BillID != uuid.Nil && bill.ID != req.BillID {
		return nil, utils.NewValidationError("Bill does not match the outstanding bill for this account",
			map[string]string{"billId": "not the outstanding bill"})
	}

	if req.BillID == uuid.Nil {
		existing, err := s.payments.FindSuccessfulByBill(ctx, req.Department, bill.ID)
		if err != nil {
			return nil, utils.NewInfrastructureError("failed to check payment", err)
		}
		if existing != nil {
			return nil, utils.NewConflictError("Bill already paid")
		}
	}

	if !req.Amount.Equal(bill.Amount) {
		return nil, utils.NewValidationError("Amount does not match bill",
			map[string]string{"amount": fmt.Sprintf("expected %s", bill.Amount.StringFixed(2))})
	}

	// 5. The order must have been opened for this bill
	if err := s.checkOrderBinding(ctx, req, bill); err != nil {
		return nil, err
	}

	// 6. Lock: only one caller moves the bill out of UNPAID
	locked, err := s.bills.MarkPending(ctx, req.Department, bill.ID)
	if err != nil {
		return nil, utils.NewInfrastructureError("failed to lock bill", err)
	}
	if !locked {
		s.log.Info("Lost settlement race", zap.String("bill_id", bill.ID.String()))
		return nil, utils.NewNotFoundError("No unpaid bill found for this account")
	}

	// 7-9. Record and complete, reverting the bill on any failure
	payment, err := s.complete(ctx, req, bill)
	if err != nil {
		s.rollback(ctx, bill, payment)
		s.auditFailure(ctx, req, err.Error(), entity.SeverityCritical)
		if errors.Is(err, repository.ErrDuplicateSuccess) {
			return nil, utils.NewConflictError("Bill already paid or payment already used")
		}
		return nil, utils.NewInfrastructureError("failed to settle payment", err)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:    entity.AuditPaymentSuccess,
		Actor:     req.Actor,
		IPAddress: req.IPAddress,
		Metadata: map[string]any{
			"department":       string(req.Department),
			"account_number":   req.AccountNumber,
			"bill_id":          bill.ID.String(),
			"payment_id":       payment.ID.String(),
			"reference":        payment.Reference,
			"amount":           payment.Amount.StringFixed(2),
			"gateway_order_id": req.OrderID,
		},
	})

	// 10. Receipt is a side effect; the payment stands without it
	receipt, err := s.receipts.Issue(ctx, payment)
	if err != nil {
		s.log.Error("Failed to create receipt", zap.Error(err), zap.String("payment_id", payment.ID.String()))
	}

	s.log.Info("Bill settled",
		zap.String("department", string(req.Department)),
		zap.String("bill_id", bill.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("reference", payment.Reference))

	return &SettlementResult{Payment: payment, Receipt: receipt}, nil
}

// complete returns the payment it created even on failure so rollback can mark it FAILED.
func (s *settlementEngine) complete(ctx context.Context, req SettlementRequest, bill *entity.Bill) (*entity.Payment, error) {
	now := s.now()
	gatewayPaymentID := req.PaymentID
	signature := req.Signature
	payment := &entity.Payment{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Department:       req.Department,
		UserID:           req.UserID,
		AccountNumber:    req.AccountNumber,
		BillID:           bill.ID,
		Amount:           bill.Amount,
		Reference:        utils.GeneratePaymentReference(now),
		Status:           entity.PaymentStatusInitiated,
		GatewayOrderID:   req.OrderID,
		GatewayPaymentID: &gatewayPaymentID,
		GatewaySignature: &signature,
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if err := s.bills.MarkPaid(ctx, req.Department, bill.ID, now); err != nil {
		return payment, fmt.Errorf("mark bill paid: %w", err)
	}

	if err := s.payments.UpdateStatus(ctx, req.Department, payment.ID, entity.PaymentStatusSuccess); err != nil {
		return payment, fmt.Errorf("mark payment success: %w", err)
	}
	payment.Status = entity.PaymentStatusSuccess

	return payment, nil
}

// rollback marks the attempt FAILED first, then releases the bill from
// PENDING_PAYMENT or PAID unless another SUCCESS payment backs it.
func (s *settlementEngine) rollback(ctx context.Context, bill *entity.Bill, payment *entity.Payment) {
	if payment != nil {
		if err := s.payments.UpdateStatus(ctx, payment.Department, payment.ID, entity.PaymentStatusFailed); err != nil {
			s.log.Error("Failed to mark payment failed",
				zap.Error(err),
				zap.String("payment_id", payment.ID.String()))
		}
	}

	settled, err := s.payments.FindSuccessfulByBill(ctx, bill.Department, bill.ID)
	if err != nil {
		s.log.Error("Failed to check bill before revert",
			zap.Error(err),
			zap.String("bill_id", bill.ID.String()))
		return
	}
	if settled != nil {
		s.log.Warn("Bill kept PAID, another payment settled it",
			zap.String("bill_id", bill.ID.String()),
			zap.String("payment_id", settled.ID.String()))
		return
	}

	if err := s.bills.RevertToUnpaid(ctx, bill.Department, bill.ID); err != nil {
		s.log.Error("Failed to revert bill after settlement failure",
			zap.Error(err),
			zap.String("bill_id", bill.ID.String()))
	}
}

func (s *settlementEngine) checkGatewayPaymentUnused(ctx context.Context, req SettlementRequest) error {
	for _, dept := range entity.Departments {
		used, err := s.payments.FindSuccessfulByGatewayPayment(ctx, dept, req.PaymentID)
		if err != nil {
			return utils.NewInfrastructureError("failed to check payment", err)
		}
		if used != nil {
			s.log.Warn("Gateway payment replayed",
				zap.String("gateway_payment_id", req.PaymentID),
				zap.String("department", string(dept)),
				zap.String("settled_bill_id", used.BillID.String()))
			s.auditFailure(ctx, req, "gateway payment already used", entity.SeverityCritical)
			return utils.NewConflictError("Payment already used")
		}
	}
	return nil
}

func (s *settlementEngine) checkOrderBinding(ctx context.Context, req SettlementRequest, bill *entity.Bill) error {
	order, err := s.orders.FindByGatewayOrderID(ctx, req.OrderID)
	if err != nil {
		return utils.NewInfrastructureError("failed to load payment order", err)
	}
	if order == nil || !order.Covers(req.Department, bill.ID, req.AccountNumber, bill.Amount) {
		s.log.Warn("Payment order does not match bill",
			zap.String("gateway_order_id", req.OrderID),
			zap.String("bill_id", bill.ID.String()),
			zap.Bool("order_found", order != nil))
		s.auditFailure(ctx, req, "order not opened for this bill", entity.SeverityCritical)
		return utils.NewValidationError("Payment order does not match this bill",
			map[string]string{"orderId": "not opened for this bill"})
	}
	return nil
}

// noUnpaidBill tells a retry of a settled bill apart from a missing one.
func (s *settlementEngine) noUnpaidBill(ctx context.Context, req SettlementRequest) error {
	if req.BillID != uuid.Nil {
		bill, err := s.bills.FindByID(ctx, req.Department, req.BillID)
		if err != nil {
			return utils.NewInfrastructureError("failed to load bill", err)
		}
		if bill != nil && bill.Status == entity.BillStatusPaid {
			return utils.NewConflictError("Bill already paid")
		}
	}
	return utils.NewNotFoundError("No unpaid bill found for this account")
}

func (s *settlementEngine) auditFailure(ctx context.Context, req SettlementRequest, reason string, severity entity.AuditSeverity) {
	s.audit.Record(ctx, AuditEntry{
		Action:    entity.AuditPaymentFailed,
		Actor:     req.Actor,
		IPAddress: req.IPAddress,
		Metadata: map[string]any{
			"department":       string(req.Department),
			"account_number":   req.AccountNumber,
			"bill_id":          req.BillID.String(),
			"gateway_order_id": req.OrderID,
			"reason":           reason,
		},
		Severity: severity,
	})
}
