package usecase

import (
	"context"
	"time"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"
	"citizen-kiosk/internal/dto/response"
	"citizen-kiosk/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReceiptService interface {
	Issue(ctx context.Context, payment *entity.Payment) (*entity.Receipt, error)
	Get(ctx context.Context, identity utils.Identity, id uuid.UUID) (*response.ReceiptResponse, error)
	Print(ctx context.Context, identity utils.Identity, id uuid.UUID, override bool, ipAddress string) (*response.ReceiptResponse, error)
}

type receiptService struct {
	repo      repository.ReceiptRepository
	audit     AuditService
	maxPrints int
	now       func() time.Time
	log       *zap.Logger
}

func NewReceiptService(repo repository.ReceiptRepository, audit AuditService, maxPrints int, now func() time.Time, log *zap.Logger) ReceiptService {
	if maxPrints < 1 {
		maxPrints = 1
	}
	if now == nil {
		now = time.Now
	}
	return &receiptService{
		repo:      repo,
		audit:     audit,
		maxPrints: maxPrints,
		now:       now,
		log:       log.With(zap.String("service", "receipt")),
	}
}

// Issue creates the receipt for a successful payment with a zero print count.
func (s *receiptService) Issue(ctx context.Context, payment *entity.Payment) (*entity.Receipt, error) {
	now := s.now()
	receipt := &entity.Receipt{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		PaymentID:     payment.ID,
		UserID:        payment.UserID,
		Department:    payment.Department,
		AccountNumber: payment.AccountNumber,
		Reference:     payment.Reference,
		Amount:        payment.Amount,
		PrintCount:    0,
		MaxPrints:     s.maxPrints,
	}

	if err := s.repo.Create(ctx, receipt); err != nil {
		return nil, utils.NewInfrastructureError("failed to create receipt", err)
	}

	return receipt, nil
}

func (s *receiptService) Get(ctx context.Context, identity utils.Identity, id uuid.UUID) (*response.ReceiptResponse, error) {
	receipt, err := s.load(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	resp := response.ReceiptToResponse(receipt)
	return &resp, nil
}

func (s *receiptService) Print(ctx context.Context, identity utils.Identity, id uuid.UUID, override bool, ipAddress string) (*response.ReceiptResponse, error) {
	// 1. Ownership
	if _, err := s.load(ctx, identity, id); err != nil {
		return nil, err
	}

	// 2. Override needs its own capability
	if override && !HasPermission(identity.Role, CapReceiptOverridePrintLimit) {
		s.log.Warn("Print limit override denied",
			zap.String("user_id", identity.UserID.String()),
			zap.String("role", identity.Role))
		return nil, utils.NewForbiddenError("You are not allowed to override the print limit")
	}

	// 3. Conditional increment
	printed, err := s.repo.IncrementPrintCount(ctx, id, override)
	if err != nil {
		return nil, utils.NewInfrastructureError("failed to print receipt", err)
	}
	if printed == nil {
		return nil, utils.NewConflictError("Receipt print limit reached")
	}

	s.audit.Record(ctx, AuditEntry{
		Action:    entity.AuditReceiptPrinted,
		Actor:     identity.PhoneNumber,
		IPAddress: ipAddress,
		Metadata: map[string]any{
			"receipt_id":  printed.ID.String(),
			"print_count": printed.PrintCount,
			"override":    override,
		},
	})

	resp := response.ReceiptToResponse(printed)
	return &resp, nil
}

func (s *receiptService) load(ctx context.Context, identity utils.Identity, id uuid.UUID) (*entity.Receipt, error) {
	receipt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, utils.NewInfrastructureError("failed to load receipt", err)
	}
	if receipt == nil {
		return nil, utils.NewNotFoundError("Receipt not found")
	}

	if receipt.UserID != identity.UserID && !HasPermission(identity.Role, CapReceiptReadAny) {
		s.log.Warn("Receipt access denied",
			zap.String("user_id", identity.UserID.String()),
			zap.String("receipt_id", id.String()))
		return nil, utils.NewForbiddenError("This receipt belongs to another user")
	}

	return receipt, nil
}
