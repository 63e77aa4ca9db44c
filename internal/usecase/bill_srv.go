package usecase

import (
	"context"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"
	"citizen-kiosk/internal/dto/request"
	"citizen-kiosk/internal/dto/response"
	"citizen-kiosk/pkg/utils"

	"go.uber.org/zap"
)

type BillService interface {
	ListByAccount(ctx context.Context, dept, accountNumber string, page request.PaginatedRequest) (*response.PaginatedResponse[response.BillResponse], error)
}

type billService struct {
	repo repository.BillRepository
	log  *zap.Logger
}

func NewBillService(repo repository.BillRepository, log *zap.Logger) BillService {
	return &billService{
		repo: repo,
		log:  log.With(zap.String("service", "bill")),
	}
}

func (s *billService) ListByAccount(ctx context.Context, dept, accountNumber string, page request.PaginatedRequest) (*response.PaginatedResponse[response.BillResponse], error) {
	department := entity.Department(dept)
	if !department.Valid() {
		return nil, utils.NewValidationError("Unknown department", map[string]string{"department": "Must be one of: ELECTRICITY, WATER, GAS, MUNICIPAL, TRANSPORT, PDS"})
	}
	if accountNumber == "" {
		return nil, utils.NewValidationError("Account number is required", map[string]string{"accountNumber": "This field is required"})
	}

	bills, err := s.repo.FindByAccount(ctx, department, accountNumber, page.Limit(), page.Offset())
	if err != nil {
		return nil, utils.NewInfrastructureError("failed to list bills", err)
	}

	total, err := s.repo.CountByAccount(ctx, department, accountNumber)
	if err != nil {
		return nil, utils.NewInfrastructureError("failed to count bills", err)
	}

	items := make([]response.BillResponse, 0, len(bills))
	for _, bill := range bills {
		items = append(items, response.BillToResponse(bill))
	}

	return response.NewPaginatedResponse(items, page.Page, page.Limit(), total), nil
}
