package usecase

import (
	"context"

	"citizen-kiosk/internal/data/repository"
	"citizen-kiosk/internal/dto/response"
	"citizen-kiosk/pkg/utils"

	"go.uber.org/zap"
)

type UserService interface {
	Me(ctx context.Context, identity utils.Identity) (*response.MeResponse, error)
}

type userService struct {
	repo repository.UserRepository
	log  *zap.Logger
}

func NewUserService(repo repository.UserRepository, log *zap.Logger) UserService {
	return &userService{
		repo: repo,
		log:  log.With(zap.String("service", "user")),
	}
}

// Me describes the caller from the verified credential, enriched with the stored profile.
func (s *userService) Me(ctx context.Context, identity utils.Identity) (*response.MeResponse, error) {
	user, err := s.repo.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, utils.NewInfrastructureError("failed to load user", err)
	}
	if user == nil {
		return nil, utils.NewNotFoundError("User not found")
	}

	resp := response.IdentityToMe(identity, user)
	return &resp, nil
}
