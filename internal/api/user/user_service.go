package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

// UpdateProfileParams carries the mutable profile fields; nil means leave
// the column unchanged.
type UpdateProfileParams struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Position  *string `json:"position"`
	Country   *string `json:"country"`
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	GetProfile(ctx context.Context, id int64) (*types.Identity, error)
	UpdateProfile(ctx context.Context, id int64, params UpdateProfileParams) (*types.Identity, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*types.Identity, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
}

func NewService(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo}
}

func (s *ServiceImpl) GetProfile(ctx context.Context, id int64) (*types.Identity, error) {
	ident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.ErrNotFoundResponse("User not found")
		}
		s.logger.ErrorContext(ctx, "Profile load failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	return ident, nil
}

func (s *ServiceImpl) UpdateProfile(ctx context.Context, id int64, params UpdateProfileParams) (*types.Identity, error) {
	ident, err := s.repo.UpdateProfile(ctx, id, params)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.ErrNotFoundResponse("User not found")
		}
		s.logger.ErrorContext(ctx, "Profile update failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	return ident, nil
}

func (s *ServiceImpl) ListUsers(ctx context.Context, limit, offset int) ([]*types.Identity, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "User listing failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	return users, nil
}
