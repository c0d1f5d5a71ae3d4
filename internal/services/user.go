package services

import (
	"context"
	"time"

	"eventhub/internal/domain"
)

type userService struct {
	userRepo       domain.UserRepository
	contextTimeout time.Duration
}

// NewUserService creates the administrator view of the user directory.
func NewUserService(userRepo domain.UserRepository, timeout time.Duration) domain.UserService {
	return &userService{
		userRepo:       userRepo,
		contextTimeout: timeout,
	}
}

func (s *userService) ListUsers(ctx context.Context, actor domain.Identity, p domain.PaginationParams) ([]*domain.User, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if actor.Role != domain.RoleAdmin {
		return nil, 0, domain.ErrNotPermitted
	}
	users, total, err := s.userRepo.List(ctx, p)
	if err != nil {
		return nil, 0, storageError(ctx, "list users", err)
	}
	return users, total, nil
}
