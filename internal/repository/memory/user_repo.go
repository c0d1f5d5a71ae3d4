package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"eventhub/internal/domain"
)

type userRepository struct {
	s *Store
}

// NewUserRepository returns a UserRepository backed by s.
func NewUserRepository(s *Store) domain.UserRepository {
	return &userRepository{s: s}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.usersByEmail[user.Email]; taken {
		return domain.ErrDuplicateEmail
	}
	user.ID = uuid.NewString()
	cp := *user
	r.s.users[user.ID] = &cp
	r.s.usersByEmail[user.Email] = user.ID
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.usersByEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *r.s.users[id]
	return &cp, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepository) List(ctx context.Context, p domain.PaginationParams) ([]*domain.User, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.s.mu.Lock()
	all := make([]*domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		cp := *u
		all = append(all, &cp)
	}
	r.s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	start, end := p.Window(len(all))
	return all[start:end], len(all), nil
}
