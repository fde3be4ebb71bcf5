package repository

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/persistence"
)

// UserRepository defines persistence access for directory users.
type UserRepository interface {
	List(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	ReplaceAll(ctx context.Context, users []domain.User) error
	Exists(ctx context.Context) (bool, error)
}

type userRepository struct {
	users *collection[domain.User]
}

// NewUserRepository returns a repository over the users record.
func NewUserRepository(store persistence.KVStore) UserRepository {
	return &userRepository{users: newCollection[domain.User](store, KeyUsers)}
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	users, _, err := r.users.load(ctx)
	return users, err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	users, _, err := r.users.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, ErrNotFound
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	users, _, err := r.users.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].EmailMatches(email) {
			return &users[i], nil
		}
	}
	return nil, ErrNotFound
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	return r.users.update(ctx, func(users []domain.User) ([]domain.User, error) {
		for i := range users {
			if users[i].ID == user.ID {
				users[i] = *user
				return users, nil
			}
		}
		return nil, ErrNotFound
	})
}

func (r *userRepository) ReplaceAll(ctx context.Context, users []domain.User) error {
	return r.users.update(ctx, func([]domain.User) ([]domain.User, error) {
		return append([]domain.User{}, users...), nil
	})
}

func (r *userRepository) Exists(ctx context.Context) (bool, error) {
	return r.users.exists(ctx)
}
