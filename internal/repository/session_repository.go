package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/persistence"
)

// SessionRepository holds the snapshot of the current session user.
type SessionRepository interface {
	Save(ctx context.Context, user domain.User) error
	Load(ctx context.Context) (*domain.User, error)
	Clear(ctx context.Context) error
}

type sessionRepository struct {
	store persistence.KVStore
}

// NewSessionRepository returns a repository over the currentUser record.
func NewSessionRepository(store persistence.KVStore) SessionRepository {
	return &sessionRepository{store: store}
}

func (r *sessionRepository) Save(ctx context.Context, user domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyCurrentUser, err)
	}
	return r.store.Set(ctx, KeyCurrentUser, raw)
}

// Load returns nil, nil when no session is persisted.
func (r *sessionRepository) Load(ctx context.Context) (*domain.User, error) {
	raw, err := r.store.Get(ctx, KeyCurrentUser)
	if errors.Is(err, persistence.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", KeyCurrentUser, err)
	}
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyCurrentUser, err)
	}
	return &user, nil
}

func (r *sessionRepository) Clear(ctx context.Context) error {
	return r.store.Delete(ctx, KeyCurrentUser)
}
