package service

import (
	"errors"
	"fmt"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func requireSession(session *domain.Session) error {
	if session == nil || session.User.ID == "" {
		return apperrors.NewUnauthenticated("no session user")
	}
	return nil
}

func authorize(policy *auth.Policy, session *domain.Session, action auth.Action) error {
	if err := requireSession(session); err != nil {
		return err
	}
	if !policy.Can(session.Role(), action) {
		return apperrors.NewUnauthorized(fmt.Sprintf("role %q may not perform %s", session.Role(), action))
	}
	return nil
}

// mapRepoError turns repository sentinels into DomainErrors.
func mapRepoError(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	if errors.Is(err, repository.ErrDuplicateID) {
		return apperrors.NewConflict(resource+" already exists", map[string]any{"id": id})
	}
	return apperrors.NewInternalError(err)
}
