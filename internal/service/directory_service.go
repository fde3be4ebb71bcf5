package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/seed"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// DirectoryService owns the user directory and the persisted session.
type DirectoryService struct {
	users             repository.UserRepository
	sessions          repository.SessionRepository
	tokens            *auth.TokenManager
	policy            *auth.Policy
	logger            *zap.Logger
	allowRoleOverride bool
	seedFile          string

	seedMu sync.Mutex
	seeded bool
}

// DirectoryDependencies bundles collaborators for the directory.
type DirectoryDependencies struct {
	UserRepo          repository.UserRepository
	SessionRepo       repository.SessionRepository
	Tokens            *auth.TokenManager
	Policy            *auth.Policy
	Logger            *zap.Logger
	AllowRoleOverride bool
	SeedFile          string
}

// NewDirectoryService builds the service.
func NewDirectoryService(deps DirectoryDependencies) *DirectoryService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{
		users:             deps.UserRepo,
		sessions:          deps.SessionRepo,
		tokens:            deps.Tokens,
		policy:            deps.Policy,
		logger:            logger,
		allowRoleOverride: deps.AllowRoleOverride,
		seedFile:          deps.SeedFile,
	}
}

// EnsureSeeded writes the seed directory when no users record exists yet.
func (s *DirectoryService) EnsureSeeded(ctx context.Context) error {
	s.seedMu.Lock()
	defer s.seedMu.Unlock()
	if s.seeded {
		return nil
	}

	exists, err := s.users.Exists(ctx)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !exists {
		users := seed.DemoUsers()
		source := "builtin"
		if s.seedFile != "" {
			users, err = seed.LoadUsers(s.seedFile)
			if err != nil {
				return apperrors.NewInternalError(err)
			}
			source = s.seedFile
		}
		if err := s.users.ReplaceAll(ctx, users); err != nil {
			return apperrors.NewInternalError(err)
		}
		s.logger.Info("directory seeded", zap.String("source", source), zap.Int("users", len(users)))
	}
	s.seeded = true
	return nil
}

// FindByEmail looks a user up by case-insensitive email.
func (s *DirectoryService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := s.EnsureSeeded(ctx); err != nil {
		return nil, err
	}
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, mapRepoError(err, "user", email)
	}
	return user, nil
}

// Authenticate starts a session for email. No credential is checked. A role
// override replaces the role on the session only; the directory is untouched.
// An empty override counts as none.
func (s *DirectoryService) Authenticate(ctx context.Context, email string, roleOverride *domain.Role) (*domain.Session, error) {
	if roleOverride != nil && *roleOverride == "" {
		roleOverride = nil
	}
	if roleOverride != nil && !roleOverride.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": string(*roleOverride)})
	}

	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	sessionUser := *user
	if roleOverride != nil && *roleOverride != user.Role {
		if !s.allowRoleOverride {
			return nil, apperrors.NewUnauthorized("role override disabled")
		}
		sessionUser.Role = *roleOverride
	}

	session, err := s.tokens.Issue(sessionUser)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("issue token: %w", err))
	}
	if err := s.sessions.Save(ctx, sessionUser); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("session started",
		zap.String("user_id", sessionUser.ID),
		zap.String("role", string(sessionUser.Role)),
		zap.Bool("role_override", sessionUser.Role != user.Role))
	return session, nil
}

// CurrentSession returns the persisted session or nil when none exists.
func (s *DirectoryService) CurrentSession(ctx context.Context) (*domain.Session, error) {
	user, err := s.sessions.Load(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if user == nil {
		return nil, nil
	}
	return &domain.Session{User: *user}, nil
}

// EndSession clears the persisted session.
func (s *DirectoryService) EndSession(ctx context.Context) error {
	if err := s.sessions.Clear(ctx); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("session ended")
	return nil
}

// ResolveToken rebuilds the session carried by a bearer token. The user must
// still exist in the directory. With role overrides disabled the token role
// must also match the directory, so a SetRole takes effect immediately.
func (s *DirectoryService) ResolveToken(ctx context.Context, token string) (*domain.Session, error) {
	session, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperrors.NewUnauthenticated("invalid or expired token")
	}
	if err := s.EnsureSeeded(ctx); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, session.User.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthenticated("session user no longer exists")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !s.allowRoleOverride && user.Role != session.User.Role {
		s.logger.Info("stale session role rejected",
			zap.String("user_id", user.ID),
			zap.String("token_role", string(session.User.Role)),
			zap.String("directory_role", string(user.Role)))
		return nil, apperrors.NewUnauthenticated("role changed; sign in again")
	}
	return session, nil
}

// ListUsers returns the directory. Admin only.
func (s *DirectoryService) ListUsers(ctx context.Context, session *domain.Session) ([]domain.User, error) {
	if err := authorize(s.policy, session, auth.ActionUsersManage); err != nil {
		return nil, err
	}
	if err := s.EnsureSeeded(ctx); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}

// SetRole changes a directory user's role. Admin only.
func (s *DirectoryService) SetRole(ctx context.Context, session *domain.Session, userID string, role domain.Role) (*domain.User, error) {
	if err := authorize(s.policy, session, auth.ActionUsersManage); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": string(role)})
	}
	if err := s.EnsureSeeded(ctx); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err, "user", userID)
	}
	previous := user.Role
	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapRepoError(err, "user", userID)
	}

	s.logger.Info("user role changed",
		zap.String("user_id", userID),
		zap.String("from", string(previous)),
		zap.String("to", string(role)),
		zap.String("by", session.UserID()))
	return user, nil
}
