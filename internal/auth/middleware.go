package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const sessionKey = "auth_session"

// SessionResolver turns a bearer token into a session.
type SessionResolver interface {
	ResolveToken(ctx context.Context, token string) (*domain.Session, error)
}

// Middleware validates bearer tokens and stores the session in Locals.
type Middleware struct {
	resolver SessionResolver
}

// NewMiddleware constructs middleware.
func NewMiddleware(resolver SessionResolver) *Middleware {
	return &Middleware{resolver: resolver}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthenticated("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthenticated("invalid authorization header")
	}

	session, err := m.resolver.ResolveToken(c.UserContext(), strings.TrimSpace(parts[1]))
	if err != nil {
		return err
	}

	c.Locals(sessionKey, session)
	return c.Next()
}

// SessionFromContext retrieves the authenticated session.
func SessionFromContext(c *fiber.Ctx) (*domain.Session, bool) {
	session, ok := c.Locals(sessionKey).(*domain.Session)
	return session, ok && session != nil
}

// RequireRole rejects sessions whose role is not listed.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("session required")
		}
		if _, exists := allowedSet[session.Role()]; !exists {
			return apperrors.NewUnauthorized("insufficient role")
		}
		return c.Next()
	}
}
