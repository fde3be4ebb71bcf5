package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// LoginRequest payload. Role optionally overrides the directory role for
// the session only.
type LoginRequest struct {
	Email string       `json:"email"`
	Role  *domain.Role `json:"role,omitempty"`
}

// SessionResponse is returned by login and the current-session endpoint.
type SessionResponse struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token,omitempty"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
}

// SetRoleRequest payload for PATCH /users/:id/role.
type SetRoleRequest struct {
	Role domain.Role `json:"role"`
}

// NewSessionResponse builds the response for session.
func NewSessionResponse(session *domain.Session) SessionResponse {
	resp := SessionResponse{User: session.User, Token: session.Token}
	if !session.ExpiresAt.IsZero() {
		exp := session.ExpiresAt
		resp.ExpiresAt = &exp
	}
	return resp
}
