package domain

import "time"

// Session is the explicit caller identity passed into every store call.
// User.Role holds the effective role, which may differ from the directory
// record when a demo role override was requested.
type Session struct {
	User      User      `json:"user"`
	Token     string    `json:"token,omitempty"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Role returns the effective role of the session.
func (s *Session) Role() Role {
	if s == nil {
		return ""
	}
	return s.User.Role
}

// UserID returns the session user id or "".
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.User.ID
}
