package domain

import "strings"

// Role enumerates the three directory roles.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
	RoleAdmin    Role = "admin"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleCustomer, RoleAgent, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// IsStaff is true for agents and admins.
func (r Role) IsStaff() bool {
	return r == RoleAgent || r == RoleAdmin
}

// User is a directory record. Only Role is ever mutated.
type User struct {
	ID    string `json:"id" yaml:"id"`
	Email string `json:"email" yaml:"email"`
	Name  string `json:"name" yaml:"name"`
	Role  Role   `json:"role" yaml:"role"`
}

// EmailMatches compares emails case-insensitively.
func (u User) EmailMatches(email string) bool {
	return strings.EqualFold(strings.TrimSpace(u.Email), strings.TrimSpace(email))
}

// CreatorRef returns the denormalized snapshot stored on tickets.
func (u User) CreatorRef() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserRef is a denormalized user snapshot embedded in tickets.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
