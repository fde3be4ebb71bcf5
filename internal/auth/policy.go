package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// Action names a guarded operation in the permission matrix.
type Action string

const (
	ActionTicketCreate   Action = "ticket:create"
	ActionTicketStatus   Action = "ticket:status"
	ActionTicketPriority Action = "ticket:priority"
	ActionTicketAssign   Action = "ticket:assign"
	ActionTicketReminder Action = "ticket:reminder"
	ActionTicketReopen   Action = "ticket:reopen"
	ActionTicketRate     Action = "ticket:rate"
	ActionTicketAttach   Action = "ticket:attach"
	ActionTicketReadAll  Action = "ticket:read_all"
	ActionCommentPublic  Action = "comment:public"
	ActionCommentNote    Action = "comment:internal"
	ActionMetricsRead    Action = "metrics:read"
	ActionUsersManage    Action = "users:manage"
)

const policyModel = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.act == p.act
`

var staffActions = []Action{
	ActionTicketStatus,
	ActionTicketPriority,
	ActionTicketAssign,
	ActionTicketReminder,
	ActionTicketReopen,
	ActionCommentPublic,
	ActionCommentNote,
	ActionTicketAttach,
	ActionTicketReadAll,
}

// DefaultGrants is the role to action matrix. Ownership rules (a customer
// acting on their own ticket) are checked by the ticket service.
func DefaultGrants() map[domain.Role][]Action {
	admin := append([]Action{}, staffActions...)
	admin = append(admin, ActionMetricsRead, ActionUsersManage)
	return map[domain.Role][]Action{
		domain.RoleCustomer: {ActionTicketCreate, ActionCommentPublic, ActionTicketRate, ActionTicketAttach},
		domain.RoleAgent:    append([]Action{}, staffActions...),
		domain.RoleAdmin:    admin,
	}
}

// Policy wraps a casbin enforcer loaded with the role matrix.
type Policy struct {
	enforcer *casbin.Enforcer
}

// NewPolicy builds the enforcer from DefaultGrants.
func NewPolicy() (*Policy, error) {
	return NewPolicyWithGrants(DefaultGrants())
}

// NewPolicyWithGrants builds an enforcer for an explicit grant table.
func NewPolicyWithGrants(grants map[domain.Role][]Action) (*Policy, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("load policy model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	var rules [][]string
	for role, actions := range grants {
		for _, action := range actions {
			rules = append(rules, []string{string(role), string(action)})
		}
	}
	if len(rules) > 0 {
		if _, err := enforcer.AddPolicies(rules); err != nil {
			return nil, fmt.Errorf("add policies: %w", err)
		}
	}
	return &Policy{enforcer: enforcer}, nil
}

// Can reports whether role may perform action. Enforcer errors deny.
func (p *Policy) Can(role domain.Role, action Action) bool {
	if p == nil || !role.Valid() {
		return false
	}
	allowed, err := p.enforcer.Enforce(string(role), string(action))
	if err != nil {
		return false
	}
	return allowed
}
