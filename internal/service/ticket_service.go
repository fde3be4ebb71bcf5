package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/seed"
	"github.com/spec-kit/helpdesk/internal/validation"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows. Every call takes the caller's
// session explicitly; permissions are checked here, not by the transport.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	policy     *auth.Policy
	validator  *validation.Validator
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
	strict     bool
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo        repository.TicketRepository
	UserRepo          repository.UserRepository
	Policy            *auth.Policy
	Validator         *validation.Validator
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
	Clock             func() time.Time
	StrictTransitions bool
}

// TicketCreateInput describes ticket creation payload. Status is accepted
// for compatibility and always replaced with Open.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	Department  domain.Department
	Status      domain.TicketStatus
	Attachments []domain.Attachment
}

// TicketFilter narrows List results.
type TicketFilter struct {
	Status domain.TicketStatus
	Search string
	// All widens an agent's view beyond assigned and unassigned tickets.
	All bool
}

// CommentInput is a comment appended through Update.
type CommentInput struct {
	Content        string
	IsInternalNote bool
}

// TicketPatch is a partial update. Nil fields are left untouched.
type TicketPatch struct {
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
	// AssigneeID set to "" clears the assignee.
	AssigneeID    *string
	Rating        *int
	ReminderDate  *time.Time
	ClearReminder bool
	Comment       *CommentInput
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		policy:     deps.Policy,
		validator:  deps.Validator,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
		strict:     deps.StrictTransitions,
	}
}

// EnsureDemoData writes the sample tickets when no tickets record exists.
func (s *TicketService) EnsureDemoData(ctx context.Context) error {
	exists, err := s.tickets.Exists(ctx)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if exists {
		return nil
	}
	tickets := seed.DemoTickets(s.now())
	if err := s.tickets.ReplaceAll(ctx, tickets); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("demo tickets seeded", zap.Int("tickets", len(tickets)))
	return nil
}

// ListAll returns the raw collection in insertion order, internal notes included.
func (s *TicketService) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

// List returns the tickets visible to the session in insertion order.
func (s *TicketService) List(ctx context.Context, session *domain.Session, filter TicketFilter) ([]domain.Ticket, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown status filter", map[string]any{"status": string(filter.Status)})
	}
	role := session.Role()
	if filter.All && !s.policy.Can(role, auth.ActionTicketReadAll) {
		return nil, apperrors.NewUnauthorized(fmt.Sprintf("role %q may not list all tickets", role))
	}

	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if !s.inScope(session, t, filter.All) {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if search != "" && !matchesSearch(t, search) {
			continue
		}
		out = append(out, t.ViewFor(role))
	}
	return out, nil
}

// Get returns one ticket as the session may see it.
func (s *TicketService) Get(ctx context.Context, session *domain.Session, id string) (*domain.Ticket, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "ticket", id)
	}
	if err := s.authorizeAccess(session, ticket); err != nil {
		return nil, err
	}
	view := ticket.ViewFor(session.Role())
	return &view, nil
}

// ValidateCreate runs the permission and input checks of Create without
// writing anything. Transports call it before storing uploaded files.
func (s *TicketService) ValidateCreate(session *domain.Session, input TicketCreateInput) error {
	if err := authorize(s.policy, session, auth.ActionTicketCreate); err != nil {
		return err
	}
	return s.validator.Validate(validation.DocumentTicketCreate, map[string]any{
		"title":       strings.TrimSpace(input.Title),
		"description": strings.TrimSpace(input.Description),
		"priority":    string(input.Priority),
		"department":  string(input.Department),
	})
}

// Create files a new ticket for the session user. Status always starts Open
// and the comment thread starts empty.
func (s *TicketService) Create(ctx context.Context, session *domain.Session, input TicketCreateInput) (*domain.Ticket, error) {
	if err := s.ValidateCreate(session, input); err != nil {
		return nil, err
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)

	now := s.now().UTC()
	attachments := append([]domain.Attachment{}, input.Attachments...)
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		Status:      domain.TicketStatusOpen,
		Priority:    input.Priority,
		Department:  input.Department,
		CreatedBy:   session.User.CreatorRef(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Attachments: attachments,
		Comments:    []domain.Comment{},
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, mapRepoError(err, "ticket", ticket.ID)
	}
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("created_by", ticket.CreatedBy.ID),
		zap.String("priority", string(ticket.Priority)),
		zap.String("department", string(ticket.Department)))

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.ActorFromSession(session),
		Payload:  events.TicketCreatedPayload{Ticket: ticket.Clone()},
	})
	view := ticket.ViewFor(session.Role())
	return &view, nil
}

// Update merges patch into the stored ticket and bumps updatedAt.
func (s *TicketService) Update(ctx context.Context, session *domain.Session, id string, patch TicketPatch) (*domain.Ticket, error) {
	ticket, _, err := s.apply(ctx, session, id, patch)
	return ticket, err
}

// AddComment appends a comment stamped with the session user. Customer
// comments are always public.
func (s *TicketService) AddComment(ctx context.Context, session *domain.Session, ticketID, content string, isInternalNote bool) (*domain.Comment, error) {
	_, comment, err := s.apply(ctx, session, ticketID, TicketPatch{
		Comment: &CommentInput{Content: content, IsInternalNote: isInternalNote},
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// SubmitRating records the creator's satisfaction score.
func (s *TicketService) SubmitRating(ctx context.Context, session *domain.Session, ticketID string, rating int) (*domain.Ticket, error) {
	return s.Update(ctx, session, ticketID, TicketPatch{Rating: &rating})
}

// AddAttachment appends an uploaded attachment reference.
func (s *TicketService) AddAttachment(ctx context.Context, session *domain.Session, ticketID string, attachment domain.Attachment) (*domain.Ticket, error) {
	if err := authorize(s.policy, session, auth.ActionTicketAttach); err != nil {
		return nil, err
	}
	updated, err := s.tickets.Mutate(ctx, ticketID, func(t *domain.Ticket) error {
		if err := s.authorizeAccess(session, t); err != nil {
			return err
		}
		t.Attachments = append(t.Attachments, attachment)
		t.UpdatedAt = s.stamp(t)
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}
	s.logger.Info("attachment added", zap.String("ticket_id", ticketID), zap.String("attachment_id", attachment.ID))
	view := updated.ViewFor(session.Role())
	return &view, nil
}

// Reopen moves a Resolved or Closed ticket back to Open.
func (s *TicketService) Reopen(ctx context.Context, session *domain.Session, ticketID string) (*domain.Ticket, error) {
	if err := authorize(s.policy, session, auth.ActionTicketReopen); err != nil {
		return nil, err
	}
	var previous domain.TicketStatus
	updated, err := s.tickets.Mutate(ctx, ticketID, func(t *domain.Ticket) error {
		if !domain.CanReopen(t.Status) {
			return apperrors.NewConflict("only resolved or closed tickets can be reopened", map[string]any{"status": string(t.Status)})
		}
		previous = t.Status
		t.Status = domain.TicketStatusOpen
		t.UpdatedAt = s.stamp(t)
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}

	s.logger.Info("ticket reopened", zap.String("ticket_id", ticketID), zap.String("from", string(previous)))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticketID,
		Actor:    events.ActorFromSession(session),
		Payload: events.TicketUpdatedPayload{
			Ticket:         updated.Clone(),
			PreviousStatus: previous,
			StatusChanged:  true,
			Fields:         []string{"status"},
		},
	})
	view := updated.ViewFor(session.Role())
	return &view, nil
}

func (s *TicketService) apply(ctx context.Context, session *domain.Session, id string, patch TicketPatch) (*domain.Ticket, *domain.Comment, error) {
	if err := requireSession(session); err != nil {
		return nil, nil, err
	}
	if err := s.validatePatch(patch); err != nil {
		return nil, nil, err
	}
	assignee, err := s.resolveAssignee(ctx, patch.AssigneeID)
	if err != nil {
		return nil, nil, err
	}

	role := session.Role()
	var (
		previous domain.TicketStatus
		comment  *domain.Comment
		fields   []string
	)
	updated, err := s.tickets.Mutate(ctx, id, func(t *domain.Ticket) error {
		if err := s.authorizeAccess(session, t); err != nil {
			return err
		}
		previous = t.Status

		if patch.Status != nil {
			if err := s.can(role, auth.ActionTicketStatus); err != nil {
				return err
			}
			if s.strict && !domain.IsValidTransition(t.Status, *patch.Status) {
				return apperrors.NewConflict("status transition not allowed", map[string]any{
					"from": string(t.Status),
					"to":   string(*patch.Status),
				})
			}
			t.Status = *patch.Status
			fields = append(fields, "status")
		}
		if patch.Priority != nil {
			if err := s.can(role, auth.ActionTicketPriority); err != nil {
				return err
			}
			t.Priority = *patch.Priority
			fields = append(fields, "priority")
		}
		if patch.AssigneeID != nil {
			if err := s.can(role, auth.ActionTicketAssign); err != nil {
				return err
			}
			t.AssignedTo = assignee
			fields = append(fields, "assignedTo")
		}
		if patch.ReminderDate != nil || patch.ClearReminder {
			if err := s.can(role, auth.ActionTicketReminder); err != nil {
				return err
			}
			t.ReminderDate = nil
			if patch.ReminderDate != nil {
				reminder := patch.ReminderDate.UTC()
				t.ReminderDate = &reminder
			}
			fields = append(fields, "reminderDate")
		}
		if patch.Rating != nil {
			if err := s.applyRating(session, t, *patch.Rating); err != nil {
				return err
			}
			fields = append(fields, "rating")
		}

		t.UpdatedAt = s.stamp(t)

		if patch.Comment != nil {
			c, err := s.newComment(session, t, *patch.Comment)
			if err != nil {
				return err
			}
			t.Comments = append(t.Comments, c)
			comment = &c
			fields = append(fields, "comments")
		}
		return nil
	})
	if err != nil {
		return nil, nil, mapRepoError(err, "ticket", id)
	}

	s.logger.Info("ticket updated",
		zap.String("ticket_id", id),
		zap.String("by", session.UserID()),
		zap.String("role", string(role)),
		zap.Strings("fields", fields))

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: id,
		Actor:    events.ActorFromSession(session),
		Payload: events.TicketUpdatedPayload{
			Ticket:         updated.Clone(),
			PreviousStatus: previous,
			StatusChanged:  updated.Status != previous,
			Comment:        comment,
			Fields:         append([]string{}, fields...),
		},
	})

	view := updated.ViewFor(role)
	return &view, comment, nil
}

func (s *TicketService) applyRating(session *domain.Session, t *domain.Ticket, rating int) error {
	if err := s.can(session.Role(), auth.ActionTicketRate); err != nil {
		return err
	}
	if !t.OwnedBy(session.UserID()) {
		return apperrors.NewUnauthorized("only the ticket creator may rate it")
	}
	if !t.Status.Finished() {
		return apperrors.NewConflict("ticket must be Resolved or Closed before rating", map[string]any{"status": string(t.Status)})
	}
	if t.Rating != nil {
		return apperrors.NewConflict("ticket already rated", map[string]any{"rating": *t.Rating})
	}
	value := rating
	t.Rating = &value
	return nil
}

func (s *TicketService) newComment(session *domain.Session, t *domain.Ticket, input CommentInput) (domain.Comment, error) {
	if err := s.can(session.Role(), auth.ActionCommentPublic); err != nil {
		return domain.Comment{}, err
	}
	internal := input.IsInternalNote && s.policy.Can(session.Role(), auth.ActionCommentNote)
	return domain.Comment{
		ID:             uuid.NewString(),
		TicketID:       t.ID,
		AuthorID:       session.User.ID,
		AuthorName:     session.User.Name,
		Content:        strings.TrimSpace(input.Content),
		CreatedAt:      t.UpdatedAt,
		IsInternalNote: internal,
	}, nil
}

func (s *TicketService) validatePatch(patch TicketPatch) error {
	doc := map[string]any{}
	if patch.Status != nil {
		doc["status"] = string(*patch.Status)
	}
	if patch.Priority != nil {
		doc["priority"] = string(*patch.Priority)
	}
	if patch.Rating != nil {
		doc["rating"] = *patch.Rating
	}
	if patch.AssigneeID != nil && *patch.AssigneeID != "" {
		doc["assignedTo"] = map[string]any{"id": *patch.AssigneeID}
	}
	if err := s.validator.Validate(validation.DocumentTicketUpdate, doc); err != nil {
		return err
	}
	if patch.Comment != nil {
		return s.validator.Validate(validation.DocumentComment, map[string]any{
			"content": strings.TrimSpace(patch.Comment.Content),
		})
	}
	return nil
}

// resolveAssignee returns nil for an absent or cleared assignee.
func (s *TicketService) resolveAssignee(ctx context.Context, assigneeID *string) (*domain.UserRef, error) {
	if assigneeID == nil || *assigneeID == "" {
		return nil, nil
	}
	user, err := s.users.GetByID(ctx, *assigneeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewValidationError("assignee not found", map[string]any{"assignedTo": *assigneeID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !user.Role.IsStaff() {
		return nil, apperrors.NewValidationError("assignee must be an agent or admin", map[string]any{"assignedTo": *assigneeID})
	}
	return &domain.UserRef{ID: user.ID, Name: user.Name}, nil
}

func (s *TicketService) can(role domain.Role, action auth.Action) error {
	if !s.policy.Can(role, action) {
		return apperrors.NewUnauthorized(fmt.Sprintf("role %q may not perform %s", role, action))
	}
	return nil
}

// authorizeAccess limits customers to their own tickets.
func (s *TicketService) authorizeAccess(session *domain.Session, t *domain.Ticket) error {
	role := session.Role()
	if !role.Valid() {
		return apperrors.NewUnauthorized(fmt.Sprintf("unknown role %q", role))
	}
	if role == domain.RoleCustomer && !t.OwnedBy(session.UserID()) {
		return apperrors.NewUnauthorized("customers may only access their own tickets")
	}
	return nil
}

func (s *TicketService) inScope(session *domain.Session, t domain.Ticket, all bool) bool {
	switch session.Role() {
	case domain.RoleCustomer:
		return t.OwnedBy(session.UserID())
	case domain.RoleAgent:
		return all || t.AssignedTo == nil || t.AssignedTo.ID == session.UserID()
	case domain.RoleAdmin:
		return true
	}
	return false
}

// stamp returns the next updatedAt: now, but strictly after the previous
// value and never before createdAt.
func (s *TicketService) stamp(t *domain.Ticket) time.Time {
	now := s.now().UTC()
	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Nanosecond)
	}
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	return now
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func matchesSearch(t domain.Ticket, needle string) bool {
	return strings.Contains(strings.ToLower(t.ID), needle) ||
		strings.Contains(strings.ToLower(t.Title), needle) ||
		strings.Contains(strings.ToLower(t.Description), needle)
}
