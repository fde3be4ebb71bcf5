package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
	EventTicketUpdated EventType = "ticket_updated"
)

// Actor describes who triggered an event.
type Actor struct {
	UserID string      `json:"userId"`
	Name   string      `json:"name"`
	Role   domain.Role `json:"role"`
}

// ActorFromSession snapshots the session user.
func ActorFromSession(session *domain.Session) Actor {
	if session == nil {
		return Actor{}
	}
	return Actor{UserID: session.User.ID, Name: session.User.Name, Role: session.User.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticketId"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload carries the stored ticket.
type TicketCreatedPayload struct {
	Ticket domain.Ticket `json:"ticket"`
}

// TicketUpdatedPayload describes one applied update.
type TicketUpdatedPayload struct {
	Ticket         domain.Ticket       `json:"ticket"`
	PreviousStatus domain.TicketStatus `json:"previousStatus"`
	StatusChanged  bool                `json:"statusChanged"`
	Comment        *domain.Comment     `json:"comment,omitempty"`
	Fields         []string            `json:"fields"`
}

// InternalNoteAdded reports whether the update appended an internal note.
func (p TicketUpdatedPayload) InternalNoteAdded() bool {
	return p.Comment != nil && p.Comment.IsInternalNote
}
