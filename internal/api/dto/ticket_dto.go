package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// CreateTicketRequest payload. Accepted as JSON or as multipart form fields
// alongside files[].
type CreateTicketRequest struct {
	Title       string                `json:"title" form:"title"`
	Description string                `json:"description" form:"description"`
	Priority    domain.TicketPriority `json:"priority" form:"priority"`
	Department  domain.Department     `json:"department" form:"department"`
	Status      domain.TicketStatus   `json:"status" form:"status"`
}

// Input converts the payload for the ticket service.
func (r CreateTicketRequest) Input(attachments []domain.Attachment) service.TicketCreateInput {
	return service.TicketCreateInput{
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		Department:  r.Department,
		Status:      r.Status,
		Attachments: attachments,
	}
}

// Nullable tells an absent field apart from an explicit null.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// AssigneeRequest identifies the staff member to assign.
type AssigneeRequest struct {
	ID string `json:"id"`
}

// UpdateTicketRequest payload for PATCH /tickets/:id. A null assignedTo
// unassigns; a null reminderDate clears the reminder.
type UpdateTicketRequest struct {
	Status       *domain.TicketStatus      `json:"status,omitempty"`
	Priority     *domain.TicketPriority    `json:"priority,omitempty"`
	AssignedTo   Nullable[AssigneeRequest] `json:"assignedTo"`
	Rating       *int                      `json:"rating,omitempty"`
	ReminderDate Nullable[time.Time]       `json:"reminderDate"`
	Comment      *CommentRequest           `json:"comment,omitempty"`
}

// Patch converts the payload for the ticket service.
func (r UpdateTicketRequest) Patch() service.TicketPatch {
	patch := service.TicketPatch{
		Status:   r.Status,
		Priority: r.Priority,
		Rating:   r.Rating,
	}
	if r.AssignedTo.Set {
		id := ""
		if r.AssignedTo.Value != nil {
			id = r.AssignedTo.Value.ID
		}
		patch.AssigneeID = &id
	}
	if r.ReminderDate.Set {
		patch.ReminderDate = r.ReminderDate.Value
		patch.ClearReminder = r.ReminderDate.Value == nil
	}
	if r.Comment != nil {
		patch.Comment = &service.CommentInput{Content: r.Comment.Content, IsInternalNote: r.Comment.IsInternalNote}
	}
	return patch
}

// CommentRequest payload for POST /tickets/:id/comments.
type CommentRequest struct {
	Content        string `json:"content"`
	IsInternalNote bool   `json:"isInternalNote"`
}

// RatingRequest payload for POST /tickets/:id/rating.
type RatingRequest struct {
	Rating int `json:"rating"`
}
