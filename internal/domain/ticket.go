package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "Open"
	TicketStatusInProgress      TicketStatus = "In Progress"
	TicketStatusPendingCustomer TicketStatus = "Pending Customer"
	TicketStatusResolved        TicketStatus = "Resolved"
	TicketStatusClosed          TicketStatus = "Closed"
)

// TicketStatuses lists statuses in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusPendingCustomer,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Finished is true for Resolved and Closed, the states that accept a rating.
func (s TicketStatus) Finished() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityHigh   TicketPriority = "High"
	TicketPriorityUrgent TicketPriority = "Urgent"
)

// TicketPriorities lists priorities from lowest to highest.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	for _, candidate := range TicketPriorities {
		if p == candidate {
			return true
		}
	}
	return false
}

// Department routes a ticket to a team.
type Department string

const (
	DepartmentTechnicalSupport Department = "Technical Support"
	DepartmentBilling          Department = "Billing"
	DepartmentGeneralInquiry   Department = "General Inquiry"
	DepartmentSales            Department = "Sales"
)

// Departments lists all departments.
var Departments = []Department{
	DepartmentTechnicalSupport,
	DepartmentBilling,
	DepartmentGeneralInquiry,
	DepartmentSales,
}

// Valid reports whether d is a known department.
func (d Department) Valid() bool {
	for _, candidate := range Departments {
		if d == candidate {
			return true
		}
	}
	return false
}

// MinRating and MaxRating bound the satisfaction score.
const (
	MinRating = 1
	MaxRating = 5
)

// Ticket is the aggregate root. Comments and attachments are owned by it.
type Ticket struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Status       TicketStatus   `json:"status"`
	Priority     TicketPriority `json:"priority"`
	Department   Department     `json:"department"`
	CreatedBy    UserRef        `json:"createdBy"`
	AssignedTo   *UserRef       `json:"assignedTo,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	Attachments  []Attachment   `json:"attachments"`
	Comments     []Comment      `json:"comments"`
	Rating       *int           `json:"rating,omitempty"`
	ReminderDate *time.Time     `json:"reminderDate,omitempty"`
}

// Clone returns a deep copy so callers never alias stored slices.
func (t Ticket) Clone() Ticket {
	out := t
	if t.AssignedTo != nil {
		assignee := *t.AssignedTo
		out.AssignedTo = &assignee
	}
	out.Attachments = append([]Attachment{}, t.Attachments...)
	out.Comments = append([]Comment{}, t.Comments...)
	if t.Rating != nil {
		rating := *t.Rating
		out.Rating = &rating
	}
	if t.ReminderDate != nil {
		reminder := *t.ReminderDate
		out.ReminderDate = &reminder
	}
	return out
}

// PublicView drops internal notes. Used on every customer read path.
func (t Ticket) PublicView() Ticket {
	out := t.Clone()
	visible := make([]Comment, 0, len(out.Comments))
	for _, c := range out.Comments {
		if c.IsInternalNote {
			continue
		}
		visible = append(visible, c)
	}
	out.Comments = visible
	return out
}

// ViewFor returns the ticket as the given role may see it.
func (t Ticket) ViewFor(role Role) Ticket {
	if role.IsStaff() {
		return t.Clone()
	}
	return t.PublicView()
}

// OwnedBy reports whether userID created the ticket.
func (t Ticket) OwnedBy(userID string) bool {
	return userID != "" && t.CreatedBy.ID == userID
}
