package domain

import "time"

// Comment is an append-only entry in a ticket thread.
type Comment struct {
	ID             string    `json:"id"`
	TicketID       string    `json:"ticketId"`
	AuthorID       string    `json:"authorId"`
	AuthorName     string    `json:"authorName"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
	IsInternalNote bool      `json:"isInternalNote"`
}

// Attachment references bytes held by the attachment storage collaborator.
type Attachment struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}
