package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify"
)

// Deliverer hands a notification to the outbound sink without waiting.
type Deliverer interface {
	Deliver(ctx context.Context, n notify.Notification)
}

// NotificationService turns ticket events into notifications.
type NotificationService struct {
	dispatcher     events.Dispatcher
	deliverer      Deliverer
	logger         *zap.Logger
	adminRecipient string
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, deliverer Deliverer, logger *zap.Logger, adminRecipient string) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher:     dispatcher,
		deliverer:      deliverer,
		logger:         logger,
		adminRecipient: adminRecipient,
	}
}

// RegisterHandlers subscribes to ticket events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.deliver(ctx, event, TicketCreatedNotification(n.adminRecipient, payload.Ticket, event.Actor.Name))
	return nil
}

// handleTicketUpdated notifies the creator when an agent changed the status
// or added a public comment. An internal note suppresses the message.
func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketUpdatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if event.Actor.Role != domain.RoleAgent {
		return nil
	}
	if !payload.StatusChanged && payload.Comment == nil {
		return nil
	}
	if payload.InternalNoteAdded() {
		return nil
	}

	recipient := strings.TrimSpace(payload.Ticket.CreatedBy.Email)
	if recipient == "" {
		n.logger.Warn("ticket creator has no email", zap.String("ticket_id", event.TicketID))
		return nil
	}
	n.deliver(ctx, event, TicketUpdatedNotification(recipient, payload.Ticket, payload.Comment != nil))
	return nil
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event, msg notify.Notification) {
	n.logger.Debug("notification queued",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("recipient", msg.Recipient))
	if n.deliverer != nil {
		n.deliverer.Deliver(ctx, msg)
	}
}

// TicketCreatedNotification builds the message sent to the admin recipient.
func TicketCreatedNotification(recipient string, t domain.Ticket, creatorName string) notify.Notification {
	if creatorName == "" {
		creatorName = t.CreatedBy.Name
	}
	return notify.Notification{
		Recipient: recipient,
		Subject:   "New Ticket Created: " + t.Title,
		Body:      fmt.Sprintf("A new ticket titled \"%s\" has been created by %s.", t.Title, creatorName),
	}
}

// TicketUpdatedNotification builds the message sent to the ticket creator.
func TicketUpdatedNotification(recipient string, t domain.Ticket, commentAdded bool) notify.Notification {
	body := fmt.Sprintf("Your ticket \"%s\" has been updated. New status: %s.", t.Title, t.Status)
	if commentAdded {
		body += " A new comment has been added."
	}
	return notify.Notification{
		Recipient: recipient,
		Subject:   "Update on your ticket: " + t.Title,
		Body:      body,
	}
}
