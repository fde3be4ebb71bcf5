package repository

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/persistence"
)

// TicketRepository encapsulates ticket persistence. The whole collection is
// stored under one key in insertion order.
type TicketRepository interface {
	List(ctx context.Context) ([]domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Mutate applies fn to the latest stored copy of ticket id and persists
	// the result. Nothing is written when fn returns an error.
	Mutate(ctx context.Context, id string, fn func(*domain.Ticket) error) (*domain.Ticket, error)
	ReplaceAll(ctx context.Context, tickets []domain.Ticket) error
	Exists(ctx context.Context) (bool, error)
}

type ticketRepository struct {
	tickets *collection[domain.Ticket]
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(store persistence.KVStore) TicketRepository {
	return &ticketRepository{tickets: newCollection[domain.Ticket](store, KeyTickets)}
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	tickets, _, err := r.tickets.load(ctx)
	return tickets, err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	tickets, _, err := r.tickets.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		if tickets[i].ID == id {
			return &tickets[i], nil
		}
	}
	return nil, ErrNotFound
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	return r.tickets.update(ctx, func(tickets []domain.Ticket) ([]domain.Ticket, error) {
		for i := range tickets {
			if tickets[i].ID == ticket.ID {
				return nil, ErrDuplicateID
			}
		}
		return append(tickets, ticket.Clone()), nil
	})
}

func (r *ticketRepository) Mutate(ctx context.Context, id string, fn func(*domain.Ticket) error) (*domain.Ticket, error) {
	var result domain.Ticket
	err := r.tickets.update(ctx, func(tickets []domain.Ticket) ([]domain.Ticket, error) {
		for i := range tickets {
			if tickets[i].ID != id {
				continue
			}
			working := tickets[i].Clone()
			if err := fn(&working); err != nil {
				return nil, err
			}
			tickets[i] = working
			result = working.Clone()
			return tickets, nil
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ticketRepository) ReplaceAll(ctx context.Context, tickets []domain.Ticket) error {
	return r.tickets.update(ctx, func([]domain.Ticket) ([]domain.Ticket, error) {
		return append([]domain.Ticket{}, tickets...), nil
	})
}

func (r *ticketRepository) Exists(ctx context.Context) (bool, error) {
	return r.tickets.exists(ctx)
}
