package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/persistence"
)

func sampleTicket(id string) domain.Ticket {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return domain.Ticket{
		ID:          id,
		Title:       "Printer on fire",
		Description: "The office printer is emitting smoke again.",
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityHigh,
		Department:  domain.DepartmentTechnicalSupport,
		CreatedBy:   domain.UserRef{ID: "user1", Name: "Alice Wonderland", Email: "customer1@example.com"},
		CreatedAt:   now,
		UpdatedAt:   now,
		Attachments: []domain.Attachment{},
		Comments:    []domain.Comment{},
	}
}

func TestTicketRepositoryEmptyCollection(t *testing.T) {
	repo := NewTicketRepository(persistence.NewMemoryStore())
	ctx := context.Background()

	tickets, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(tickets) != 0 {
		t.Fatalf("List() = %d tickets, want 0", len(tickets))
	}
	exists, err := repo.Exists(ctx)
	if err != nil || exists {
		t.Fatalf("Exists() = %v, %v; want false, nil", exists, err)
	}
	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID(missing) error = %v, want ErrNotFound", err)
	}
}

func TestTicketRepositoryCreatePreservesInsertionOrder(t *testing.T) {
	repo := NewTicketRepository(persistence.NewMemoryStore())
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c"} {
		ticket := sampleTicket(id)
		if err := repo.Create(ctx, &ticket); err != nil {
			t.Fatalf("Create(%s) error: %v", id, err)
		}
	}
	dup := sampleTicket("a")
	if err := repo.Create(ctx, &dup); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("Create(duplicate) error = %v, want ErrDuplicateID", err)
	}

	tickets, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	var got []string
	for _, ticket := range tickets {
		got = append(got, ticket.ID)
	}
	if fmt.Sprint(got) != "[b a c]" {
		t.Fatalf("List() order = %v, want [b a c]", got)
	}
}

func TestTicketRepositoryMutate(t *testing.T) {
	repo := NewTicketRepository(persistence.NewMemoryStore())
	ctx := context.Background()
	ticket := sampleTicket("t1")
	if err := repo.Create(ctx, &ticket); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	updated, err := repo.Mutate(ctx, "t1", func(tk *domain.Ticket) error {
		tk.Status = domain.TicketStatusResolved
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate() error: %v", err)
	}
	if updated.Status != domain.TicketStatusResolved {
		t.Fatalf("Mutate() status = %s", updated.Status)
	}

	stored, _ := repo.GetByID(ctx, "t1")
	if stored.Status != domain.TicketStatusResolved {
		t.Fatalf("stored status = %s, want Resolved", stored.Status)
	}

	rejected := errors.New("rejected")
	_, err = repo.Mutate(ctx, "t1", func(tk *domain.Ticket) error {
		tk.Status = domain.TicketStatusClosed
		return rejected
	})
	if !errors.Is(err, rejected) {
		t.Fatalf("Mutate() error = %v, want rejected", err)
	}
	stored, _ = repo.GetByID(ctx, "t1")
	if stored.Status != domain.TicketStatusResolved {
		t.Fatalf("failed mutation leaked status %s", stored.Status)
	}

	if _, err := repo.Mutate(ctx, "nope", func(*domain.Ticket) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Mutate(missing) error = %v, want ErrNotFound", err)
	}
}

func TestTicketRepositoryConcurrentMutateKeepsEveryComment(t *testing.T) {
	repo := NewTicketRepository(persistence.NewMemoryStore())
	ctx := context.Background()
	ticket := sampleTicket("t1")
	if err := repo.Create(ctx, &ticket); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := repo.Mutate(ctx, "t1", func(tk *domain.Ticket) error {
				tk.Comments = append(tk.Comments, domain.Comment{ID: fmt.Sprintf("c%d", n), TicketID: "t1"})
				return nil
			})
			if err != nil {
				t.Errorf("Mutate() error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	stored, err := repo.GetByID(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if len(stored.Comments) != writers {
		t.Fatalf("comments = %d, want %d", len(stored.Comments), writers)
	}
}

func TestTicketRepositoryRoundTripsJSON(t *testing.T) {
	store := persistence.NewMemoryStore()
	repo := NewTicketRepository(store)
	ctx := context.Background()

	ticket := sampleTicket("t1")
	rating := 4
	reminder := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ticket.Rating = &rating
	ticket.ReminderDate = &reminder
	ticket.AssignedTo = &domain.UserRef{ID: "user2", Name: "Bob The Builder"}
	ticket.Comments = []domain.Comment{{ID: "c1", TicketID: "t1", AuthorID: "user2", AuthorName: "Bob", Content: "on it", CreatedAt: reminder, IsInternalNote: true}}
	if err := repo.Create(ctx, &ticket); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	reloaded, err := NewTicketRepository(store).GetByID(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if *reloaded.Rating != 4 || !reloaded.ReminderDate.Equal(reminder) {
		t.Fatalf("optional fields lost: %+v", reloaded)
	}
	if reloaded.AssignedTo == nil || reloaded.AssignedTo.ID != "user2" {
		t.Fatalf("assignee lost: %+v", reloaded.AssignedTo)
	}
	if len(reloaded.Comments) != 1 || !reloaded.Comments[0].IsInternalNote {
		t.Fatalf("comments lost: %+v", reloaded.Comments)
	}
}

func TestTicketRepositoryDecodeFailure(t *testing.T) {
	store := persistence.NewMemoryStore()
	ctx := context.Background()
	if err := store.Set(ctx, KeyTickets, []byte("{not json")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if _, err := NewTicketRepository(store).List(ctx); err == nil {
		t.Fatal("List() over corrupt record should fail")
	}
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(persistence.NewMemoryStore())
	ctx := context.Background()

	users := []domain.User{
		{ID: "user1", Email: "customer1@example.com", Name: "Alice Wonderland", Role: domain.RoleCustomer},
		{ID: "user2", Email: "agent1@example.com", Name: "Bob The Builder", Role: domain.RoleAgent},
	}
	if err := repo.ReplaceAll(ctx, users); err != nil {
		t.Fatalf("ReplaceAll() error: %v", err)
	}

	user, err := repo.GetByEmail(ctx, "CUSTOMER1@example.com")
	if err != nil || user.ID != "user1" {
		t.Fatalf("GetByEmail() = %+v, %v", user, err)
	}
	if _, err := repo.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByEmail(miss) error = %v", err)
	}

	promoted := users[1]
	promoted.Role = domain.RoleAdmin
	if err := repo.Update(ctx, &promoted); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	got, _ := repo.GetByID(ctx, "user2")
	if got.Role != domain.RoleAdmin {
		t.Fatalf("role = %s, want admin", got.Role)
	}

	ghost := domain.User{ID: "ghost"}
	if err := repo.Update(ctx, &ghost); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update(missing) error = %v", err)
	}
}

func TestSessionRepository(t *testing.T) {
	repo := NewSessionRepository(persistence.NewMemoryStore())
	ctx := context.Background()

	user, err := repo.Load(ctx)
	if err != nil || user != nil {
		t.Fatalf("Load() on empty store = %+v, %v", user, err)
	}

	snapshot := domain.User{ID: "user1", Email: "customer1@example.com", Name: "Alice", Role: domain.RoleAdmin}
	if err := repo.Save(ctx, snapshot); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	user, err = repo.Load(ctx)
	if err != nil || user == nil || *user != snapshot {
		t.Fatalf("Load() = %+v, %v", user, err)
	}

	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if user, _ := repo.Load(ctx); user != nil {
		t.Fatalf("Load() after Clear = %+v", user)
	}
}
