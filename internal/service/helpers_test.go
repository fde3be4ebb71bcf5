package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/validation"
)

type recordingDeliverer struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingDeliverer) Deliver(_ context.Context, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingDeliverer) all() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification{}, r.sent...)
}

func (r *recordingDeliverer) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

// testClock advances by step on every read.
type testClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func (c *testClock) setStep(step time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = step
}

type testEnv struct {
	store      *persistence.MemoryStore
	userRepo   repository.UserRepository
	ticketRepo repository.TicketRepository
	directory  *DirectoryService
	tickets    *TicketService
	metrics    *MetricsService
	sent       *recordingDeliverer
	clock      *testClock
}

type envOption func(*TicketDependencies, *DirectoryDependencies)

func withStrictTransitions() envOption {
	return func(td *TicketDependencies, _ *DirectoryDependencies) { td.StrictTransitions = true }
}

func withoutRoleOverride() envOption {
	return func(_ *TicketDependencies, dd *DirectoryDependencies) { dd.AllowRoleOverride = false }
}

func withDeliverer(d Deliverer) envOption {
	return func(td *TicketDependencies, _ *DirectoryDependencies) {
		NewNotificationService(td.Dispatcher, d, nil, "admin@example.com").RegisterHandlers()
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	ctx := context.Background()

	policy, err := auth.NewPolicy()
	if err != nil {
		t.Fatalf("NewPolicy() error: %v", err)
	}
	validator, err := validation.New()
	if err != nil {
		t.Fatalf("validation.New() error: %v", err)
	}

	store := persistence.NewMemoryStore()
	userRepo := repository.NewUserRepository(store)
	ticketRepo := repository.NewTicketRepository(store)
	clock := &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), step: time.Second}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())

	ticketDeps := TicketDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		Policy:     policy,
		Validator:  validator,
		Dispatcher: dispatcher,
		Clock:      clock.Now,
	}
	directoryDeps := DirectoryDependencies{
		UserRepo:          userRepo,
		SessionRepo:       repository.NewSessionRepository(store),
		Tokens:            auth.NewTokenManager("test-secret", time.Hour),
		Policy:            policy,
		AllowRoleOverride: true,
	}
	for _, opt := range opts {
		opt(&ticketDeps, &directoryDeps)
	}

	sent := &recordingDeliverer{}
	NewNotificationService(dispatcher, sent, nil, "admin@example.com").RegisterHandlers()

	env := &testEnv{
		store:      store,
		userRepo:   userRepo,
		ticketRepo: ticketRepo,
		directory:  NewDirectoryService(directoryDeps),
		tickets:    NewTicketService(ticketDeps),
		metrics:    NewMetricsService(ticketRepo, policy, clock.Now),
		sent:       sent,
		clock:      clock,
	}
	if err := env.directory.EnsureSeeded(ctx); err != nil {
		t.Fatalf("EnsureSeeded() error: %v", err)
	}
	if err := env.tickets.EnsureDemoData(ctx); err != nil {
		t.Fatalf("EnsureDemoData() error: %v", err)
	}
	return env
}

func (e *testEnv) login(t *testing.T, email string) *domain.Session {
	t.Helper()
	session, err := e.directory.Authenticate(context.Background(), email, nil)
	if err != nil {
		t.Fatalf("Authenticate(%s) error: %v", email, err)
	}
	return session
}

func (e *testEnv) customer1(t *testing.T) *domain.Session { return e.login(t, "customer1@example.com") }
func (e *testEnv) customer2(t *testing.T) *domain.Session { return e.login(t, "customer2@example.com") }
func (e *testEnv) agent1(t *testing.T) *domain.Session    { return e.login(t, "agent1@example.com") }
func (e *testEnv) agent2(t *testing.T) *domain.Session    { return e.login(t, "agent2@example.com") }
func (e *testEnv) admin(t *testing.T) *domain.Session     { return e.login(t, "admin1@example.com") }

func (e *testEnv) stored(t *testing.T, id string) domain.Ticket {
	t.Helper()
	ticket, err := e.ticketRepo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID(%s) error: %v", id, err)
	}
	return *ticket
}

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }
func stringPtr(s string) *string                          { return &s }
