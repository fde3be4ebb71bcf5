package service

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// MetricsService computes the admin dashboard summary.
type MetricsService struct {
	tickets repository.TicketRepository
	policy  *auth.Policy
	now     func() time.Time
}

// NewMetricsService builds the service.
func NewMetricsService(tickets repository.TicketRepository, policy *auth.Policy, clock func() time.Time) *MetricsService {
	if clock == nil {
		clock = time.Now
	}
	return &MetricsService{tickets: tickets, policy: policy, now: clock}
}

// Report returns the summary. Admin only.
func (s *MetricsService) Report(ctx context.Context, session *domain.Session) (*domain.MetricsReport, error) {
	if err := authorize(s.policy, session, auth.ActionMetricsRead); err != nil {
		return nil, err
	}
	return s.Snapshot(ctx)
}

// Snapshot computes the summary without a session check. Used by the
// prometheus collector and the CLI.
func (s *MetricsService) Snapshot(ctx context.Context) (*domain.MetricsReport, error) {
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	report := domain.BuildMetricsReport(tickets, s.now())
	return &report, nil
}
