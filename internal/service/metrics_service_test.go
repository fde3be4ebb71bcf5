package service

import (
	"context"
	"math"
	"testing"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestMetricsReportOnDemoData(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report, err := env.metrics.Report(ctx, env.admin(t))
	if err != nil {
		t.Fatalf("Report() error: %v", err)
	}

	wantStatus := map[domain.TicketStatus]int{
		domain.TicketStatusOpen:            2,
		domain.TicketStatusInProgress:      1,
		domain.TicketStatusPendingCustomer: 1,
		domain.TicketStatusResolved:        1,
		domain.TicketStatusClosed:          0,
	}
	for status, want := range wantStatus {
		if got := report.ByStatus[status]; got != want {
			t.Errorf("ByStatus[%s] = %d, want %d", status, got, want)
		}
	}
	if report.TotalTickets != 5 || report.OpenTickets != 3 || report.ResolvedTickets != 1 {
		t.Errorf("totals = %d/%d/%d", report.TotalTickets, report.OpenTickets, report.ResolvedTickets)
	}
	if report.ByDepartment[domain.DepartmentTechnicalSupport] != 2 {
		t.Errorf("technical support = %d", report.ByDepartment[domain.DepartmentTechnicalSupport])
	}
	if report.RatingCount != 2 || report.AverageRating != 4.5 {
		t.Errorf("ratings = %d avg %v", report.RatingCount, report.AverageRating)
	}
	if math.Abs(report.AverageResolutionHours-120) > 1e-9 {
		t.Errorf("AverageResolutionHours = %v, want 120", report.AverageResolutionHours)
	}
}

func TestMetricsReportRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.metrics.Report(ctx, env.agent1(t)); !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("agent Report() error = %v, want UNAUTHORIZED", err)
	}
	if _, err := env.metrics.Report(ctx, nil); !apperrors.HasCode(err, apperrors.CodeUnauthenticated) {
		t.Fatalf("nil session Report() error = %v, want UNAUTHENTICATED", err)
	}
}
