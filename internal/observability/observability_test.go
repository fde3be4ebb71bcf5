package observability

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestNewLoggerWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "helpdesk.log")
	logger, err := NewLogger(config.LoggerConfig{Level: "debug", FilePath: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	logger.Info("hello", zap.String("k", "v"))
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(raw), `"message":"hello"`) {
		t.Fatalf("log file content = %s", raw)
	}
}

func TestRequestLoggerRecordsMetrics(t *testing.T) {
	metrics := NewMetrics("helpdesk")
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), metrics))
	app.Get("/tickets/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })
	app.Get("/metrics", metrics.Handler())

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/tickets/abc", nil))
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	got := testutil.ToFloat64(metrics.requests.WithLabelValues("/tickets/:id", "GET", "404"))
	if got != 1 {
		t.Fatalf("request counter = %v, want 1", got)
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("app.Test(/metrics) error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "helpdesk_http_requests_total") {
		t.Fatalf("metrics output missing request counter")
	}
}

func TestTicketCollector(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rating := 5
	tickets := []domain.Ticket{
		{Status: domain.TicketStatusOpen, Department: domain.DepartmentBilling, CreatedAt: base, UpdatedAt: base},
		{Status: domain.TicketStatusResolved, Department: domain.DepartmentSales, CreatedAt: base, UpdatedAt: base.Add(2 * time.Hour), Rating: &rating},
	}
	source := func(context.Context) (*domain.MetricsReport, error) {
		report := domain.BuildMetricsReport(tickets, base)
		return &report, nil
	}

	collector := NewTicketCollector("helpdesk", source, nil)
	expected := `
# HELP helpdesk_tickets_open Tickets Open or In Progress.
# TYPE helpdesk_tickets_open gauge
helpdesk_tickets_open 1
# HELP helpdesk_tickets_ratings Number of rated tickets.
# TYPE helpdesk_tickets_ratings gauge
helpdesk_tickets_ratings 1
`
	if err := testutil.CollectAndCompare(collector, strings.NewReader(expected), "helpdesk_tickets_open", "helpdesk_tickets_ratings"); err != nil {
		t.Fatalf("CollectAndCompare() error: %v", err)
	}
	if n := testutil.CollectAndCount(collector, "helpdesk_tickets_by_status"); n != len(domain.TicketStatuses) {
		t.Fatalf("by_status series = %d", n)
	}
}

func TestTicketCollectorSourceFailure(t *testing.T) {
	collector := NewTicketCollector("helpdesk", func(context.Context) (*domain.MetricsReport, error) {
		return nil, errors.New("store down")
	}, nil)
	if n := testutil.CollectAndCount(collector); n != 0 {
		t.Fatalf("collected %d metrics from failing source", n)
	}
}
