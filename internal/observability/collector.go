package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ReportSource yields the current ticket summary at scrape time.
type ReportSource func(ctx context.Context) (*domain.MetricsReport, error)

// TicketCollector exposes the ticket summary as gauges.
type TicketCollector struct {
	source  ReportSource
	logger  *zap.Logger
	timeout time.Duration

	byStatus     *prometheus.Desc
	byDepartment *prometheus.Desc
	open         *prometheus.Desc
	resolution   *prometheus.Desc
	rating       *prometheus.Desc
	ratingCount  *prometheus.Desc
}

// NewTicketCollector builds a collector over source.
func NewTicketCollector(namespace string, source ReportSource, logger *zap.Logger) *TicketCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := func(n string) string { return prometheus.BuildFQName(namespace, "tickets", n) }
	return &TicketCollector{
		source:       source,
		logger:       logger,
		timeout:      5 * time.Second,
		byStatus:     prometheus.NewDesc(name("by_status"), "Tickets per status.", []string{"status"}, nil),
		byDepartment: prometheus.NewDesc(name("by_department"), "Tickets per department.", []string{"department"}, nil),
		open:         prometheus.NewDesc(name("open"), "Tickets Open or In Progress.", nil, nil),
		resolution:   prometheus.NewDesc(name("resolution_hours_avg"), "Mean hours from creation to last update over resolved and closed tickets.", nil, nil),
		rating:       prometheus.NewDesc(name("rating_avg"), "Mean customer satisfaction rating.", nil, nil),
		ratingCount:  prometheus.NewDesc(name("ratings"), "Number of rated tickets.", nil, nil),
	}
}

func (c *TicketCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.byStatus
	ch <- c.byDepartment
	ch <- c.open
	ch <- c.resolution
	ch <- c.rating
	ch <- c.ratingCount
}

func (c *TicketCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	report, err := c.source(ctx)
	if err != nil {
		c.logger.Warn("ticket metrics unavailable", zap.Error(err))
		return
	}

	for _, status := range domain.TicketStatuses {
		ch <- prometheus.MustNewConstMetric(c.byStatus, prometheus.GaugeValue, float64(report.ByStatus[status]), string(status))
	}
	for _, dept := range domain.Departments {
		ch <- prometheus.MustNewConstMetric(c.byDepartment, prometheus.GaugeValue, float64(report.ByDepartment[dept]), string(dept))
	}
	ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, float64(report.OpenTickets))
	ch <- prometheus.MustNewConstMetric(c.resolution, prometheus.GaugeValue, report.AverageResolutionHours)
	ch <- prometheus.MustNewConstMetric(c.rating, prometheus.GaugeValue, report.AverageRating)
	ch <- prometheus.MustNewConstMetric(c.ratingCount, prometheus.GaugeValue, float64(report.RatingCount))
}
