package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/service"
)

// MetricsHandler serves the admin dashboard summary.
type MetricsHandler struct {
	metrics *service.MetricsService
}

// NewMetricsHandler constructs handler.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Report GET /admin/metrics.
func (h *MetricsHandler) Report(c *fiber.Ctx) error {
	session, _ := auth.SessionFromContext(c)
	report, err := h.metrics.Report(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}
