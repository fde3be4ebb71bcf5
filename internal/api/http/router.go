package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Attachments    *handlers.AttachmentsHandler
	Metrics        *handlers.MetricsHandler
	Prometheus     fiber.Handler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Prometheus != nil {
		app.Get("/metrics", cfg.Prometheus)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/session", cfg.Users.CurrentSession)
	authGroup.Post("/logout", cfg.Users.Logout)

	app.Get("/attachments/*", cfg.Attachments.Download)

	protected := app.Group("", cfg.AuthMiddleware.Handle)

	users := protected.Group("/users", auth.RequireRole(domain.RoleAdmin))
	users.Get("/", cfg.Users.ListUsers)
	users.Patch("/:id/role", cfg.Users.SetRole)

	tickets := protected.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Post("/:id/rating", cfg.Tickets.SubmitRating)
	tickets.Post("/:id/reopen", cfg.Tickets.Reopen)
	tickets.Post("/:id/attachments", cfg.Tickets.UploadAttachment)

	protected.Get("/admin/metrics", cfg.Metrics.Report)
}
