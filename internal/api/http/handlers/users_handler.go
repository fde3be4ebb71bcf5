package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// UsersHandler exposes session and directory endpoints.
type UsersHandler struct {
	directory *service.DirectoryService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(directory *service.DirectoryService) *UsersHandler {
	return &UsersHandler{directory: directory}
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" {
		return apperrors.NewValidationError("email required", map[string]any{"email": "required"})
	}

	session, err := h.directory.Authenticate(c.UserContext(), req.Email, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(session)})
}

// CurrentSession handles GET /auth/session. Data is null when nobody is logged in.
func (h *UsersHandler) CurrentSession(c *fiber.Ctx) error {
	session, err := h.directory.CurrentSession(c.UserContext())
	if err != nil {
		return err
	}
	if session == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(session)})
}

// Logout handles POST /auth/logout.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	if err := h.directory.EndSession(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListUsers handles GET /users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	session, _ := auth.SessionFromContext(c)
	users, err := h.directory.ListUsers(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": users})
}

// SetRole handles PATCH /users/:id/role.
func (h *UsersHandler) SetRole(c *fiber.Ctx) error {
	session, _ := auth.SessionFromContext(c)
	var req dto.SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.directory.SetRole(c.UserContext(), session, c.Params("id"), domain.Role(strings.TrimSpace(string(req.Role))))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}
