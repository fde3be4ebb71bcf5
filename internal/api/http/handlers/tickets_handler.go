package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/attachments"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints for every role; the service decides
// what each session may do.
type TicketsHandler struct {
	service *service.TicketService
	storage *attachments.Storage
	logger  *zap.Logger
}

// NewTicketsHandler constructs handler. A nil logger discards output.
func NewTicketsHandler(ticketService *service.TicketService, storage *attachments.Storage, logger *zap.Logger) *TicketsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketsHandler{service: ticketService, storage: storage, logger: logger}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	session, _ := auth.SessionFromContext(c)
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	var files []*multipart.FileHeader
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return apperrors.NewValidationError("invalid multipart form", nil)
		}
		files = form.File["files"]
		for _, fh := range files {
			if err := h.storage.Validate(fh.Filename, fh.Header.Get(fiber.HeaderContentType), fh.Size); err != nil {
				return err
			}
		}
	}
	// Nothing reaches the bucket for a create the service would refuse.
	if err := h.service.ValidateCreate(session, req.Input(nil)); err != nil {
		return err
	}

	uploaded := make([]domain.Attachment, 0, len(files))
	for _, fh := range files {
		att, err := h.upload(c, fh)
		if err != nil {
			h.discard(c, uploaded)
			return err
		}
		uploaded = append(uploaded, *att)
	}

	ticket, err := h.service.Create(c.UserContext(), session, req.Input(uploaded))
	if err != nil {
		h.discard(c, uploaded)
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticket})
}

// ListTickets GET /tickets?status=&search=&all=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	session, _ := auth.SessionFromContext(c)
	filter := service.TicketFilter{
		Status: domain.TicketStatus(strings.TrimSpace(c.Query("status"))),
		Search: c.Query("search"),
		All:    c.QueryBool("all", false),
	}
	tickets, err := h.service.List(c.UserContext(), session, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": tickets})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	session, _ := auth.SessionFromContext(c)
	ticket, err := h.service.Get(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	session, _ := auth.SessionFromContext(c)
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", map[string]any{"body": err.Error()})
	}
	ticket, err := h.service.Update(c.UserContext(), session, c.Params("id"), req.Patch())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	session, _ := auth.SessionFromContext(c)
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.service.AddComment(c.UserContext(), session, c.Params("id"), req.Content, req.IsInternalNote)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": comment})
}

// SubmitRating POST /tickets/:id/rating.
func (h *TicketsHandler) SubmitRating(c *fiber.Ctx) error {
	session, _ := auth.SessionFromContext(c)
	var req dto.RatingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.SubmitRating(c.UserContext(), session, c.Params("id"), req.Rating)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// Reopen POST /tickets/:id/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	session, _ := auth.SessionFromContext(c)
	ticket, err := h.service.Reopen(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// UploadAttachment POST /tickets/:id/attachments with a multipart "file".
func (h *TicketsHandler) UploadAttachment(c *fiber.Ctx) error {
	session, _ := auth.SessionFromContext(c)
	fh, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file required", map[string]any{"file": "required"})
	}
	if err := h.storage.Validate(fh.Filename, fh.Header.Get(fiber.HeaderContentType), fh.Size); err != nil {
		return err
	}
	// Access check before the blob write.
	if _, err := h.service.Get(c.UserContext(), session, c.Params("id")); err != nil {
		return err
	}

	att, err := h.upload(c, fh)
	if err != nil {
		return err
	}
	ticket, err := h.service.AddAttachment(c.UserContext(), session, c.Params("id"), *att)
	if err != nil {
		h.discard(c, []domain.Attachment{*att})
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"attachment": att,
		"ticket":     ticket,
	}})
}

func (h *TicketsHandler) upload(c *fiber.Ctx, fh *multipart.FileHeader) (*domain.Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("open upload %s: %w", fh.Filename, err))
	}
	defer f.Close()
	return h.storage.Upload(c.UserContext(), fh.Filename, fh.Header.Get(fiber.HeaderContentType), fh.Size, f)
}

// discard removes blobs written for a request that then failed.
func (h *TicketsHandler) discard(c *fiber.Ctx, uploaded []domain.Attachment) {
	for _, att := range uploaded {
		if err := h.storage.Remove(c.UserContext(), att); err != nil {
			h.logger.Warn("orphaned attachment", zap.String("url", att.URL), zap.Error(err))
		}
	}
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(string(c.Request().Header.ContentType())), fiber.MIMEMultipartForm)
}
