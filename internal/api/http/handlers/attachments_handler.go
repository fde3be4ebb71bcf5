package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/attachments"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AttachmentsHandler streams stored attachment bytes.
type AttachmentsHandler struct {
	storage *attachments.Storage
}

// NewAttachmentsHandler constructs handler.
func NewAttachmentsHandler(storage *attachments.Storage) *AttachmentsHandler {
	return &AttachmentsHandler{storage: storage}
}

// Download GET /attachments/*.
func (h *AttachmentsHandler) Download(c *fiber.Ctx) error {
	key, err := url.PathUnescape(c.Params("*"))
	if err != nil || key == "" {
		return apperrors.NewNotFound("attachment", map[string]any{"key": c.Params("*")})
	}
	obj, err := h.storage.Open(c.UserContext(), key)
	if err != nil {
		return err
	}
	if obj.ContentType != "" {
		c.Set(fiber.HeaderContentType, obj.ContentType)
	}
	return c.SendStream(obj, int(obj.Size))
}
