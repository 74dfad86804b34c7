package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/qr-vault/internal/api/dto"
	"github.com/spec-kit/qr-vault/internal/auth"
	"github.com/spec-kit/qr-vault/internal/service"
)

// QRHandler exposes the protected dashboard and generation endpoints.
type QRHandler struct {
	qr *service.QRService
}

// NewQRHandler constructs handler.
func NewQRHandler(qrService *service.QRService) *QRHandler {
	return &QRHandler{qr: qrService}
}

// Dashboard handles GET /dashboard: the user plus their history, newest first.
func (h *QRHandler) Dashboard(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	codes, err := h.qr.ListFor(c.Context(), user.ID)
	if err != nil {
		return err
	}

	entries := make([]dto.QRCodeResponse, 0, len(codes))
	for _, code := range codes {
		entries = append(entries, dto.QRCodeResponse{
			ID:        code.ID,
			Content:   code.Content,
			CreatedAt: code.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"page": "dashboard",
		"user": dto.UserResponse{ID: user.ID, Name: user.Name, Email: user.Email},
		"qrs":  entries,
	})
}

// Generate handles POST /generate: issues a QR code and answers with the
// PNG bytes. The durable record is written before any byte leaves.
func (h *QRHandler) Generate(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	_, png, err := h.qr.Issue(c.Context(), user, req.Data)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}
