package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/qr-vault/internal/api/dto"
	"github.com/spec-kit/qr-vault/internal/auth"
)

// HomeHandler serves the landing page payload.
type HomeHandler struct{}

// NewHomeHandler returns a new handler instance.
func NewHomeHandler() *HomeHandler {
	return &HomeHandler{}
}

// Home handles GET /. The page is public; the user field is null for
// anonymous visitors.
func (h *HomeHandler) Home(c *fiber.Ctx) error {
	var user *dto.UserResponse
	if u, ok := auth.UserFromContext(c); ok {
		user = &dto.UserResponse{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return c.JSON(fiber.Map{
		"page": "index",
		"user": user,
	})
}
