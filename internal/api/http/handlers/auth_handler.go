package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/qr-vault/internal/api/dto"
	"github.com/spec-kit/qr-vault/internal/service"
)

// AuthHandler exposes registration, local login, logout and password reset.
type AuthHandler struct {
	auth    *service.AuthService
	cookies CookieOptions
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cookies CookieOptions) *AuthHandler {
	return &AuthHandler{auth: authService, cookies: cookies}
}

// ViewRegister handles GET /register.
func (h *AuthHandler) ViewRegister(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"page": "register"})
}

// Register handles POST /register. On success the browser is sent to the
// login page; no session is created yet.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	if _, err := h.auth.Register(c.Context(), req.Name, req.Email, req.Password); err != nil {
		return err
	}
	return c.Redirect("/login", fiber.StatusFound)
}

// ViewLogin handles GET /login.
func (h *AuthHandler) ViewLogin(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"page": "login"})
}

// Login handles POST /login. Success sets the session cookie and sends the
// browser to the dashboard.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	_, token, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	setSessionCookie(c, h.cookies, token)
	return c.Redirect("/dashboard", fiber.StatusFound)
}

// Logout handles GET /logout. Destroying an unknown or absent token is a
// no-op; the cookie is cleared either way.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token := c.Cookies(h.cookies.Name)
	if err := h.auth.Logout(c.Context(), token); err != nil {
		return err
	}
	clearSessionCookie(c, h.cookies)
	return c.Redirect("/", fiber.StatusFound)
}

// RequestPasswordReset handles POST /auth/password/reset/request.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "email required")
	}

	token, err := h.auth.RequestPasswordReset(c.Context(), req.Email)
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"data": fiber.Map{
			"reset_token": token.Token,
			"expires_at":  token.ExpiresAt,
		},
	})
}

// ConfirmPasswordReset handles POST /auth/password/reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirm
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Token == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "token and new password required")
	}

	if err := h.auth.ConfirmPasswordReset(c.Context(), req.Token, req.Password); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password_reset"}})
}
