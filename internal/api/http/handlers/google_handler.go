package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/qr-vault/internal/federation"
	"github.com/spec-kit/qr-vault/internal/service"
)

const stateCookieName = "oauth_state"

// GoogleHandler drives the browser-facing half of the Google sign-in flow.
// Any failure past the initial redirect lands back on the login surface with
// no session created; provider detail stays in the logs.
type GoogleHandler struct {
	google  *federation.GoogleClient
	enabled bool
	auth    *service.AuthService
	cookies CookieOptions
	logger  *zap.Logger
}

// NewGoogleHandler constructs handler.
func NewGoogleHandler(google *federation.GoogleClient, enabled bool, authService *service.AuthService, cookies CookieOptions, logger *zap.Logger) *GoogleHandler {
	return &GoogleHandler{
		google:  google,
		enabled: enabled,
		auth:    authService,
		cookies: cookies,
		logger:  logger,
	}
}

// Begin handles GET /auth/google.
func (h *GoogleHandler) Begin(c *fiber.Ctx) error {
	if !h.enabled {
		return c.Redirect("/login", fiber.StatusFound)
	}

	state, err := federation.NewState()
	if err != nil {
		h.logger.Error("state generation failed", zap.Error(err))
		return c.Redirect("/login", fiber.StatusFound)
	}

	c.Cookie(&fiber.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
	return c.Redirect(h.google.AuthCodeURL(state), fiber.StatusFound)
}

// Callback handles GET /auth/google/callback.
func (h *GoogleHandler) Callback(c *fiber.Ctx) error {
	defer h.clearStateCookie(c)

	if !h.enabled {
		return c.Redirect("/login", fiber.StatusFound)
	}
	if providerErr := c.Query("error"); providerErr != "" {
		h.logger.Warn("provider returned error", zap.String("error", providerErr))
		return c.Redirect("/login", fiber.StatusFound)
	}

	state := c.Query("state")
	if state == "" || state != c.Cookies(stateCookieName) {
		h.logger.Warn("state mismatch on callback")
		return c.Redirect("/login", fiber.StatusFound)
	}

	code := c.Query("code")
	if code == "" {
		return c.Redirect("/login", fiber.StatusFound)
	}

	profile, err := h.google.Exchange(c.UserContext(), code)
	if err != nil {
		h.logger.Warn("code exchange failed", zap.Error(err))
		return c.Redirect("/login", fiber.StatusFound)
	}

	_, token, err := h.auth.CompleteGoogleLogin(c.Context(), profile)
	if err != nil {
		h.logger.Warn("federated login failed", zap.Error(err))
		return c.Redirect("/login", fiber.StatusFound)
	}

	setSessionCookie(c, h.cookies, token)
	return c.Redirect("/dashboard", fiber.StatusFound)
}

func (h *GoogleHandler) clearStateCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}
