package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// CookieOptions configures the session cookie written by login handlers.
type CookieOptions struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

func setSessionCookie(c *fiber.Ctx, opts CookieOptions, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     opts.Name,
		Value:    token,
		Expires:  time.Now().Add(opts.TTL),
		HTTPOnly: true,
		Secure:   opts.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}

func clearSessionCookie(c *fiber.Ctx, opts CookieOptions) {
	c.Cookie(&fiber.Cookie{
		Name:     opts.Name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   opts.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}
