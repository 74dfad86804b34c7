package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/qr-vault/internal/api/http/handlers"
	"github.com/spec-kit/qr-vault/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Home              *handlers.HomeHandler
	Auth              *handlers.AuthHandler
	Google            *handlers.GoogleHandler
	QR                *handlers.QRHandler
	SessionMiddleware *auth.SessionMiddleware
}

// RegisterRoutes wires HTTP routes. The session middleware resolves the
// cookie for every route below it; RequireUser gates the protected group.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Use(cfg.SessionMiddleware.Handle)

	app.Get("/", cfg.Home.Home)

	app.Get("/auth/google", cfg.Google.Begin)
	app.Get("/auth/google/callback", cfg.Google.Callback)

	app.Get("/register", cfg.Auth.ViewRegister)
	app.Post("/register", cfg.Auth.Register)
	app.Get("/login", cfg.Auth.ViewLogin)
	app.Post("/login", cfg.Auth.Login)
	app.Get("/logout", cfg.Auth.Logout)

	app.Post("/auth/password/reset/request", cfg.Auth.RequestPasswordReset)
	app.Post("/auth/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	protected := app.Group("", auth.RequireUser())
	protected.Get("/dashboard", cfg.QR.Dashboard)
	protected.Post("/generate", cfg.QR.Generate)
}
