package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/qr-vault/internal/domain"
	apperrors "github.com/spec-kit/qr-vault/pkg/util"
)

const userKey = "auth_user"

// SessionMiddleware resolves the session cookie and loads the user.
type SessionMiddleware struct {
	sessions   *SessionManager
	cookieName string
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(sessions *SessionManager, cookieName string) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions, cookieName: cookieName}
}

// Handle resolves the cookie token if present. A token that resolves to no
// user leaves the request unauthenticated; only storage failures abort.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	token := c.Cookies(m.cookieName)
	if token != "" {
		user, err := m.sessions.Resolve(c.Context(), token)
		if err != nil {
			return apperrors.NewStorageError(err)
		}
		if user != nil {
			c.Locals(userKey, user)
		}
	}
	return c.Next()
}

// CookieName exposes the configured cookie name for handlers that set or
// clear the session cookie.
func (m *SessionMiddleware) CookieName() string {
	return m.cookieName
}

// UserFromContext retrieves the authenticated user, if any.
func UserFromContext(c *fiber.Ctx) (*domain.User, bool) {
	val := c.Locals(userKey)
	if val == nil {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok
}

// RequireUser gates protected routes: a session that resolves to no user is
// unauthenticated and is redirected to the login surface, never downgraded
// to an anonymous view.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := UserFromContext(c); !ok {
			return c.Redirect("/login", fiber.StatusFound)
		}
		return c.Next()
	}
}
