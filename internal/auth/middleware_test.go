package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/qr-vault/internal/domain"
)

func newGatedApp(t *testing.T, manager *SessionManager) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(NewSessionMiddleware(manager, "sid").Handle)
	app.Get("/dashboard", RequireUser(), func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			t.Fatal("gate passed without user in context")
		}
		return c.SendString(user.ID)
	})
	return app
}

func TestRequireUserRedirectsWithoutSession(t *testing.T) {
	manager := NewSessionManager(newMockSessionRepo(), newMockUserRepo(), time.Hour)
	app := newGatedApp(t, manager)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}
}

func TestRequireUserRejectsDeadToken(t *testing.T) {
	manager := NewSessionManager(newMockSessionRepo(), newMockUserRepo(), time.Hour)
	app := newGatedApp(t, manager)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "bogus-token"})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 for unknown token, got %d", resp.StatusCode)
	}
}

func TestRequireUserPassesValidSession(t *testing.T) {
	sessions := newMockSessionRepo()
	users := newMockUserRepo()
	users.put(domain.User{ID: "u1", Name: "Ann", Email: "ann@x.com"})

	manager := NewSessionManager(sessions, users, time.Hour)
	token, err := manager.CreateReference(context.Background(), &domain.User{ID: "u1"})
	if err != nil {
		t.Fatalf("CreateReference: %v", err)
	}

	app := newGatedApp(t, manager)
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: token})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with valid session, got %d", resp.StatusCode)
	}
}
