package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/qr-vault/internal/auth"
	"github.com/spec-kit/qr-vault/internal/config"
	"github.com/spec-kit/qr-vault/internal/domain"
	"github.com/spec-kit/qr-vault/internal/federation"
	"github.com/spec-kit/qr-vault/internal/repository"
	apperrors "github.com/spec-kit/qr-vault/pkg/util"
)

// mockUserRepo enforces the same unique constraints as the schema so the
// conflict paths behave like the real store.
type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]domain.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
		if existing.GoogleID != nil && user.GoogleID != nil && *existing.GoogleID == *user.GoogleID {
			return repository.ErrDuplicate
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) UpdatePasswordHash(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordHash = &passwordHash
	m.users[id] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) GetByGoogleID(_ context.Context, googleID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.GoogleID != nil && *user.GoogleID == googleID {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]domain.Session)}
}

func (m *mockSessionRepo) Create(_ context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session.CreatedAt = time.Now()
	m.sessions[session.Token] = *session
	return nil
}

func (m *mockSessionRepo) GetByToken(_ context.Context, token string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &session, nil
}

func (m *mockSessionRepo) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

func (m *mockSessionRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type mockResetRepo struct {
	mu     sync.Mutex
	nextID int
	tokens map[string]repository.PasswordResetToken
}

func newMockResetRepo() *mockResetRepo {
	return &mockResetRepo{tokens: make(map[string]repository.PasswordResetToken)}
}

func (m *mockResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	token.ID = string(rune('a' + m.nextID))
	token.CreatedAt = time.Now()
	m.tokens[token.Token] = *token
	return nil
}

func (m *mockResetRepo) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &token, nil
}

func (m *mockResetRepo) MarkUsed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, token := range m.tokens {
		if token.ID == id {
			now := time.Now()
			token.UsedAt = &now
			m.tokens[key] = token
		}
	}
	return nil
}

type authFixture struct {
	service  *AuthService
	users    *mockUserRepo
	sessions *mockSessionRepo
	manager  *auth.SessionManager
}

func newAuthFixture(limiter LoginRateLimiter) *authFixture {
	users := newMockUserRepo()
	sessions := newMockSessionRepo()
	manager := auth.NewSessionManager(sessions, users, time.Hour)
	cfg := config.Config{Auth: config.AuthConfig{BcryptCost: bcrypt.MinCost}}
	svc := NewAuthService(cfg, AuthDependencies{
		UserRepo:          users,
		PasswordResetRepo: newMockResetRepo(),
		Sessions:          manager,
		Limiter:           limiter,
	})
	return &authFixture{service: svc, users: users, sessions: sessions, manager: manager}
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var de *apperrors.DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	return de.Code
}

func TestRegisterThenLogin(t *testing.T) {
	fx := newAuthFixture(nil)
	ctx := context.Background()

	user, err := fx.service.Register(ctx, "Ann", "Ann@X.com", "pw1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "ann@x.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.PasswordHash == nil || *user.PasswordHash == "pw1" {
		t.Fatal("password stored unhashed")
	}

	loggedIn, token, err := fx.service.Login(ctx, "ann@x.com", "pw1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Fatalf("login resolved wrong account: %q vs %q", loggedIn.ID, user.ID)
	}

	resolved, err := fx.manager.Resolve(ctx, token)
	if err != nil || resolved == nil {
		t.Fatalf("session did not resolve: user=%v err=%v", resolved, err)
	}
	if resolved.ID != user.ID {
		t.Fatalf("session resolved wrong account: %q", resolved.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	fx := newAuthFixture(nil)

	if _, err := fx.service.Register(context.Background(), "", "a@x.com", "pw"); domainCode(t, err) != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
	if fx.users.count() != 0 {
		t.Fatal("invalid registration wrote a row")
	}
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	fx := newAuthFixture(nil)
	ctx := context.Background()

	if _, err := fx.service.Register(ctx, "Ann", "ann@x.com", "pw1"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := fx.service.Register(ctx, "Other", "ann@x.com", "pw2")
	if code := domainCode(t, err); code != "CONFLICT" {
		t.Fatalf("expected CONFLICT, got %s", code)
	}
	if fx.users.count() != 1 {
		t.Fatalf("expected 1 row after conflict, got %d", fx.users.count())
	}
}

func TestLoginFailuresIndistinguishable(t *testing.T) {
	fx := newAuthFixture(nil)
	ctx := context.Background()

	if _, err := fx.service.Register(ctx, "Ann", "ann@x.com", "pw1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, _, wrongPw := fx.service.Login(ctx, "ann@x.com", "nope")
	_, _, unknown := fx.service.Login(ctx, "ghost@x.com", "nope")

	if !errors.Is(wrongPw, ErrInvalidCredentials) || !errors.Is(unknown, ErrInvalidCredentials) {
		t.Fatalf("both failures must be ErrInvalidCredentials, got %v / %v", wrongPw, unknown)
	}
	if wrongPw.Error() != unknown.Error() {
		t.Fatalf("failure messages differ: %q vs %q", wrongPw.Error(), unknown.Error())
	}
	if fx.sessions.count() != 0 {
		t.Fatal("failed logins minted sessions")
	}
}

func TestLoginRateLimited(t *testing.T) {
	fx := newAuthFixture(NewMemoryRateLimiter(time.Minute, 1))
	ctx := context.Background()

	if _, err := fx.service.Register(ctx, "Ann", "ann@x.com", "pw1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, _, err := fx.service.Login(ctx, "ann@x.com", "pw1"); err != nil {
		t.Fatalf("first login: %v", err)
	}
	_, _, err := fx.service.Login(ctx, "ann@x.com", "pw1")
	if code := domainCode(t, err); code != "RATE_LIMITED" {
		t.Fatalf("expected RATE_LIMITED, got %s", code)
	}
}

func TestLoginBlankCredentialsNotThrottled(t *testing.T) {
	fx := newAuthFixture(NewMemoryRateLimiter(time.Minute, 10))

	// A blank email never reaches the limiter; it fails as bad credentials,
	// not as throttling, even on the first attempt.
	_, _, err := fx.service.Login(context.Background(), "", "pw")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	_, _, err = fx.service.Login(context.Background(), "ann@x.com", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for blank password, got %v", err)
	}
}

func TestCompleteGoogleLoginFirstTime(t *testing.T) {
	fx := newAuthFixture(nil)
	ctx := context.Background()

	profile := federation.Profile{Subject: "g-123", Name: "Ann", Emails: []string{"ann@x.com"}}
	user, token, err := fx.service.CompleteGoogleLogin(ctx, profile)
	if err != nil {
		t.Fatalf("CompleteGoogleLogin: %v", err)
	}
	if user.GoogleID == nil || *user.GoogleID != "g-123" {
		t.Fatalf("federated id not stored: %+v", user)
	}
	if fx.users.count() != 1 {
		t.Fatalf("expected 1 row, got %d", fx.users.count())
	}

	resolved, err := fx.manager.Resolve(ctx, token)
	if err != nil || resolved == nil || resolved.ID != user.ID {
		t.Fatalf("federated session did not resolve: user=%v err=%v", resolved, err)
	}

	// Second login for the same subject reuses the account.
	again, _, err := fx.service.CompleteGoogleLogin(ctx, profile)
	if err != nil {
		t.Fatalf("second CompleteGoogleLogin: %v", err)
	}
	if again.ID != user.ID || fx.users.count() != 1 {
		t.Fatalf("second login duplicated the account: %d rows", fx.users.count())
	}
}

func TestCompleteGoogleLoginConcurrentFirstLogins(t *testing.T) {
	fx := newAuthFixture(nil)
	profile := federation.Profile{Subject: "g-race", Name: "Ann", Emails: []string{"ann@x.com"}}

	const attempts = 8
	ids := make([]string, attempts)
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user, _, err := fx.service.CompleteGoogleLogin(context.Background(), profile)
			if err == nil {
				ids[i] = user.ID
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	if fx.users.count() != 1 {
		t.Fatalf("expected exactly one account, got %d", fx.users.count())
	}
	for i := 0; i < attempts; i++ {
		if errs[i] != nil {
			t.Fatalf("attempt %d failed: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("attempts resolved to different accounts: %q vs %q", ids[i], ids[0])
		}
	}
}

func TestCompleteGoogleLoginUnusableProfile(t *testing.T) {
	fx := newAuthFixture(nil)

	_, _, err := fx.service.CompleteGoogleLogin(context.Background(), federation.Profile{Name: "NoSubject"})
	if code := domainCode(t, err); code != "FEDERATION_FAILED" {
		t.Fatalf("expected FEDERATION_FAILED, got %s", code)
	}
	if fx.sessions.count() != 0 || fx.users.count() != 0 {
		t.Fatal("failed federation left state behind")
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	fx := newAuthFixture(nil)
	ctx := context.Background()

	if _, err := fx.service.Register(ctx, "Ann", "ann@x.com", "pw1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, token, err := fx.service.Login(ctx, "ann@x.com", "pw1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := fx.service.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if user, err := fx.manager.Resolve(ctx, token); err != nil || user != nil {
		t.Fatalf("token still resolves after logout: user=%v err=%v", user, err)
	}
	// Logging out again, or with no token at all, is a no-op.
	if err := fx.service.Logout(ctx, token); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if err := fx.service.Logout(ctx, ""); err != nil {
		t.Fatalf("Logout with empty token: %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	fx := newAuthFixture(nil)
	ctx := context.Background()

	if _, err := fx.service.Register(ctx, "Ann", "ann@x.com", "pw1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	token, err := fx.service.RequestPasswordReset(ctx, "ann@x.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if err := fx.service.ConfirmPasswordReset(ctx, token.Token, "pw2"); err != nil {
		t.Fatalf("ConfirmPasswordReset: %v", err)
	}

	if _, _, err := fx.service.Login(ctx, "ann@x.com", "pw1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still accepted: %v", err)
	}
	if _, _, err := fx.service.Login(ctx, "ann@x.com", "pw2"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}

	// A used token cannot be replayed.
	err = fx.service.ConfirmPasswordReset(ctx, token.Token, "pw3")
	if code := domainCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED for replay, got %s", code)
	}
}
