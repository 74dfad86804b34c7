package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/qr-vault/internal/auth"
	"github.com/spec-kit/qr-vault/internal/config"
	"github.com/spec-kit/qr-vault/internal/domain"
	"github.com/spec-kit/qr-vault/internal/events"
	"github.com/spec-kit/qr-vault/internal/federation"
	"github.com/spec-kit/qr-vault/internal/repository"
	apperrors "github.com/spec-kit/qr-vault/pkg/util"
)

// ErrInvalidCredentials is the single failure for bad local logins. Unknown
// email and wrong password share it so the two are indistinguishable.
var ErrInvalidCredentials = apperrors.NewUnauthenticated("invalid email or password")

// AuthService coordinates registration, both login paths and password reset.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	sessions   *auth.SessionManager
	limiter    LoginRateLimiter
	dispatcher events.Dispatcher
	bcryptCost int
	resetTTL   time.Duration
	dummyHash  string
}

// AuthDependencies encapsulates requirements for auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Sessions          *auth.SessionManager
	Limiter           LoginRateLimiter
	Dispatcher        events.Dispatcher
}

// NewAuthService builds the service. The dummy hash is compared against on
// the unknown-email path so that failure takes as long as a real mismatch.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	dummyHash, _ := auth.HashPassword(uuid.NewString(), cfg.Auth.BcryptCost)
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		sessions:   deps.Sessions,
		limiter:    deps.Limiter,
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   cfg.Auth.ResetTTL(),
		dummyHash:  dummyHash,
	}
}

// Register creates a local account. A duplicate email surfaces as a conflict
// from the store's unique constraint; there is no pre-check.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, apperrors.NewValidationError("name, email and password are required", nil)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: &hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", nil)
		}
		return nil, apperrors.NewStorageError(err)
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Email:     user.Email,
		Federated: false,
	})
	return user, nil
}

// Login authenticates local credentials and mints a snapshot session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}
	if s.limiter != nil && !s.limiter.Allow(email) {
		return nil, "", apperrors.NewRateLimited("too many login attempts")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			auth.VerifyPassword(s.dummyHash, password)
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", apperrors.NewStorageError(err)
	}
	if !user.HasPassword() {
		auth.VerifyPassword(s.dummyHash, password)
		return nil, "", ErrInvalidCredentials
	}
	if !auth.VerifyPassword(*user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.sessions.CreateSnapshot(ctx, user)
	if err != nil {
		return nil, "", apperrors.NewStorageError(err)
	}

	s.publish(ctx, events.EventUserLoggedIn, user.ID, events.UserLoggedInPayload{Method: "password"})
	return user, token, nil
}

// CompleteGoogleLogin resolves a federated profile to an account and mints a
// by-reference session. Two concurrent first logins for the same subject
// race on create; the loser's conflict is converted into one retried lookup.
func (s *AuthService) CompleteGoogleLogin(ctx context.Context, profile federation.Profile) (*domain.User, string, error) {
	subject := strings.TrimSpace(profile.Subject)
	email := normalizeEmail(profile.PrimaryEmail())
	if subject == "" || email == "" {
		return nil, "", apperrors.NewFederationError(federation.ErrProfileUnusable)
	}

	user, err := s.users.GetByGoogleID(ctx, subject)
	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows):
		user, err = s.createFederated(ctx, subject, profile.Name, email)
		if err != nil {
			return nil, "", err
		}
	default:
		return nil, "", apperrors.NewStorageError(err)
	}

	token, err := s.sessions.CreateReference(ctx, user)
	if err != nil {
		return nil, "", apperrors.NewStorageError(err)
	}

	s.publish(ctx, events.EventUserLoggedIn, user.ID, events.UserLoggedInPayload{Method: "google"})
	return user, token, nil
}

func (s *AuthService) createFederated(ctx context.Context, subject, name, email string) (*domain.User, error) {
	displayName := strings.TrimSpace(name)
	if displayName == "" {
		displayName = email
	}

	user := &domain.User{
		ID:       uuid.NewString(),
		GoogleID: &subject,
		Name:     displayName,
		Email:    email,
	}
	err := s.users.Create(ctx, user)
	if err == nil {
		s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
			Email:     user.Email,
			Federated: true,
		})
		return user, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, apperrors.NewStorageError(err)
	}

	// Lost the create race: the row exists now. One retry, then fatal.
	existing, err := s.users.GetByGoogleID(ctx, subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConflict("account already exists for this email", nil)
		}
		return nil, apperrors.NewStorageError(err)
	}
	return existing, nil
}

// Logout destroys the session behind the token. Unknown tokens are a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	user, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return apperrors.NewStorageError(err)
	}
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return apperrors.NewStorageError(err)
	}
	if user != nil {
		s.publish(ctx, events.EventSessionDestroyed, user.ID, nil)
	}
	return nil
}

// RequestPasswordReset persists a reset token for the account behind email.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperrors.NewValidationError("email is required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", nil)
		}
		return nil, apperrors.NewStorageError(err)
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates the password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	if newPassword == "" {
		return apperrors.NewValidationError("password is required", nil)
	}

	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("reset token invalid", nil)
		}
		return apperrors.NewStorageError(err)
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewValidationError("reset token expired or used", nil)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.users.UpdatePasswordHash(ctx, token.UserID, hash); err != nil {
		return apperrors.NewStorageError(err)
	}
	return s.resets.MarkUsed(ctx, token.ID)
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
