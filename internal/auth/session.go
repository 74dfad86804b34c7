package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/qr-vault/internal/domain"
	"github.com/spec-kit/qr-vault/internal/repository"
)

// SessionManager issues, resolves and destroys durable sessions.
type SessionManager struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	ttl      time.Duration
}

// NewSessionManager builds a manager over the durable stores.
func NewSessionManager(sessions repository.SessionRepository, users repository.UserRepository, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{sessions: sessions, users: users, ttl: ttl}
}

// CreateReference mints a session holding only the user id. Resolve re-reads
// the user row each time, so later account edits are reflected.
func (m *SessionManager) CreateReference(ctx context.Context, user *domain.User) (string, error) {
	return m.create(ctx, &domain.Session{
		UserID: user.ID,
		Kind:   domain.SessionKindReference,
	})
}

// CreateSnapshot mints a session that inlines the user fields as they are at
// login time. The local-login path stores sessions this way; the snapshot is
// allowed to go stale.
func (m *SessionManager) CreateSnapshot(ctx context.Context, user *domain.User) (string, error) {
	name := user.Name
	email := user.Email
	return m.create(ctx, &domain.Session{
		UserID:        user.ID,
		Kind:          domain.SessionKindSnapshot,
		SnapshotName:  &name,
		SnapshotEmail: &email,
	})
}

func (m *SessionManager) create(ctx context.Context, session *domain.Session) (string, error) {
	token, err := NewSessionToken()
	if err != nil {
		return "", err
	}
	session.Token = token
	session.ExpiresAt = time.Now().Add(m.ttl)
	if err := m.sessions.Create(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve maps a token to its user. Unknown, expired or malformed tokens
// resolve to (nil, nil): absence is a normal outcome, not an error. Only
// storage failures return a non-nil error.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*domain.User, error) {
	if token == "" || len(token) > 128 {
		return nil, nil
	}

	session, err := m.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if session.Expired(time.Now()) {
		_ = m.sessions.Delete(ctx, token)
		return nil, nil
	}

	switch session.Kind {
	case domain.SessionKindReference:
		user, err := m.users.GetByID(ctx, session.UserID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil
			}
			return nil, err
		}
		return user, nil
	case domain.SessionKindSnapshot:
		user := &domain.User{ID: session.UserID}
		if session.SnapshotName != nil {
			user.Name = *session.SnapshotName
		}
		if session.SnapshotEmail != nil {
			user.Email = *session.SnapshotEmail
		}
		return user, nil
	default:
		return nil, nil
	}
}

// Destroy removes a session. Removing an unknown token is not an error.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.sessions.Delete(ctx, token)
}
