package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/qr-vault/internal/domain"
)

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
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	now := time.Now()
	for token, session := range m.sessions {
		if now.After(session.ExpiresAt) {
			delete(m.sessions, token)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockSessionRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]domain.User)}
}

func (m *mockUserRepo) put(user domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

func (m *mockUserRepo) Create(_ context.Context, user *domain.User) error {
	m.put(*user)
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

func TestSessionManagerReferenceResolvesFreshRow(t *testing.T) {
	sessions := newMockSessionRepo()
	users := newMockUserRepo()
	users.put(domain.User{ID: "u1", Name: "Ann", Email: "ann@x.com"})

	manager := NewSessionManager(sessions, users, time.Hour)

	token, err := manager.CreateReference(context.Background(), &domain.User{ID: "u1", Name: "Ann", Email: "ann@x.com"})
	if err != nil {
		t.Fatalf("CreateReference: %v", err)
	}

	user, err := manager.Resolve(context.Background(), token)
	if err != nil || user == nil {
		t.Fatalf("Resolve: user=%v err=%v", user, err)
	}
	if user.Name != "Ann" {
		t.Fatalf("unexpected name %q", user.Name)
	}

	// Account edits show up on the next resolve of a reference session.
	users.put(domain.User{ID: "u1", Name: "Anna", Email: "ann@x.com"})
	user, err = manager.Resolve(context.Background(), token)
	if err != nil || user == nil {
		t.Fatalf("Resolve after edit: user=%v err=%v", user, err)
	}
	if user.Name != "Anna" {
		t.Fatalf("reference session did not reflect edit, got %q", user.Name)
	}
}

func TestSessionManagerSnapshotStaysStale(t *testing.T) {
	sessions := newMockSessionRepo()
	users := newMockUserRepo()
	users.put(domain.User{ID: "u1", Name: "Ann", Email: "ann@x.com"})

	manager := NewSessionManager(sessions, users, time.Hour)

	token, err := manager.CreateSnapshot(context.Background(), &domain.User{ID: "u1", Name: "Ann", Email: "ann@x.com"})
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}

	users.put(domain.User{ID: "u1", Name: "Anna", Email: "anna@x.com"})

	user, err := manager.Resolve(context.Background(), token)
	if err != nil || user == nil {
		t.Fatalf("Resolve: user=%v err=%v", user, err)
	}
	if user.Name != "Ann" || user.Email != "ann@x.com" {
		t.Fatalf("snapshot session changed after account edit: %+v", user)
	}
	if user.ID != "u1" {
		t.Fatalf("snapshot lost user id: %+v", user)
	}
}

func TestSessionManagerResolveAbsence(t *testing.T) {
	manager := NewSessionManager(newMockSessionRepo(), newMockUserRepo(), time.Hour)

	for name, token := range map[string]string{
		"empty":     "",
		"unknown":   "nope",
		"oversized": string(make([]byte, 512)),
	} {
		user, err := manager.Resolve(context.Background(), token)
		if err != nil {
			t.Fatalf("%s token: unexpected error %v", name, err)
		}
		if user != nil {
			t.Fatalf("%s token resolved to %+v", name, user)
		}
	}
}

func TestSessionManagerResolveExpired(t *testing.T) {
	sessions := newMockSessionRepo()
	users := newMockUserRepo()
	users.put(domain.User{ID: "u1", Name: "Ann", Email: "ann@x.com"})

	manager := NewSessionManager(sessions, users, time.Hour)
	token, err := manager.CreateReference(context.Background(), &domain.User{ID: "u1"})
	if err != nil {
		t.Fatalf("CreateReference: %v", err)
	}

	stale := sessions.sessions[token]
	stale.ExpiresAt = time.Now().Add(-time.Minute)
	sessions.sessions[token] = stale

	user, err := manager.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve expired: %v", err)
	}
	if user != nil {
		t.Fatalf("expired session resolved to %+v", user)
	}
	if sessions.count() != 0 {
		t.Fatal("expired session row not removed on resolve")
	}
}

func TestSessionManagerDestroyIdempotent(t *testing.T) {
	sessions := newMockSessionRepo()
	users := newMockUserRepo()
	users.put(domain.User{ID: "u1"})

	manager := NewSessionManager(sessions, users, time.Hour)
	token, err := manager.CreateReference(context.Background(), &domain.User{ID: "u1"})
	if err != nil {
		t.Fatalf("CreateReference: %v", err)
	}

	if err := manager.Destroy(context.Background(), token); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if user, err := manager.Resolve(context.Background(), token); err != nil || user != nil {
		t.Fatalf("resolve after destroy: user=%v err=%v", user, err)
	}
	if err := manager.Destroy(context.Background(), token); err != nil {
		t.Fatalf("second Destroy errored: %v", err)
	}
	if err := manager.Destroy(context.Background(), ""); err != nil {
		t.Fatalf("Destroy of empty token errored: %v", err)
	}
}
