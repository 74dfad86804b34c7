package domain

import "time"

// SessionKind distinguishes how a session row maps back to a user.
type SessionKind string

const (
	// SessionKindReference stores only the user id; the user row is re-read
	// on every resolve, so account edits are visible immediately.
	SessionKindReference SessionKind = "reference"
	// SessionKindSnapshot inlines the user fields captured at login time.
	// The local-login path stores sessions this way; the snapshot may go
	// stale if the account is edited afterwards.
	SessionKindSnapshot SessionKind = "snapshot"
)

// Session is one authenticated client context, keyed by an opaque token.
type Session struct {
	Token         string
	UserID        string
	Kind          SessionKind
	SnapshotName  *string
	SnapshotEmail *string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Expired reports whether the session is past its lifetime at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
