package domain

import "time"

// User is one account, reachable via Google sign-in, a local password, or both.
// GoogleID and PasswordHash are nullable but never both absent.
type User struct {
	ID           string
	GoogleID     *string
	Name         string
	Email        string
	PasswordHash *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether local login is possible for this account.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
