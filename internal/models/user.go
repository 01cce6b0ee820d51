package models

import "time"

// User is the account record. An account authenticates either with a
// password hash, a linked Google identity, or both after linking.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash []byte // nil for OAuth-only accounts
	GoogleID     *string

	IsVerified            bool
	VerificationTokenHash *string
	VerificationExpiresAt *time.Time

	ResetTokenHash *string
	ResetExpiresAt *time.Time

	FailedLoginAttempts int
	LockUntil           *time.Time

	// TokenVersion invalidates every previously issued token when bumped.
	TokenVersion int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Locked reports whether the account is under a lockout window at now.
func (u User) Locked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// Session is one active refresh token, stored only as its SHA-256 hash.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	UserAgent        string
	IPAddress        string
	CreatedAt        time.Time
	ExpiresAt        time.Time
}
