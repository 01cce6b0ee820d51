package service

import (
	"context"
	"time"

	"picstoria/api/internal/models"
)

// lockoutGuard tracks failed logins and enforces the temporary lockout
// window. The counter is incremented in the store itself so concurrent
// failures never reset it; at worst a racing pair undercounts by one.
type lockoutGuard struct {
	users     UserStore
	threshold int
	duration  time.Duration
}

func newLockoutGuard(users UserStore, threshold int, duration time.Duration) lockoutGuard {
	return lockoutGuard{users: users, threshold: threshold, duration: duration}
}

// isLocked is checked before password verification so a locked account
// leaks nothing about the supplied password.
func (g lockoutGuard) isLocked(user models.User, now time.Time) bool {
	return user.Locked(now)
}

func (g lockoutGuard) recordFailure(ctx context.Context, user models.User) (int, error) {
	lockUntil := time.Now().Add(g.duration)
	return g.users.RecordLoginFailure(ctx, user.ID, g.threshold, lockUntil)
}

func (g lockoutGuard) reset(ctx context.Context, user models.User) error {
	if user.FailedLoginAttempts == 0 && user.LockUntil == nil {
		return nil
	}
	return g.users.ClearLoginFailures(ctx, user.ID)
}
