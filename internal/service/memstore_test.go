package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"picstoria/api/internal/models"
	"picstoria/api/internal/repository"
)

// In-memory stores implementing the service interfaces, mirroring the
// repository error contracts (including compare-and-delete on sessions).

type memUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]models.User)}
}

func (m *memUsers) Create(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicateUser
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memUsers) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == identifier || u.Email == identifier {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memUsers) SetVerificationToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	return m.update(id, func(u *models.User) {
		u.VerificationTokenHash = &tokenHash
		u.VerificationExpiresAt = &expiresAt
	})
}

func (m *memUsers) MarkVerified(_ context.Context, id string) error {
	return m.update(id, func(u *models.User) {
		u.IsVerified = true
		u.VerificationTokenHash = nil
		u.VerificationExpiresAt = nil
	})
}

func (m *memUsers) SetResetToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	return m.update(id, func(u *models.User) {
		u.ResetTokenHash = &tokenHash
		u.ResetExpiresAt = &expiresAt
	})
}

func (m *memUsers) UpdatePassword(_ context.Context, id string, passwordHash []byte) error {
	return m.update(id, func(u *models.User) {
		u.PasswordHash = passwordHash
		u.ResetTokenHash = nil
		u.ResetExpiresAt = nil
		u.TokenVersion++
	})
}

func (m *memUsers) RecordLoginFailure(_ context.Context, id string, threshold int, lockUntil time.Time) (int, error) {
	var attempts int
	err := m.update(id, func(u *models.User) {
		u.FailedLoginAttempts++
		if u.FailedLoginAttempts >= threshold {
			u.LockUntil = &lockUntil
		}
		attempts = u.FailedLoginAttempts
	})
	return attempts, err
}

func (m *memUsers) ClearLoginFailures(_ context.Context, id string) error {
	return m.update(id, func(u *models.User) {
		u.FailedLoginAttempts = 0
		u.LockUntil = nil
	})
}

func (m *memUsers) LinkGoogle(_ context.Context, id, googleID string) error {
	return m.update(id, func(u *models.User) {
		u.GoogleID = &googleID
	})
}

func (m *memUsers) update(id string, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(&user)
	user.UpdatedAt = time.Now()
	m.users[id] = user
	return nil
}

// put overwrites a record directly, used by tests to age lockouts and
// token expiries without a clock.
func (m *memUsers) put(user models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]models.Session)}
}

func (m *memSessions) Create(_ context.Context, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session.CreatedAt = time.Now()
	m.sessions[session.ID] = session
	return nil
}

func (m *memSessions) GetByID(_ context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return session, nil
}

func (m *memSessions) FindByRefreshHash(_ context.Context, refreshHash string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.RefreshTokenHash == refreshHash {
			return s, nil
		}
	}
	return models.Session{}, repository.ErrSessionNotFound
}

func (m *memSessions) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *memSessions) DeleteByRefreshHash(_ context.Context, refreshHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.RefreshTokenHash == refreshHash {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *memSessions) DeleteByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *memSessions) put(session models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
}

var errMailDown = errors.New("mail provider down")

// memMailer records the raw tokens that would have been mailed out.
type memMailer struct {
	mu           sync.Mutex
	verifyTokens map[string][]string
	resetTokens  map[string][]string
	fail         bool
}

func newMemMailer() *memMailer {
	return &memMailer{
		verifyTokens: make(map[string][]string),
		resetTokens:  make(map[string][]string),
	}
}

func (m *memMailer) SendVerification(_ context.Context, to, rawToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errMailDown
	}
	m.verifyTokens[to] = append(m.verifyTokens[to], rawToken)
	return nil
}

func (m *memMailer) SendPasswordReset(_ context.Context, to, rawToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errMailDown
	}
	m.resetTokens[to] = append(m.resetTokens[to], rawToken)
	return nil
}

func (m *memMailer) lastVerifyToken(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	tokens := m.verifyTokens[to]
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

func (m *memMailer) lastResetToken(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	tokens := m.resetTokens[to]
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

func (m *memMailer) verifyCount(to string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.verifyTokens[to])
}
