package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"picstoria/api/internal/config"
	"picstoria/api/internal/middleware"
	"picstoria/api/internal/models"
	"picstoria/api/internal/oauth"
	"picstoria/api/internal/repository"
	"picstoria/api/internal/security"
	"picstoria/api/internal/service"
)

// In-memory store fakes backing the full router under httptest.

type stubUsers struct {
	mu sync.Mutex
	m  map[string]models.User
}

func newStubUsers() *stubUsers { return &stubUsers{m: make(map[string]models.User)} }

func (s *stubUsers) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.m {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicateUser
		}
	}
	user.CreatedAt = time.Now()
	s.m[user.ID] = user
	return nil
}

func (s *stubUsers) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.m[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *stubUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.m {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *stubUsers) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.m {
		if u.Username == identifier || u.Email == identifier {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *stubUsers) SetVerificationToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	return s.update(id, func(u *models.User) {
		u.VerificationTokenHash = &tokenHash
		u.VerificationExpiresAt = &expiresAt
	})
}

func (s *stubUsers) MarkVerified(_ context.Context, id string) error {
	return s.update(id, func(u *models.User) {
		u.IsVerified = true
		u.VerificationTokenHash = nil
		u.VerificationExpiresAt = nil
	})
}

func (s *stubUsers) SetResetToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	return s.update(id, func(u *models.User) {
		u.ResetTokenHash = &tokenHash
		u.ResetExpiresAt = &expiresAt
	})
}

func (s *stubUsers) UpdatePassword(_ context.Context, id string, passwordHash []byte) error {
	return s.update(id, func(u *models.User) {
		u.PasswordHash = passwordHash
		u.ResetTokenHash = nil
		u.ResetExpiresAt = nil
		u.TokenVersion++
	})
}

func (s *stubUsers) RecordLoginFailure(_ context.Context, id string, threshold int, lockUntil time.Time) (int, error) {
	var attempts int
	err := s.update(id, func(u *models.User) {
		u.FailedLoginAttempts++
		if u.FailedLoginAttempts >= threshold {
			u.LockUntil = &lockUntil
		}
		attempts = u.FailedLoginAttempts
	})
	return attempts, err
}

func (s *stubUsers) ClearLoginFailures(_ context.Context, id string) error {
	return s.update(id, func(u *models.User) {
		u.FailedLoginAttempts = 0
		u.LockUntil = nil
	})
}

func (s *stubUsers) LinkGoogle(_ context.Context, id, googleID string) error {
	return s.update(id, func(u *models.User) { u.GoogleID = &googleID })
}

func (s *stubUsers) update(id string, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.m[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(&u)
	s.m[id] = u
	return nil
}

type stubSessions struct {
	mu sync.Mutex
	m  map[string]models.Session
}

func newStubSessions() *stubSessions { return &stubSessions{m: make(map[string]models.Session)} }

func (s *stubSessions) Create(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[session.ID] = session
	return nil
}

func (s *stubSessions) GetByID(_ context.Context, id string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[id]
	if !ok {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return sess, nil
}

func (s *stubSessions) FindByRefreshHash(_ context.Context, hash string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.m {
		if sess.RefreshTokenHash == hash {
			return sess, nil
		}
	}
	return models.Session{}, repository.ErrSessionNotFound
}

func (s *stubSessions) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(s.m, id)
	return nil
}

func (s *stubSessions) DeleteByRefreshHash(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.m {
		if sess.RefreshTokenHash == hash {
			delete(s.m, id)
		}
	}
	return nil
}

func (s *stubSessions) DeleteByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.m {
		if sess.UserID == userID {
			delete(s.m, id)
		}
	}
	return nil
}

func (s *stubSessions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

type stubPhotos struct {
	mu     sync.Mutex
	photos map[string]models.Photo
	tags   map[string][]models.Tag
}

func newStubPhotos() *stubPhotos {
	return &stubPhotos{photos: make(map[string]models.Photo), tags: make(map[string][]models.Tag)}
}

func (s *stubPhotos) Create(_ context.Context, photo models.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photos[photo.ID] = photo
	return nil
}

func (s *stubPhotos) GetByID(_ context.Context, id string) (models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	if !ok {
		return models.Photo{}, repository.ErrPhotoNotFound
	}
	return p, nil
}

func (s *stubPhotos) ListByUser(_ context.Context, userID string) ([]models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Photo
	for _, p := range s.photos {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubPhotos) FindByUserAndTag(_ context.Context, userID, tag string, _ bool) ([]models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Photo
	for id, p := range s.photos {
		if p.UserID != userID {
			continue
		}
		for _, t := range s.tags[id] {
			if t.Name == tag {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (s *stubPhotos) ListTags(_ context.Context, photoID string) ([]models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Tag(nil), s.tags[photoID]...), nil
}

func (s *stubPhotos) AddTag(_ context.Context, tag models.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tags[tag.PhotoID] {
		if t.Name == tag.Name {
			return nil
		}
	}
	s.tags[tag.PhotoID] = append(s.tags[tag.PhotoID], tag)
	return nil
}

func (s *stubPhotos) RemoveTag(_ context.Context, photoID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tags[photoID][:0]
	for _, t := range s.tags[photoID] {
		if t.Name != name {
			kept = append(kept, t)
		}
	}
	s.tags[photoID] = kept
	return nil
}

type stubHistory struct {
	mu      sync.Mutex
	entries []models.SearchHistory
}

func (s *stubHistory) Create(_ context.Context, entry models.SearchHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubHistory) ListByUser(_ context.Context, userID string) ([]models.SearchHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SearchHistory
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type stubMailer struct {
	mu           sync.Mutex
	verifyTokens map[string]string
	resetTokens  map[string]string
}

func newStubMailer() *stubMailer {
	return &stubMailer{verifyTokens: make(map[string]string), resetTokens: make(map[string]string)}
}

func (s *stubMailer) SendVerification(_ context.Context, to, rawToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifyTokens[to] = rawToken
	return nil
}

func (s *stubMailer) SendPasswordReset(_ context.Context, to, rawToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetTokens[to] = rawToken
	return nil
}

func (s *stubMailer) verifyToken(to string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verifyTokens[to]
}

func (s *stubMailer) resetToken(to string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetTokens[to]
}

type stubProvider struct {
	identity oauth.Identity
	err      error
}

func (s *stubProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + state
}

func (s *stubProvider) Exchange(_ context.Context, _ string) (oauth.Identity, error) {
	return s.identity, s.err
}

const testCSRFToken = "handlers-test-csrf-token"

type testEnv struct {
	t        *testing.T
	engine   *gin.Engine
	users    *stubUsers
	sessions *stubSessions
	mailer   *stubMailer
	provider *stubProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		Environment: "test",
		FrontendURL: "http://localhost:5173",
		Security: config.SecurityConfig{
			JWTAccessSecret:  "handlers-access-secret",
			JWTRefreshSecret: "handlers-refresh-secret",
			JWTAccessTTL:     15 * time.Minute,
			JWTRefreshTTL:    720 * time.Hour,
			BcryptCost:       4,
			VerificationTTL:  24 * time.Hour,
			ResetTTL:         30 * time.Minute,
			LockoutThreshold: 5,
			LockoutDuration:  time.Hour,
		},
		RateLimit: config.RateLimitConfig{Enabled: false},
	}

	users := newStubUsers()
	sessions := newStubSessions()
	mailer := newStubMailer()
	provider := &stubProvider{}
	logger := zerolog.Nop()

	codec := security.NewTokenCodec(
		cfg.Security.JWTAccessSecret,
		cfg.Security.JWTRefreshSecret,
		cfg.Security.JWTAccessTTL,
		cfg.Security.JWTRefreshTTL,
	)
	authService := service.NewAuthService(users, sessions, codec, mailer, cfg.Security, logger)
	photoService := service.NewPhotoService(newStubPhotos(), &stubHistory{}, nil, nil, nil, cfg.Unsplash, logger)

	h := HandlerSet{
		log:      logger,
		cfg:      cfg,
		auth:     authService,
		photos:   photoService,
		users:    users,
		sessions: sessions,
		codec:    codec,
		provider: provider,
	}

	engine := gin.New()
	h.Register(engine.Group("/api"))

	return &testEnv{
		t:        t,
		engine:   engine,
		users:    users,
		sessions: sessions,
		mailer:   mailer,
		provider: provider,
	}
}

// do issues a request as-is, without the CSRF pair.
func (e *testEnv) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

// doCSRF issues a request carrying a matching csrf cookie/header pair.
func (e *testEnv) doCSRF(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e.t.Helper()

	cookies = append(cookies, &http.Cookie{Name: middleware.CSRFCookie, Value: testCSRFToken})

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.CSRFHeader, testCSRFToken)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

// signup registers and verifies a user through the HTTP surface.
func (e *testEnv) signup(username, email, password string) {
	e.t.Helper()

	w := e.doCSRF(http.MethodPost, "/api/auth/signup", gin.H{
		"username": username,
		"email":    email,
		"password": password,
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())

	token := e.mailer.verifyToken(email)
	require.NotEmpty(e.t, token)
	w = e.do(http.MethodGet, "/api/auth/verify-email?email="+email+"&token="+token, nil)
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
}

// login returns the session cookies from a successful login.
func (e *testEnv) login(identifier, password string) []*http.Cookie {
	e.t.Helper()

	w := e.doCSRF(http.MethodPost, "/api/auth/login", gin.H{
		"identifier": identifier,
		"password":   password,
	})
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	return responseCookies(w)
}

func responseCookies(w *httptest.ResponseRecorder) []*http.Cookie {
	resp := http.Response{Header: w.Header()}
	return resp.Cookies()
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
