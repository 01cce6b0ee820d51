package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"picstoria/api/internal/config"
	"picstoria/api/internal/email"
	"picstoria/api/internal/ids"
	"picstoria/api/internal/models"
	"picstoria/api/internal/oauth"
	"picstoria/api/internal/repository"
	"picstoria/api/internal/security"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthService coordinates signup, verification, login, refresh rotation,
// password reset and OAuth linking over injected stores.
type AuthService struct {
	users    UserStore
	sessions SessionStore
	codec    *security.TokenCodec
	mailer   email.Sender
	guard    lockoutGuard
	cfg      config.SecurityConfig
	log      zerolog.Logger
}

func NewAuthService(
	users UserStore,
	sessions SessionStore,
	codec *security.TokenCodec,
	mailer email.Sender,
	cfg config.SecurityConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		codec:    codec,
		mailer:   mailer,
		guard:    newLockoutGuard(users, cfg.LockoutThreshold, cfg.LockoutDuration),
		cfg:      cfg,
		log:      log,
	}
}

type SignupInput struct {
	Username string
	Email    string
	Password string
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) error {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))

	if input.Username == "" || input.Email == "" || input.Password == "" {
		return fmt.Errorf("%w: all fields are required", ErrValidation)
	}
	if !emailPattern.MatchString(input.Email) {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}

	passwordHash, err := security.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return err
	}

	rawToken, err := security.GenerateOpaqueToken()
	if err != nil {
		return err
	}
	tokenHash := security.HashOpaqueToken(rawToken)
	expiresAt := time.Now().Add(s.cfg.VerificationTTL)

	user := models.User{
		ID:                    ids.New(),
		Username:              input.Username,
		Email:                 input.Email,
		PasswordHash:          passwordHash,
		VerificationTokenHash: &tokenHash,
		VerificationExpiresAt: &expiresAt,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return err
	}

	s.sendVerificationEmail(ctx, user.Email, rawToken)
	return nil
}

// VerifyEmail consumes a mailed verification token. A consumed or rotated
// token hashes to nothing stored and fails as invalid.
func (s *AuthService) VerifyEmail(ctx context.Context, emailAddr, rawToken string) error {
	if emailAddr == "" || rawToken == "" {
		return fmt.Errorf("%w: invalid verification link", ErrValidation)
	}

	user, err := s.users.FindByEmail(ctx, strings.ToLower(emailAddr))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidOneTimeToken
		}
		return err
	}

	if user.VerificationTokenHash == nil || user.VerificationExpiresAt == nil {
		return ErrInvalidOneTimeToken
	}
	if user.VerificationExpiresAt.Before(time.Now()) {
		return ErrExpiredOneTimeToken
	}
	if !hashesEqual(security.HashOpaqueToken(rawToken), *user.VerificationTokenHash) {
		return ErrInvalidOneTimeToken
	}

	return s.users.MarkVerified(ctx, user.ID)
}

// ResendVerification rotates the verification token. An unknown email
// succeeds silently so the endpoint cannot be used for enumeration.
func (s *AuthService) ResendVerification(ctx context.Context, emailAddr string) error {
	if emailAddr == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}

	user, err := s.users.FindByEmail(ctx, strings.ToLower(emailAddr))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}

	rawToken, err := security.GenerateOpaqueToken()
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(s.cfg.VerificationTTL)
	if err := s.users.SetVerificationToken(ctx, user.ID, security.HashOpaqueToken(rawToken), expiresAt); err != nil {
		return err
	}

	s.sendVerificationEmail(ctx, user.Email, rawToken)
	return nil
}

type LoginInput struct {
	Identifier string
	Password   string
	UserAgent  string
	IPAddress  string
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         models.User
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	if input.Identifier == "" || input.Password == "" {
		return AuthResult{}, fmt.Errorf("%w: missing credentials", ErrValidation)
	}

	user, err := s.users.FindByIdentifier(ctx, strings.TrimSpace(input.Identifier))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	// Lock state first: a locked account reveals nothing about the password.
	if s.guard.isLocked(user, time.Now()) {
		return AuthResult{}, ErrAccountLocked
	}

	ok := false
	if user.PasswordHash != nil {
		ok, err = security.VerifyPassword(input.Password, user.PasswordHash)
		if err != nil {
			return AuthResult{}, err
		}
	}
	if !ok {
		if _, err := s.guard.recordFailure(ctx, user); err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("record login failure")
		}
		return AuthResult{}, ErrInvalidCredentials
	}

	if !user.IsVerified {
		return AuthResult{}, ErrEmailNotVerified
	}

	if err := s.guard.reset(ctx, user); err != nil {
		return AuthResult{}, err
	}

	return s.issueSession(ctx, user, input.UserAgent, input.IPAddress)
}

// LoginWithProvider handles an identity already authenticated upstream by
// the OAuth provider: find-or-create by email, auto-verify, link the
// provider id, clear lockout state.
func (s *AuthService) LoginWithProvider(ctx context.Context, identity oauth.Identity, userAgent, ip string) (AuthResult, error) {
	if identity.Email == "" {
		return AuthResult{}, oauth.ErrMissingEmail
	}
	emailAddr := strings.ToLower(identity.Email)

	user, err := s.users.FindByEmail(ctx, emailAddr)
	switch {
	case err == nil:
		if user.GoogleID == nil {
			if err := s.users.LinkGoogle(ctx, user.ID, identity.ProviderID); err != nil {
				return AuthResult{}, err
			}
		}
	case errors.Is(err, repository.ErrUserNotFound):
		user, err = s.createProviderUser(ctx, identity, emailAddr)
		if err != nil {
			return AuthResult{}, err
		}
	default:
		return AuthResult{}, err
	}

	if !user.IsVerified {
		if err := s.users.MarkVerified(ctx, user.ID); err != nil {
			return AuthResult{}, err
		}
		user.IsVerified = true
	}
	if err := s.guard.reset(ctx, user); err != nil {
		return AuthResult{}, err
	}

	return s.issueSession(ctx, user, userAgent, ip)
}

func (s *AuthService) createProviderUser(ctx context.Context, identity oauth.Identity, emailAddr string) (models.User, error) {
	username := strings.ToLower(strings.ReplaceAll(identity.Name, " ", ""))
	if username == "" {
		username = strings.SplitN(emailAddr, "@", 2)[0]
	}

	googleID := identity.ProviderID
	user := models.User{
		ID:         ids.New(),
		Username:   username,
		Email:      emailAddr,
		GoogleID:   &googleID,
		IsVerified: true, // provider already verified the address
	}

	err := s.users.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicateUser) {
		// Username collision with another account; retry with a suffix.
		user.Username = username + "-" + ids.New()[:6]
		err = s.users.Create(ctx, user)
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Refresh rotates a refresh token. Every failure collapses into
// ErrUnauthorized; the compare-and-delete on the old session row keeps
// rotation single-use under concurrent attempts.
func (s *AuthService) Refresh(ctx context.Context, rawToken, userAgent, ip string) (AuthResult, error) {
	if rawToken == "" {
		return AuthResult{}, ErrUnauthorized
	}

	claims, err := s.codec.ParseRefresh(rawToken)
	if err != nil {
		return AuthResult{}, ErrUnauthorized
	}

	session, err := s.sessions.FindByRefreshHash(ctx, security.HashOpaqueToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, err
	}

	if session.UserID != claims.UserID {
		return AuthResult{}, ErrUnauthorized
	}
	if session.ExpiresAt.Before(time.Now()) {
		_ = s.sessions.DeleteByID(ctx, session.ID)
		return AuthResult{}, ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, err
	}
	if user.TokenVersion != claims.TokenVersion {
		return AuthResult{}, ErrUnauthorized
	}

	if err := s.sessions.DeleteByID(ctx, session.ID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// Lost the rotation race; the token was already used.
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, err
	}

	return s.issueSession(ctx, user, userAgent, ip)
}

// Logout destroys the session behind the presented refresh token. It is a
// no-op for absent or unknown tokens and never fails the request.
func (s *AuthService) Logout(ctx context.Context, rawToken string) {
	if rawToken == "" {
		return
	}
	if err := s.sessions.DeleteByRefreshHash(ctx, security.HashOpaqueToken(rawToken)); err != nil {
		s.log.Error().Err(err).Msg("logout: delete session")
	}
}

// ForgotPassword issues a reset token. The caller-visible outcome is the
// same whether or not the account exists.
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr string) error {
	if emailAddr == "" {
		return fmt.Errorf("%w: email required", ErrValidation)
	}

	user, err := s.users.FindByEmail(ctx, strings.ToLower(emailAddr))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return err
	}

	rawToken, err := security.GenerateOpaqueToken()
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(s.cfg.ResetTTL)
	if err := s.users.SetResetToken(ctx, user.ID, security.HashOpaqueToken(rawToken), expiresAt); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, rawToken); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("send password reset email")
	}
	return nil
}

// ResetPassword consumes a reset token, installs the new password hash,
// bumps tokenVersion and revokes every session.
func (s *AuthService) ResetPassword(ctx context.Context, emailAddr, rawToken, newPassword string) error {
	if emailAddr == "" || rawToken == "" || newPassword == "" {
		return fmt.Errorf("%w: invalid request", ErrValidation)
	}

	user, err := s.users.FindByEmail(ctx, strings.ToLower(emailAddr))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidOneTimeToken
		}
		return err
	}

	if user.ResetTokenHash == nil || user.ResetExpiresAt == nil {
		return ErrInvalidOneTimeToken
	}
	if user.ResetExpiresAt.Before(time.Now()) {
		return ErrExpiredOneTimeToken
	}
	if !hashesEqual(security.HashOpaqueToken(rawToken), *user.ResetTokenHash) {
		return ErrInvalidOneTimeToken
	}

	passwordHash, err := security.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return err
	}

	return s.sessions.DeleteByUser(ctx, user.ID)
}

func (s *AuthService) issueSession(ctx context.Context, user models.User, userAgent, ip string) (AuthResult, error) {
	refreshToken, err := s.codec.SignRefresh(user.ID, user.TokenVersion)
	if err != nil {
		return AuthResult{}, err
	}

	session := models.Session{
		ID:               ids.New(),
		UserID:           user.ID,
		RefreshTokenHash: security.HashOpaqueToken(refreshToken),
		UserAgent:        userAgent,
		IPAddress:        ip,
		ExpiresAt:        time.Now().Add(s.codec.RefreshTTL()),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, err
	}

	accessToken, err := s.codec.SignAccess(user.ID, session.ID, user.TokenVersion)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

func (s *AuthService) sendVerificationEmail(ctx context.Context, to, rawToken string) {
	if err := s.mailer.SendVerification(ctx, to, rawToken); err != nil {
		// Best effort: the account stands either way.
		s.log.Error().Err(err).Str("email", to).Msg("send verification email")
	}
}

func hashesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
