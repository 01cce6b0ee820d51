package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"picstoria/api/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("username or email taken")
)

const userColumns = `
	id, username, email, password_hash, google_id, is_verified,
	verification_token_hash, verification_expires_at,
	reset_token_hash, reset_expires_at,
	failed_login_attempts, lock_until, token_version,
	created_at, updated_at
`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.GoogleID,
		&user.IsVerified,
		&user.VerificationTokenHash,
		&user.VerificationExpiresAt,
		&user.ResetTokenHash,
		&user.ResetExpiresAt,
		&user.FailedLoginAttempts,
		&user.LockUntil,
		&user.TokenVersion,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, username, email, password_hash, google_id, is_verified,
			verification_token_hash, verification_expires_at, token_version,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.GoogleID,
		user.IsVerified,
		user.VerificationTokenHash,
		user.VerificationExpiresAt,
		user.TokenVersion,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUser
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// FindByIdentifier looks a user up by username or email.
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, identifier))
}

func (r *UserRepository) SetVerificationToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error {
	const query = `
		UPDATE users
		SET verification_token_hash = $2, verification_expires_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, tokenHash, expiresAt)
}

// MarkVerified flips the verified flag and clears the verification pair so
// a consumed token can never be replayed.
func (r *UserRepository) MarkVerified(ctx context.Context, id string) error {
	const query = `
		UPDATE users
		SET is_verified = TRUE, verification_token_hash = NULL,
		    verification_expires_at = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id)
}

func (r *UserRepository) SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error {
	const query = `
		UPDATE users
		SET reset_token_hash = $2, reset_expires_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, tokenHash, expiresAt)
}

// UpdatePassword sets a new password hash, clears the reset pair and bumps
// token_version, invalidating every outstanding token.
func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash []byte) error {
	const query = `
		UPDATE users
		SET password_hash = $2, reset_token_hash = NULL, reset_expires_at = NULL,
		    token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, passwordHash)
}

// RecordLoginFailure increments the failure counter in SQL, setting
// lock_until when the incremented count reaches the threshold. The counter
// never decreases under concurrent attempts.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, error) {
	const query = `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    lock_until = CASE
		        WHEN failed_login_attempts + 1 >= $2 THEN $3
		        ELSE lock_until
		    END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING failed_login_attempts
	`
	var attempts int
	if err := r.pool.QueryRow(ctx, query, id, threshold, lockUntil).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return attempts, nil
}

func (r *UserRepository) ClearLoginFailures(ctx context.Context, id string) error {
	const query = `
		UPDATE users
		SET failed_login_attempts = 0, lock_until = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id)
}

func (r *UserRepository) LinkGoogle(ctx context.Context, id string, googleID string) error {
	const query = `
		UPDATE users SET google_id = $2, updated_at = NOW() WHERE id = $1
	`
	return r.execOne(ctx, query, id, googleID)
}

// ClearExpiredOneTimeTokens nulls out verification and reset pairs whose
// expiry has passed. Run from the maintenance scheduler.
func (r *UserRepository) ClearExpiredOneTimeTokens(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		UPDATE users
		SET verification_token_hash = CASE WHEN verification_expires_at < $1 THEN NULL ELSE verification_token_hash END,
		    verification_expires_at = CASE WHEN verification_expires_at < $1 THEN NULL ELSE verification_expires_at END,
		    reset_token_hash = CASE WHEN reset_expires_at < $1 THEN NULL ELSE reset_token_hash END,
		    reset_expires_at = CASE WHEN reset_expires_at < $1 THEN NULL ELSE reset_expires_at END
		WHERE verification_expires_at < $1 OR reset_expires_at < $1
	`
	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *UserRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
