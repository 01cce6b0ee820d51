package service

import (
	"context"
	"time"

	"picstoria/api/internal/models"
)

// UserStore is the persistence capability the orchestrator needs for
// accounts. Implemented by repository.UserRepository.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	SetVerificationToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, id string) error
	SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error
	UpdatePassword(ctx context.Context, id string, passwordHash []byte) error
	RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, error)
	ClearLoginFailures(ctx context.Context, id string) error
	LinkGoogle(ctx context.Context, id string, googleID string) error
}

// SessionStore is the refresh session ledger. Implemented by
// repository.SessionRepository. DeleteByID must report
// repository.ErrSessionNotFound when the row is already gone; rotation
// relies on that to stay single-use.
type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	FindByRefreshHash(ctx context.Context, refreshHash string) (models.Session, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByRefreshHash(ctx context.Context, refreshHash string) error
	DeleteByUser(ctx context.Context, userID string) error
}

// PhotoStore is the photo collection persistence surface.
type PhotoStore interface {
	Create(ctx context.Context, photo models.Photo) error
	GetByID(ctx context.Context, id string) (models.Photo, error)
	ListByUser(ctx context.Context, userID string) ([]models.Photo, error)
	FindByUserAndTag(ctx context.Context, userID, tag string, sortAsc bool) ([]models.Photo, error)
	ListTags(ctx context.Context, photoID string) ([]models.Tag, error)
	AddTag(ctx context.Context, tag models.Tag) error
	RemoveTag(ctx context.Context, photoID, name string) error
}

// HistoryStore records and lists a user's searches.
type HistoryStore interface {
	Create(ctx context.Context, entry models.SearchHistory) error
	ListByUser(ctx context.Context, userID string) ([]models.SearchHistory, error)
}
