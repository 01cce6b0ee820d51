package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"picstoria/api/internal/models"
)

var (
	ErrPhotoNotFound = errors.New("photo not found")
)

type PhotoRepository struct {
	pool *pgxpool.Pool
}

func NewPhotoRepository(pool *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{pool: pool}
}

func (r *PhotoRepository) Create(ctx context.Context, photo models.Photo) error {
	const query = `
		INSERT INTO photos (
			id, user_id, image_url, description, alt_description,
			color_palette, suggested_tags, date_saved
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW()
		)
	`
	_, err := r.pool.Exec(ctx, query,
		photo.ID,
		photo.UserID,
		photo.ImageURL,
		photo.Description,
		photo.AltDescription,
		photo.ColorPalette,
		photo.SuggestedTags,
	)
	return err
}

func (r *PhotoRepository) GetByID(ctx context.Context, id string) (models.Photo, error) {
	const query = `
		SELECT id, user_id, image_url, description, alt_description,
		       color_palette, suggested_tags, date_saved
		FROM photos WHERE id = $1
	`
	return r.scanPhoto(r.pool.QueryRow(ctx, query, id))
}

func (r *PhotoRepository) ListByUser(ctx context.Context, userID string) ([]models.Photo, error) {
	const query = `
		SELECT id, user_id, image_url, description, alt_description,
		       color_palette, suggested_tags, date_saved
		FROM photos
		WHERE user_id = $1
		ORDER BY date_saved DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectPhotos(rows)
}

// FindByUserAndTag returns the user's photos carrying the tag, ordered by
// save date. sortAsc controls the direction.
func (r *PhotoRepository) FindByUserAndTag(ctx context.Context, userID, tag string, sortAsc bool) ([]models.Photo, error) {
	direction := "ASC"
	if !sortAsc {
		direction = "DESC"
	}
	query := `
		SELECT p.id, p.user_id, p.image_url, p.description, p.alt_description,
		       p.color_palette, p.suggested_tags, p.date_saved
		FROM photos p
		JOIN tags t ON t.photo_id = p.id
		WHERE p.user_id = $1 AND t.name = $2
		ORDER BY p.date_saved ` + direction
	rows, err := r.pool.Query(ctx, query, userID, tag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectPhotos(rows)
}

func (r *PhotoRepository) ListTags(ctx context.Context, photoID string) ([]models.Tag, error) {
	const query = `
		SELECT id, photo_id, name, type FROM tags WHERE photo_id = $1 ORDER BY name
	`
	rows, err := r.pool.Query(ctx, query, photoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.PhotoID, &tag.Name, &tag.Type); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *PhotoRepository) AddTag(ctx context.Context, tag models.Tag) error {
	const query = `
		INSERT INTO tags (id, photo_id, name, type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (photo_id, name) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, tag.ID, tag.PhotoID, tag.Name, tag.Type)
	return err
}

func (r *PhotoRepository) RemoveTag(ctx context.Context, photoID, name string) error {
	const query = `DELETE FROM tags WHERE photo_id = $1 AND name = $2`
	_, err := r.pool.Exec(ctx, query, photoID, name)
	return err
}

func (r *PhotoRepository) scanPhoto(row pgx.Row) (models.Photo, error) {
	var photo models.Photo
	err := row.Scan(
		&photo.ID,
		&photo.UserID,
		&photo.ImageURL,
		&photo.Description,
		&photo.AltDescription,
		&photo.ColorPalette,
		&photo.SuggestedTags,
		&photo.DateSaved,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Photo{}, ErrPhotoNotFound
		}
		return models.Photo{}, err
	}
	return photo, nil
}

func (r *PhotoRepository) collectPhotos(rows pgx.Rows) ([]models.Photo, error) {
	var photos []models.Photo
	for rows.Next() {
		var photo models.Photo
		if err := rows.Scan(
			&photo.ID,
			&photo.UserID,
			&photo.ImageURL,
			&photo.Description,
			&photo.AltDescription,
			&photo.ColorPalette,
			&photo.SuggestedTags,
			&photo.DateSaved,
		); err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}
	return photos, rows.Err()
}
