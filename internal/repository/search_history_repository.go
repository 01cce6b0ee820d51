package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"picstoria/api/internal/models"
)

type SearchHistoryRepository struct {
	pool *pgxpool.Pool
}

func NewSearchHistoryRepository(pool *pgxpool.Pool) *SearchHistoryRepository {
	return &SearchHistoryRepository{pool: pool}
}

func (r *SearchHistoryRepository) Create(ctx context.Context, entry models.SearchHistory) error {
	const query = `
		INSERT INTO search_history (id, user_id, query, type, timestamp)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err := r.pool.Exec(ctx, query, entry.ID, entry.UserID, entry.Query, entry.Type)
	return err
}

func (r *SearchHistoryRepository) ListByUser(ctx context.Context, userID string) ([]models.SearchHistory, error) {
	const query = `
		SELECT id, user_id, query, type, timestamp
		FROM search_history
		WHERE user_id = $1
		ORDER BY timestamp DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.SearchHistory
	for rows.Next() {
		var entry models.SearchHistory
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Query, &entry.Type, &entry.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
