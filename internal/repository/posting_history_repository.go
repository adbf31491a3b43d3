package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/ristomat/socialcast/internal/models"
)

type PostingHistoryRepository interface {
	Create(ctx context.Context, ph *models.PostingHistory) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.PostingHistory, error)
	List(ctx context.Context, limit int) ([]*models.PostingHistory, error)
}

type postingHistoryRepository struct {
	db *sql.DB
}

func NewPostingHistoryRepository(db *sql.DB) PostingHistoryRepository {
	return &postingHistoryRepository{db: db}
}

func (r *postingHistoryRepository) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	query := `
		INSERT INTO posting_history (account_id, account_name, platform, success, post_id, platform_post_id, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		ph.AccountID, ph.AccountName, ph.Platform, ph.Success, ph.PostID, ph.PlatformPostID, ph.ErrorMessage).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postingHistoryRepository) GetByID(ctx context.Context, id int64) (*models.PostingHistory, error) {
	query := `
		SELECT id, account_id, account_name, platform, success, post_id, platform_post_id, error_message, created_at
		FROM posting_history WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var ph models.PostingHistory
	err := row.Scan(&ph.ID, &ph.AccountID, &ph.AccountName, &ph.Platform, &ph.Success, &ph.PostID, &ph.PlatformPostID, &ph.ErrorMessage, &ph.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &ph, nil
}

func (r *postingHistoryRepository) List(ctx context.Context, limit int) ([]*models.PostingHistory, error) {
	query := `
		SELECT id, account_id, account_name, platform, success, post_id, platform_post_id, error_message, created_at
		FROM posting_history ORDER BY created_at DESC LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var history []*models.PostingHistory
	for rows.Next() {
		var ph models.PostingHistory
		err := rows.Scan(&ph.ID, &ph.AccountID, &ph.AccountName, &ph.Platform, &ph.Success, &ph.PostID, &ph.PlatformPostID, &ph.ErrorMessage, &ph.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		history = append(history, &ph)
	}
	return history, nil
}
