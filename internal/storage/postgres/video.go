package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/models"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/storage"
)

type VideoRepository struct {
	db storage.DBTX
}

func NewVideoRepository(db storage.DBTX) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	var video models.Video
	query := `SELECT id, title, storage_key, published, created_at FROM videos WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&video.ID,
		&video.Title,
		&video.StorageKey,
		&video.Published,
		&video.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &video, nil
}

func (r *VideoRepository) CreateVideo(ctx context.Context, video models.Video) error {
	query := `INSERT INTO videos (id, title, storage_key, published) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, video.ID, video.Title, video.StorageKey, video.Published)
	if err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}
