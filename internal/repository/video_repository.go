package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/reelflow/internal/models"
)

type VideoRepository interface {
	Create(ctx context.Context, v *models.Video) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Video, error)
	GetByFilename(ctx context.Context, filename string) (*models.Video, error)
	List(ctx context.Context) ([]*models.Video, error)
	LeastUsed(ctx context.Context, theme string, limit int) ([]*models.Video, error)
	IncrementUsage(ctx context.Context, id int64, usedAt time.Time) error
}

type videoRepository struct {
	db *sql.DB
}

func NewVideoRepository(db *sql.DB) VideoRepository {
	return &videoRepository{db: db}
}

const videoColumns = `id, filename, source, url, duration, resolution, tags, theme, usage_count, quality_score, created_at, last_used_at`

func scanVideo(row scanner) (*models.Video, error) {
	var v models.Video
	var lastUsed sql.NullTime
	err := row.Scan(&v.ID, &v.Filename, &v.Source, &v.URL, &v.Duration, &v.Resolution, &v.Tags, &v.Theme, &v.UsageCount, &v.QualityScore, &v.CreatedAt, &lastUsed)
	if err != nil {
		return nil, err
	}
	v.LastUsedAt = timePtr(lastUsed)
	return &v, nil
}

func (r *videoRepository) Create(ctx context.Context, v *models.Video) (int64, error) {
	query := `
		INSERT INTO videos (filename, source, url, duration, resolution, tags, theme, quality_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, v.Filename, v.Source, v.URL, v.Duration, v.Resolution, v.Tags, v.Theme, v.QualityScore, time.Now().UTC()).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *videoRepository) GetByID(ctx context.Context, id int64) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`

	v, err := scanVideo(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return v, nil
}

func (r *videoRepository) GetByFilename(ctx context.Context, filename string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE filename = $1`

	v, err := scanVideo(r.db.QueryRowContext(ctx, query, filename))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return v, nil
}

func (r *videoRepository) List(ctx context.Context) ([]*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos ORDER BY id`
	return r.list(ctx, query)
}

// LeastUsed returns up to limit videos of theme ordered by ascending usage.
func (r *videoRepository) LeastUsed(ctx context.Context, theme string, limit int) ([]*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE theme = $1 ORDER BY usage_count ASC, id ASC LIMIT $2`
	return r.list(ctx, query, theme, limit)
}

func (r *videoRepository) list(ctx context.Context, query string, args ...any) ([]*models.Video, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (r *videoRepository) IncrementUsage(ctx context.Context, id int64, usedAt time.Time) error {
	query := `
		UPDATE videos
		SET usage_count = usage_count + 1,
			last_used_at = $1
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, usedAt.UTC(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
