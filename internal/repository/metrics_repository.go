package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/reelflow/internal/models"
)

type MetricsRepository interface {
	Create(ctx context.Context, m *models.PostMetrics) (int64, error)
	Latest(ctx context.Context, publishedPostID int64) (*models.PostMetrics, error)
}

type metricsRepository struct {
	db *sql.DB
}

func NewMetricsRepository(db *sql.DB) MetricsRepository {
	return &metricsRepository{db: db}
}

func (r *metricsRepository) Create(ctx context.Context, m *models.PostMetrics) (int64, error) {
	query := `
		INSERT INTO post_metrics (published_post_id, likes, comments, shares, reach, saves, engagement_rate, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, m.PublishedPostID, m.Likes, m.Comments, m.Shares, m.Reach, m.Saves, m.EngagementRate, m.CollectedAt.UTC()).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *metricsRepository) Latest(ctx context.Context, publishedPostID int64) (*models.PostMetrics, error) {
	query := `
		SELECT id, published_post_id, likes, comments, shares, reach, saves, engagement_rate, collected_at
		FROM post_metrics
		WHERE published_post_id = $1
		ORDER BY collected_at DESC, id DESC
		LIMIT 1
	`

	var m models.PostMetrics
	err := r.db.QueryRowContext(ctx, query, publishedPostID).Scan(&m.ID, &m.PublishedPostID, &m.Likes, &m.Comments, &m.Shares, &m.Reach, &m.Saves, &m.EngagementRate, &m.CollectedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &m, nil
}
