package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/reelflow/internal/models"
)

type PublishedPostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, p *models.PublishedPost) (int64, error)
	GetByReelID(ctx context.Context, reelID int64) (*models.PublishedPost, error)
	ListSince(ctx context.Context, since time.Time) ([]*models.PublishedPost, error)
}

type publishedPostRepository struct {
	db *sql.DB
}

func NewPublishedPostRepository(db *sql.DB) PublishedPostRepository {
	return &publishedPostRepository{db: db}
}

const publishedPostColumns = `id, reel_id, platform, external_id, url, caption, published_at`

func scanPublishedPost(row scanner) (*models.PublishedPost, error) {
	var p models.PublishedPost
	if err := row.Scan(&p.ID, &p.ReelID, &p.Platform, &p.ExternalID, &p.URL, &p.Caption, &p.PublishedAt); err != nil {
		return nil, err
	}
	p.PublishedAt = p.PublishedAt.UTC()
	return &p, nil
}

func (r *publishedPostRepository) Create(ctx context.Context, tx *sql.Tx, p *models.PublishedPost) (int64, error) {
	query := `
		INSERT INTO published_posts (reel_id, platform, external_id, url, caption, published_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query, p.ReelID, p.Platform, p.ExternalID, p.URL, p.Caption, p.PublishedAt.UTC()).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *publishedPostRepository) GetByReelID(ctx context.Context, reelID int64) (*models.PublishedPost, error) {
	p, err := scanPublishedPost(r.db.QueryRowContext(ctx, `SELECT `+publishedPostColumns+` FROM published_posts WHERE reel_id = $1`, reelID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return p, nil
}

func (r *publishedPostRepository) ListSince(ctx context.Context, since time.Time) ([]*models.PublishedPost, error) {
	query := `SELECT ` + publishedPostColumns + ` FROM published_posts WHERE published_at >= $1 ORDER BY published_at DESC`

	rows, err := r.db.QueryContext(ctx, query, since.UTC())
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.PublishedPost
	for rows.Next() {
		p, err := scanPublishedPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
