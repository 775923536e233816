package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/maheshrc27/reelflow/internal/models"
)

type QuoteRepository interface {
	Create(ctx context.Context, q *models.Quote) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Quote, error)
	List(ctx context.Context) ([]*models.Quote, error)
	ByCategory(ctx context.Context, category string) ([]*models.Quote, error)
	Short(ctx context.Context, maxLength int) ([]*models.Quote, error)
	IncrementUsage(ctx context.Context, id int64, usedAt time.Time) error
}

type quoteRepository struct {
	db *sql.DB
}

func NewQuoteRepository(db *sql.DB) QuoteRepository {
	return &quoteRepository{db: db}
}

const quoteColumns = `id, text, author, category, length, usage_count, created_at, last_used_at`

func scanQuote(row scanner) (*models.Quote, error) {
	var q models.Quote
	var lastUsed sql.NullTime
	err := row.Scan(&q.ID, &q.Text, &q.Author, &q.Category, &q.Length, &q.UsageCount, &q.CreatedAt, &lastUsed)
	if err != nil {
		return nil, err
	}
	q.LastUsedAt = timePtr(lastUsed)
	return &q, nil
}

func (r *quoteRepository) Create(ctx context.Context, q *models.Quote) (int64, error) {
	query := `
		INSERT INTO quotes (text, author, category, length, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	length := q.Length
	if length == 0 {
		length = utf8.RuneCountInString(q.Text)
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query, q.Text, q.Author, q.Category, length, time.Now().UTC()).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *quoteRepository) GetByID(ctx context.Context, id int64) (*models.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE id = $1`

	q, err := scanQuote(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return q, nil
}

func (r *quoteRepository) List(ctx context.Context) ([]*models.Quote, error) {
	return r.list(ctx, `SELECT `+quoteColumns+` FROM quotes ORDER BY id`)
}

func (r *quoteRepository) ByCategory(ctx context.Context, category string) ([]*models.Quote, error) {
	return r.list(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE category = $1 ORDER BY id`, category)
}

func (r *quoteRepository) Short(ctx context.Context, maxLength int) ([]*models.Quote, error) {
	return r.list(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE length <= $1 ORDER BY id`, maxLength)
}

func (r *quoteRepository) list(ctx context.Context, query string, args ...any) ([]*models.Quote, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var quotes []*models.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

func (r *quoteRepository) IncrementUsage(ctx context.Context, id int64, usedAt time.Time) error {
	query := `
		UPDATE quotes
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
