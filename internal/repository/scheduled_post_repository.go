package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/reelflow/internal/models"
)

type ScheduledPostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (*models.ScheduledPost, bool, error)
	GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error)
	GetByReelID(ctx context.Context, tx *sql.Tx, reelID int64) (*models.ScheduledPost, error)
	Due(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error)
	PendingTimes(ctx context.Context, from time.Time) ([]time.Time, error)
	Reschedule(ctx context.Context, reelID int64, scheduledTime time.Time) (bool, error)
	MarkPublished(ctx context.Context, tx *sql.Tx, id int64, at time.Time) (bool, error)
	RecordFailure(ctx context.Context, id int64, message string, maxRetries int) (*models.ScheduledPost, error)
	Delete(ctx context.Context, tx *sql.Tx, reelID int64) (bool, error)
	CountPending(ctx context.Context) (int, error)
	Upcoming(ctx context.Context, from, to time.Time) ([]models.CalendarItem, error)
}

type scheduledPostRepository struct {
	db *sql.DB
}

func NewScheduledPostRepository(db *sql.DB) ScheduledPostRepository {
	return &scheduledPostRepository{db: db}
}

const scheduledPostColumns = `id, reel_id, scheduled_time, status, retry_count, error_message, created_at, published_at`

func scanScheduledPost(row scanner) (*models.ScheduledPost, error) {
	var p models.ScheduledPost
	var publishedAt sql.NullTime
	err := row.Scan(&p.ID, &p.ReelID, &p.ScheduledTime, &p.Status, &p.RetryCount, &p.ErrorMessage, &p.CreatedAt, &publishedAt)
	if err != nil {
		return nil, err
	}
	p.ScheduledTime = p.ScheduledTime.UTC()
	p.PublishedAt = timePtr(publishedAt)
	return &p, nil
}

// Create inserts a scheduled post unless the reel already has one. The
// second return value is false when the existing row was returned instead.
func (r *scheduledPostRepository) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (*models.ScheduledPost, bool, error) {
	query := `
		INSERT INTO scheduled_posts (reel_id, scheduled_time, status, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (reel_id) DO NOTHING
		RETURNING id
	`

	status := post.Status
	if status == "" {
		status = models.PostStatusPending
	}
	createdAt := post.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query, post.ReelID, post.ScheduledTime.UTC(), status, createdAt.UTC()).Scan(&id)
	if err == sql.ErrNoRows {
		existing, err := r.GetByReelID(ctx, tx, post.ReelID)
		return existing, false, err
	}
	if err != nil {
		slog.Info(err.Error())
		return nil, false, err
	}

	created, err := r.getByID(ctx, conn(r.db, tx), id)
	return created, true, err
}

func (r *scheduledPostRepository) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	return r.getByID(ctx, r.db, id)
}

func (r *scheduledPostRepository) getByID(ctx context.Context, q querier, id int64) (*models.ScheduledPost, error) {
	p, err := scanScheduledPost(q.QueryRowContext(ctx, `SELECT `+scheduledPostColumns+` FROM scheduled_posts WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return p, nil
}

func (r *scheduledPostRepository) GetByReelID(ctx context.Context, tx *sql.Tx, reelID int64) (*models.ScheduledPost, error) {
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts WHERE reel_id = $1`

	p, err := scanScheduledPost(conn(r.db, tx).QueryRowContext(ctx, query, reelID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return p, nil
}

// Due returns pending posts whose time has come, oldest first.
func (r *scheduledPostRepository) Due(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error) {
	query := `
		SELECT ` + scheduledPostColumns + `
		FROM scheduled_posts
		WHERE status = $1 AND scheduled_time <= $2
		ORDER BY scheduled_time ASC, id ASC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, models.PostStatusPending, now.UTC(), limitOrAll(limit))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		p, err := scanScheduledPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (r *scheduledPostRepository) PendingTimes(ctx context.Context, from time.Time) ([]time.Time, error) {
	query := `SELECT scheduled_time FROM scheduled_posts WHERE status = $1 AND scheduled_time >= $2 ORDER BY scheduled_time`

	rows, err := r.db.QueryContext(ctx, query, models.PostStatusPending, from.UTC())
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		times = append(times, t.UTC())
	}
	return times, rows.Err()
}

// Reschedule moves an unpublished post to a new time and clears its
// failure state.
func (r *scheduledPostRepository) Reschedule(ctx context.Context, reelID int64, scheduledTime time.Time) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET scheduled_time = $1,
			status = $2,
			retry_count = 0,
			error_message = ''
		WHERE reel_id = $3 AND status IN ($4, $5)
	`
	res, err := r.db.ExecContext(ctx, query, scheduledTime.UTC(), models.PostStatusPending, reelID, models.PostStatusPending, models.PostStatusFailed)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return n == 1, nil
}

func (r *scheduledPostRepository) MarkPublished(ctx context.Context, tx *sql.Tx, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1,
			published_at = $2,
			error_message = ''
		WHERE id = $3 AND status = $4
	`
	res, err := conn(r.db, tx).ExecContext(ctx, query, models.PostStatusPublished, at.UTC(), id, models.PostStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return n == 1, nil
}

// RecordFailure bumps the retry counter and stores message. Once the counter
// reaches maxRetries (when positive) the post is marked failed.
func (r *scheduledPostRepository) RecordFailure(ctx context.Context, id int64, message string, maxRetries int) (*models.ScheduledPost, error) {
	query := `
		UPDATE scheduled_posts
		SET retry_count = retry_count + 1,
			error_message = $1,
			status = CASE WHEN $2 > 0 AND retry_count + 1 >= $2 THEN $3 ELSE status END
		WHERE id = $4 AND status = $5
	`
	_, err := r.db.ExecContext(ctx, query, message, maxRetries, models.PostStatusFailed, id, models.PostStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *scheduledPostRepository) Delete(ctx context.Context, tx *sql.Tx, reelID int64) (bool, error) {
	res, err := conn(r.db, tx).ExecContext(ctx, `DELETE FROM scheduled_posts WHERE reel_id = $1`, reelID)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return n > 0, nil
}

func (r *scheduledPostRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scheduled_posts WHERE status = $1`, models.PostStatusPending).Scan(&n)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return n, nil
}

// Upcoming lists scheduled posts in [from, to) joined with their reel and
// quote, ordered by time.
func (r *scheduledPostRepository) Upcoming(ctx context.Context, from, to time.Time) ([]models.CalendarItem, error) {
	query := `
		SELECT sp.id, sp.reel_id, sp.scheduled_time, sp.status, r.theme, r.caption, r.quality_score, q.text
		FROM scheduled_posts sp
		JOIN generated_reels r ON r.id = sp.reel_id
		JOIN quotes q ON q.id = r.quote_id
		WHERE sp.scheduled_time >= $1 AND sp.scheduled_time < $2
		ORDER BY sp.scheduled_time ASC, sp.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, from.UTC(), to.UTC())
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var items []models.CalendarItem
	for rows.Next() {
		var item models.CalendarItem
		if err := rows.Scan(&item.ScheduledPostID, &item.ReelID, &item.ScheduledTime, &item.Status, &item.Theme, &item.Caption, &item.QualityScore, &item.QuoteText); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		item.ScheduledTime = item.ScheduledTime.UTC()
		items = append(items, item)
	}
	return items, rows.Err()
}
