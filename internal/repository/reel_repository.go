package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/reelflow/internal/models"
)

type ReelRepository interface {
	Create(ctx context.Context, reel *models.GeneratedReel) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.GeneratedReel, error)
	List(ctx context.Context, status string, limit int) ([]*models.GeneratedReel, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id int64, from, to string, at time.Time) (bool, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	GetDetail(ctx context.Context, id int64) (*models.ReelDetail, error)
	ListDetails(ctx context.Context, status string, limit int) ([]*models.ReelDetail, error)
}

type reelRepository struct {
	db *sql.DB
}

func NewReelRepository(db *sql.DB) ReelRepository {
	return &reelRepository{db: db}
}

const reelColumns = `r.id, r.video_id, r.music_id, r.quote_id, r.output_path, r.caption, r.theme, r.duration, r.file_size, r.quality_score, r.status, r.created_at, r.approved_at`

func reelDest(reel *models.GeneratedReel, approvedAt *sql.NullTime) []any {
	return []any{&reel.ID, &reel.VideoID, &reel.MusicID, &reel.QuoteID, &reel.OutputPath, &reel.Caption, &reel.Theme, &reel.Duration, &reel.FileSize, &reel.QualityScore, &reel.Status, &reel.CreatedAt, approvedAt}
}

func (r *reelRepository) Create(ctx context.Context, reel *models.GeneratedReel) (int64, error) {
	query := `
		INSERT INTO generated_reels (video_id, music_id, quote_id, output_path, caption, theme, duration, file_size, quality_score, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	status := reel.Status
	if status == "" {
		status = models.ReelStatusPending
	}
	createdAt := reel.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query, reel.VideoID, reel.MusicID, reel.QuoteID, reel.OutputPath, reel.Caption, reel.Theme, reel.Duration, reel.FileSize, reel.QualityScore, status, createdAt.UTC()).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *reelRepository) GetByID(ctx context.Context, id int64) (*models.GeneratedReel, error) {
	query := `SELECT ` + reelColumns + ` FROM generated_reels r WHERE r.id = $1`

	var reel models.GeneratedReel
	var approvedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(reelDest(&reel, &approvedAt)...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	reel.ApprovedAt = timePtr(approvedAt)

	return &reel, nil
}

// List returns reels newest first. An empty status lists every reel.
func (r *reelRepository) List(ctx context.Context, status string, limit int) ([]*models.GeneratedReel, error) {
	query := `SELECT ` + reelColumns + ` FROM generated_reels r WHERE ($1 = '' OR r.status = $1) ORDER BY r.created_at DESC, r.id DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, status, limitOrAll(limit))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var reels []*models.GeneratedReel
	for rows.Next() {
		var reel models.GeneratedReel
		var approvedAt sql.NullTime
		if err := rows.Scan(reelDest(&reel, &approvedAt)...); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		reel.ApprovedAt = timePtr(approvedAt)
		reels = append(reels, &reel)
	}
	return reels, rows.Err()
}

// UpdateStatus moves a reel from one status to another only if it is still
// in from. It reports whether the row changed. Entering approved stamps
// approved_at.
func (r *reelRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id int64, from, to string, at time.Time) (bool, error) {
	query := `
		UPDATE generated_reels
		SET status = $1,
			approved_at = CASE WHEN $1 = 'approved' THEN $2 ELSE approved_at END
		WHERE id = $3 AND status = $4
	`
	res, err := conn(r.db, tx).ExecContext(ctx, query, to, at.UTC(), id, from)
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

func (r *reelRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM generated_reels GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

const reelDetailQuery = `
	SELECT ` + reelColumns + `,
		v.filename, m.filename, q.text, q.author,
		sp.id, sp.scheduled_time, sp.status, sp.retry_count, sp.error_message, sp.created_at, sp.published_at
	FROM generated_reels r
	JOIN videos v ON v.id = r.video_id
	JOIN music m ON m.id = r.music_id
	JOIN quotes q ON q.id = r.quote_id
	LEFT JOIN scheduled_posts sp ON sp.reel_id = r.id
`

func scanReelDetail(row scanner) (*models.ReelDetail, error) {
	var d models.ReelDetail
	var approvedAt sql.NullTime
	var (
		spID          sql.NullInt64
		spTime        sql.NullTime
		spStatus      sql.NullString
		spRetry       sql.NullInt64
		spError       sql.NullString
		spCreated     sql.NullTime
		spPublishedAt sql.NullTime
	)

	dest := append(reelDest(&d.Reel, &approvedAt),
		&d.VideoFilename, &d.MusicFilename, &d.QuoteText, &d.QuoteAuthor,
		&spID, &spTime, &spStatus, &spRetry, &spError, &spCreated, &spPublishedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	d.Reel.ApprovedAt = timePtr(approvedAt)

	if spID.Valid {
		d.Scheduled = &models.ScheduledPost{
			ID:            spID.Int64,
			ReelID:        d.Reel.ID,
			ScheduledTime: spTime.Time.UTC(),
			Status:        spStatus.String,
			RetryCount:    int(spRetry.Int64),
			ErrorMessage:  spError.String,
			CreatedAt:     spCreated.Time.UTC(),
			PublishedAt:   timePtr(spPublishedAt),
		}
	}
	return &d, nil
}

func (r *reelRepository) GetDetail(ctx context.Context, id int64) (*models.ReelDetail, error) {
	d, err := scanReelDetail(r.db.QueryRowContext(ctx, reelDetailQuery+` WHERE r.id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return d, nil
}

func (r *reelRepository) ListDetails(ctx context.Context, status string, limit int) ([]*models.ReelDetail, error) {
	query := reelDetailQuery + ` WHERE ($1 = '' OR r.status = $1) ORDER BY r.created_at DESC, r.id DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, status, limitOrAll(limit))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var details []*models.ReelDetail
	for rows.Next() {
		d, err := scanReelDetail(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

func limitOrAll(limit int) int {
	if limit <= 0 {
		return 1<<31 - 1
	}
	return limit
}
