package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/reelflow/internal/models"
)

type CalendarRepository interface {
	Create(ctx context.Context, entry *models.CalendarEntry) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.CalendarEntry, error)
	List(ctx context.Context, from, to time.Time) ([]*models.CalendarEntry, error)
	Due(ctx context.Context, now time.Time) ([]*models.CalendarEntry, error)
	AttachReel(ctx context.Context, id, reelID int64, status string) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	UpdateStatusByReel(ctx context.Context, reelID int64, from []string, to string) error
}

type calendarRepository struct {
	db *sql.DB
}

func NewCalendarRepository(db *sql.DB) CalendarRepository {
	return &calendarRepository{db: db}
}

const calendarColumns = `id, entry_date, time_slot, theme, reel_id, status, created_at, updated_at`

func scanCalendarEntry(row scanner) (*models.CalendarEntry, error) {
	var e models.CalendarEntry
	var reelID sql.NullInt64
	if err := row.Scan(&e.ID, &e.EntryDate, &e.TimeSlot, &e.Theme, &reelID, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.EntryDate = e.EntryDate.UTC()
	if reelID.Valid {
		id := reelID.Int64
		e.ReelID = &id
	}
	return &e, nil
}

func (r *calendarRepository) Create(ctx context.Context, entry *models.CalendarEntry) (int64, error) {
	query := `
		INSERT INTO content_calendar (entry_date, time_slot, theme, reel_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	status := entry.Status
	if status == "" {
		status = models.CalendarStatusPending
	}
	var reelID sql.NullInt64
	if entry.ReelID != nil {
		reelID = sql.NullInt64{Int64: *entry.ReelID, Valid: true}
	}
	now := time.Now().UTC()

	var id int64
	err := r.db.QueryRowContext(ctx, query, entry.EntryDate.UTC(), entry.TimeSlot, entry.Theme, reelID, status, now, now).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *calendarRepository) GetByID(ctx context.Context, id int64) (*models.CalendarEntry, error) {
	e, err := scanCalendarEntry(r.db.QueryRowContext(ctx, `SELECT `+calendarColumns+` FROM content_calendar WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return e, nil
}

func (r *calendarRepository) List(ctx context.Context, from, to time.Time) ([]*models.CalendarEntry, error) {
	query := `SELECT ` + calendarColumns + ` FROM content_calendar WHERE entry_date >= $1 AND entry_date < $2 ORDER BY entry_date ASC, id ASC`
	return r.list(ctx, query, from.UTC(), to.UTC())
}

// Due returns unresolved entries dated at or before now, earliest first.
func (r *calendarRepository) Due(ctx context.Context, now time.Time) ([]*models.CalendarEntry, error) {
	query := `
		SELECT ` + calendarColumns + `
		FROM content_calendar
		WHERE entry_date <= $1 AND status IN ($2, $3)
		ORDER BY entry_date ASC, id ASC
	`
	return r.list(ctx, query, now.UTC(), models.CalendarStatusPending, models.CalendarStatusApproved)
}

func (r *calendarRepository) list(ctx context.Context, query string, args ...any) ([]*models.CalendarEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var entries []*models.CalendarEntry
	for rows.Next() {
		e, err := scanCalendarEntry(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *calendarRepository) AttachReel(ctx context.Context, id, reelID int64, status string) error {
	query := `
		UPDATE content_calendar
		SET reel_id = $1,
			status = $2,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, reelID, status, time.Now().UTC(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *calendarRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `
		UPDATE content_calendar
		SET status = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// UpdateStatusByReel moves every entry of reelID whose status is in from to
// status to.
func (r *calendarRepository) UpdateStatusByReel(ctx context.Context, reelID int64, from []string, to string) error {
	for _, status := range from {
		query := `
			UPDATE content_calendar
			SET status = $1,
				updated_at = $2
			WHERE reel_id = $3 AND status = $4
		`
		if _, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), reelID, status); err != nil {
			slog.Info(err.Error())
			return err
		}
	}
	return nil
}
