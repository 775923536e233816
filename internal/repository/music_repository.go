package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/reelflow/internal/models"
)

type MusicRepository interface {
	Create(ctx context.Context, m *models.Music) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Music, error)
	GetByFilename(ctx context.Context, filename string) (*models.Music, error)
	List(ctx context.Context) ([]*models.Music, error)
	ByEnergy(ctx context.Context, energy string) ([]*models.Music, error)
	BassHeavy(ctx context.Context, minScore float64) ([]*models.Music, error)
	IncrementUsage(ctx context.Context, id int64, usedAt time.Time) error
}

type musicRepository struct {
	db *sql.DB
}

func NewMusicRepository(db *sql.DB) MusicRepository {
	return &musicRepository{db: db}
}

const musicColumns = `id, filename, source, url, duration, bpm, tags, bass_score, energy_level, usage_count, created_at, last_used_at`

func scanMusic(row scanner) (*models.Music, error) {
	var m models.Music
	var lastUsed sql.NullTime
	err := row.Scan(&m.ID, &m.Filename, &m.Source, &m.URL, &m.Duration, &m.BPM, &m.Tags, &m.BassScore, &m.EnergyLevel, &m.UsageCount, &m.CreatedAt, &lastUsed)
	if err != nil {
		return nil, err
	}
	m.LastUsedAt = timePtr(lastUsed)
	return &m, nil
}

func (r *musicRepository) Create(ctx context.Context, m *models.Music) (int64, error) {
	query := `
		INSERT INTO music (filename, source, url, duration, bpm, tags, bass_score, energy_level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	energy := m.EnergyLevel
	if energy == "" {
		energy = models.EnergyMedium
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query, m.Filename, m.Source, m.URL, m.Duration, m.BPM, m.Tags, m.BassScore, energy, time.Now().UTC()).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *musicRepository) GetByID(ctx context.Context, id int64) (*models.Music, error) {
	query := `SELECT ` + musicColumns + ` FROM music WHERE id = $1`

	m, err := scanMusic(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return m, nil
}

func (r *musicRepository) GetByFilename(ctx context.Context, filename string) (*models.Music, error) {
	query := `SELECT ` + musicColumns + ` FROM music WHERE filename = $1`

	m, err := scanMusic(r.db.QueryRowContext(ctx, query, filename))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return m, nil
}

func (r *musicRepository) List(ctx context.Context) ([]*models.Music, error) {
	return r.list(ctx, `SELECT `+musicColumns+` FROM music ORDER BY id`)
}

func (r *musicRepository) ByEnergy(ctx context.Context, energy string) ([]*models.Music, error) {
	return r.list(ctx, `SELECT `+musicColumns+` FROM music WHERE energy_level = $1 ORDER BY id`, energy)
}

// BassHeavy returns tracks whose bass score is at least minScore, strongest first.
func (r *musicRepository) BassHeavy(ctx context.Context, minScore float64) ([]*models.Music, error) {
	return r.list(ctx, `SELECT `+musicColumns+` FROM music WHERE bass_score >= $1 ORDER BY bass_score DESC, id ASC`, minScore)
}

func (r *musicRepository) list(ctx context.Context, query string, args ...any) ([]*models.Music, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var tracks []*models.Music
	for rows.Next() {
		m, err := scanMusic(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		tracks = append(tracks, m)
	}
	return tracks, rows.Err()
}

func (r *musicRepository) IncrementUsage(ctx context.Context, id int64, usedAt time.Time) error {
	query := `
		UPDATE music
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
