package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/maheshrc27/reelflow/internal/models"
)

const scheduleSettingsID = 1

type SettingsRepository interface {
	Get(ctx context.Context) (*models.ScheduleSettings, error)
	Save(ctx context.Context, s *models.ScheduleSettings) error
}

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context) (*models.ScheduleSettings, error) {
	query := `SELECT id, timezone, slots, updated_at FROM schedule_settings WHERE id = $1`

	var s models.ScheduleSettings
	var slots string
	err := r.db.QueryRowContext(ctx, query, scheduleSettingsID).Scan(&s.ID, &s.Timezone, &slots, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	if err := json.Unmarshal([]byte(slots), &s.Slots); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepository) Save(ctx context.Context, s *models.ScheduleSettings) error {
	query := `
		INSERT INTO schedule_settings (id, timezone, slots, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET timezone = excluded.timezone,
			slots = excluded.slots,
			updated_at = excluded.updated_at
	`

	slots := s.Slots
	if slots == nil {
		slots = []models.PostSlot{}
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, scheduleSettingsID, s.Timezone, string(raw), time.Now().UTC())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
