package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteAppliesSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "reelflow.db")

	db, err := Open(ctx, DriverSQLite, path)
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	_, err = db.ExecContext(ctx, `INSERT INTO schedule_settings (id, timezone, slots, updated_at) VALUES ($1, $2, $3, $4)`, 1, "UTC", "[]", now)
	require.NoError(t, err)

	var got time.Time
	require.NoError(t, db.QueryRowContext(ctx, `SELECT updated_at FROM schedule_settings WHERE id = $1`, 1).Scan(&got))
	assert.True(t, got.Equal(now))
}

func TestOpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reelflow.db")

	db, err := Open(ctx, DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "")
	assert.Error(t, err)
}
