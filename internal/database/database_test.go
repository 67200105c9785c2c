package database

import (
	"path/filepath"
	"testing"

	"lifeplanner-api/internal/config"
	"lifeplanner-api/internal/models"

	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteFileInNestedDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tasks.db")
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", URL: path, LogLevel: "silent"})
	require.NoError(t, err)

	task := models.Task{Title: "Take vitamins", RecurrenceType: models.RecurrenceDaily, RecurrenceInterval: 1}
	require.NoError(t, db.Create(&task).Error)
	require.NotZero(t, task.ID)

	// migrations are idempotent
	require.NoError(t, Migrate(db))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
}
