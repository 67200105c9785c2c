package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"DB_DRIVER", "DATABASE_URL", "SERVER_PORT", "TZ_NAME", "REMINDER_HOUR", "SERIES_LOCK_TTL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "tasks-management.db", cfg.Database.URL)
	require.Equal(t, "8008", cfg.HTTP.Port)
	require.Equal(t, 9, cfg.Schedule.ReminderHour)
	require.Equal(t, 10*time.Minute, cfg.Schedule.SeriesLockTTL)
	require.Equal(t, time.Local, cfg.Schedule.Location)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("TZ_NAME", "UTC")
	t.Setenv("REMINDER_HOUR", "7")
	t.Setenv("SERIES_LOCK_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, time.UTC, cfg.Schedule.Location)
	require.Equal(t, 7, cfg.Schedule.ReminderHour)
	require.Equal(t, 30*time.Second, cfg.Schedule.SeriesLockTTL)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("DB_DRIVER", "mongo")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("REMINDER_HOUR", "25")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("REMINDER_HOUR", "9")
	t.Setenv("TZ_NAME", "Mars/Olympus_Mons")
	_, err = Load()
	require.Error(t, err)
}
