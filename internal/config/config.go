package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates the runtime settings of the server.
type Config struct {
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Logger      LoggerConfig
	Schedule    ScheduleConfig
}

type HTTPConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver   string
	URL      string
	LogLevel string
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

// ScheduleConfig drives the date engine: which location "09:00 local" and
// "today" refer to, and how long idle per-series locks are kept.
type ScheduleConfig struct {
	Location      *time.Location
	ReminderHour  int
	SeriesLockTTL time.Duration
	JanitorSpec   string
}

// Load reads configuration from the environment, optionally seeded by .env.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	loc, err := loadLocation(os.Getenv("TZ_NAME"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Port:            getString("SERVER_PORT", "8008"),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getString("DB_DRIVER", "sqlite")),
			URL:      getString("DATABASE_URL", "tasks-management.db"),
			LogLevel: getString("DB_LOG_LEVEL", "warn"),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Schedule: ScheduleConfig{
			Location:      loc,
			ReminderHour:  getInt("REMINDER_HOUR", 9),
			SeriesLockTTL: getDuration("SERIES_LOCK_TTL", 10*time.Minute),
			JanitorSpec:   getString("JANITOR_SPEC", "@every 5m"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Schedule.ReminderHour < 0 || c.Schedule.ReminderHour > 23 {
		return fmt.Errorf("REMINDER_HOUR must be between 0 and 23, got %d", c.Schedule.ReminderHour)
	}
	if c.Schedule.SeriesLockTTL <= 0 {
		return fmt.Errorf("SERIES_LOCK_TTL must be positive")
	}
	return nil
}

// IsProduction reports whether gin should run in release mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load TZ_NAME %q: %w", name, err)
	}
	return loc, nil
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
