package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultDatabaseURL    = "taskflow.db"
	DefaultHTTPAddr       = ":8080"
	DefaultReportInterval = 5 * time.Hour
	DefaultSearchDebounce = 300 * time.Millisecond
)

// Config keeps runtime settings for every command.
type Config struct {
	DatabaseURL string
	// StoreURL points at a remote record store; empty means the local database.
	StoreURL       string
	ProjectID      string
	PublicKey      string
	HTTPAddr       string
	TelegramToken  string
	ReportInterval time.Duration
	// ReportTime is an HH:MM daily report time and takes precedence over ReportInterval.
	ReportTime     string
	SearchDebounce time.Duration
	LogLevel       string
	LogFormat      string
}

// Load reads an optional .env file and then environment variables with sane defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg := Config{
		DatabaseURL:   get("DATABASE_URL"),
		StoreURL:      get("TASKFLOW_STORE_URL"),
		ProjectID:     get("TASKFLOW_PROJECT_ID"),
		PublicKey:     get("TASKFLOW_PUBLIC_KEY"),
		HTTPAddr:      get("HTTP_ADDR"),
		TelegramToken: get("TELEGRAM_TOKEN"),
		ReportTime:    get("REPORT_TIME"),
		LogLevel:      strings.ToLower(get("LOG_LEVEL")),
		LogFormat:     strings.ToLower(get("LOG_FORMAT")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = DefaultDatabaseURL
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return cfg, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	cfg.ReportInterval = parseInterval(get("REPORT_INTERVAL_HOURS"))
	if cfg.ReportInterval == 0 {
		cfg.ReportInterval = DefaultReportInterval
	}

	cfg.SearchDebounce = DefaultSearchDebounce
	if raw := get("TASKFLOW_SEARCH_DEBOUNCE"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return cfg, fmt.Errorf("TASKFLOW_SEARCH_DEBOUNCE must be a duration like 300ms, got %q", raw)
		}
		cfg.SearchDebounce = d
	}

	return cfg, nil
}

// RequireTelegram reports a missing bot token.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return nil
}

// Remote reports whether a remote record store is configured.
func (c Config) Remote() bool {
	return c.StoreURL != ""
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
