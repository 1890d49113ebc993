package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Catalog
	TMDBAPIKey  string
	TMDBBaseURL string

	// Search
	SearchDebounce  time.Duration // Quiet period before an auto search (default: 500ms)
	SearchMinLength int           // Shortest query sent to the catalog (default: 2)

	// Reminders
	ReminderCheckInterval time.Duration // Polling interval for due reminders (default: 30s)

	// Storage
	StorageQuotaBytes int64 // 0 disables the quota (default: 5 MiB)

	// Server
	ServerPort         string
	RateLimitPerMinute int

	// Paths
	ConfigDir    string
	DatabaseFile string // $CONFIG_DIR/reelpicks.db

	// Logging
	LogLevel  string
	LogFormat string // text or json (default: text)
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = v.ReadInConfig()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetDefault("TMDB_BASE_URL", "https://api.themoviedb.org/3")
	v.SetDefault("SEARCH_DEBOUNCE_MS", 500)
	v.SetDefault("SEARCH_MIN_LENGTH", 2)
	v.SetDefault("REMINDER_CHECK_INTERVAL", "30s")
	v.SetDefault("STORAGE_QUOTA_BYTES", 5*1024*1024)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	configDir := v.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "reelpicks")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	databaseFile := v.GetString("DATABASE_FILE")
	if databaseFile == "" {
		databaseFile = filepath.Join(configDir, "reelpicks.db")
	}

	cfg := &Config{
		TMDBAPIKey:  v.GetString("TMDB_API_KEY"),
		TMDBBaseURL: v.GetString("TMDB_BASE_URL"),

		SearchDebounce:  time.Duration(v.GetInt("SEARCH_DEBOUNCE_MS")) * time.Millisecond,
		SearchMinLength: v.GetInt("SEARCH_MIN_LENGTH"),

		ReminderCheckInterval: v.GetDuration("REMINDER_CHECK_INTERVAL"),

		StorageQuotaBytes: v.GetInt64("STORAGE_QUOTA_BYTES"),

		ServerPort:         v.GetString("SERVER_PORT"),
		RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),

		ConfigDir:    configDir,
		DatabaseFile: databaseFile,

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
	}

	if cfg.SearchDebounce < 0 {
		return nil, fmt.Errorf("SEARCH_DEBOUNCE_MS must not be negative")
	}
	if cfg.SearchMinLength < 1 {
		return nil, fmt.Errorf("SEARCH_MIN_LENGTH must be at least 1")
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json")
	}
	if cfg.ReminderCheckInterval < time.Second {
		return nil, fmt.Errorf("REMINDER_CHECK_INTERVAL must be at least 1s")
	}

	return cfg, nil
}

// ValidateServe checks the settings only the HTTP server needs.
func (c *Config) ValidateServe() error {
	if c.TMDBAPIKey == "" {
		return fmt.Errorf("TMDB_API_KEY is required")
	}
	if c.TMDBBaseURL == "" {
		return fmt.Errorf("TMDB_BASE_URL is required")
	}
	return nil
}
