package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/dukerupert/aisle/internal/optimistic"
	"github.com/dukerupert/aisle/internal/search"
)

type Config struct {
	Port           string
	DatabasePath   string
	LogLevel       string
	LogFormat      string
	Locale         language.Tag
	Policy         optimistic.Policy
	SearchDebounce time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:         envOrDefault("AISLE_PORT", "8080"),
		DatabasePath: envOrDefault("AISLE_DB_PATH", "aisle.db"),
		LogLevel:     envOrDefault("AISLE_LOG_LEVEL", "info"),
		LogFormat:    envOrDefault("AISLE_LOG_FORMAT", "text"),
	}

	locale, err := language.Parse(envOrDefault("AISLE_LOCALE", "en"))
	if err != nil {
		return Config{}, fmt.Errorf("AISLE_LOCALE: %w", err)
	}
	cfg.Locale = locale

	switch strings.ToLower(envOrDefault("AISLE_ROLLBACK", "false")) {
	case "true", "1", "yes":
		cfg.Policy = optimistic.Rollback
	case "false", "0", "no":
		cfg.Policy = optimistic.Keep
	default:
		return Config{}, fmt.Errorf("AISLE_ROLLBACK must be true or false, got %q", os.Getenv("AISLE_ROLLBACK"))
	}

	debounce, err := time.ParseDuration(envOrDefault("AISLE_SEARCH_DEBOUNCE", search.DefaultDebounce.String()))
	if err != nil {
		return Config{}, fmt.Errorf("AISLE_SEARCH_DEBOUNCE: %w", err)
	}
	if debounce < 0 {
		return Config{}, fmt.Errorf("AISLE_SEARCH_DEBOUNCE must not be negative")
	}
	cfg.SearchDebounce = debounce

	return cfg, nil
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
