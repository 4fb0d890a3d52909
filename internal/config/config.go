package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the application.
type Config struct {
	DataDir   string
	DBPath    string
	Port      string
	LogLevel  string
	LogFormat string

	// StaleAfter is how old a price may get before it is reported as stale.
	StaleAfter time.Duration

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
}

// BotEnabled reports whether a Telegram bot token is configured.
func (c *Config) BotEnabled() bool {
	return c.TelegramBotToken != ""
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	dataDir := os.Getenv("PROCHEFF_DATA_DIR")
	if dataDir == "" {
		return nil, fmt.Errorf("PROCHEFF_DATA_DIR environment variable not set")
	}

	logFormat := getEnvOrDefault("PROCHEFF_LOG_FORMAT", "json")
	if logFormat != "json" && logFormat != "console" {
		return nil, fmt.Errorf("PROCHEFF_LOG_FORMAT must be json or console, got %q", logFormat)
	}

	staleDays := 30
	if v := os.Getenv("PROCHEFF_STALE_AFTER_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("PROCHEFF_STALE_AFTER_DAYS must be a positive integer, got %q", v)
		}
		staleDays = n
	}

	// Telegram Config (optional, the bot is disabled without a token)
	var allowed []int64
	if v := os.Getenv("TELEGRAM_ALLOWED_USER_IDS"); v != "" {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS entry %q: %w", part, err)
			}
			allowed = append(allowed, id)
		}
	}

	return &Config{
		DataDir:                dataDir,
		DBPath:                 getEnvOrDefault("PROCHEFF_DB_PATH", "data/procheff.db"),
		Port:                   getEnvOrDefault("PORT", "8080"),
		LogLevel:               getEnvOrDefault("PROCHEFF_LOG_LEVEL", "info"),
		LogFormat:              logFormat,
		StaleAfter:             time.Duration(staleDays) * 24 * time.Hour,
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowed,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
