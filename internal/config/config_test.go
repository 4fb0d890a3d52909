package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestNewFromEnv(t *testing.T) {
	// Helper function to set environment variables for a test
	setEnv := func(key, value string) {
		t.Helper()
		t.Setenv(key, value)
	}
	unset := func(keys ...string) {
		t.Helper()
		for _, k := range keys {
			// t.Setenv restores the original value once the test ends.
			t.Setenv(k, "")
			os.Unsetenv(k)
		}
	}

	t.Run("Defaults", func(t *testing.T) {
		setEnv("PROCHEFF_DATA_DIR", "testdata")
		unset("PROCHEFF_DB_PATH", "PORT", "PROCHEFF_LOG_LEVEL", "PROCHEFF_LOG_FORMAT",
			"PROCHEFF_STALE_AFTER_DAYS", "TELEGRAM_BOT_TOKEN", "TELEGRAM_ALLOWED_USER_IDS")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.DataDir != "testdata" {
			t.Errorf("Expected DataDir to be 'testdata', got '%s'", cfg.DataDir)
		}
		if cfg.DBPath != "data/procheff.db" {
			t.Errorf("Expected default DBPath, got '%s'", cfg.DBPath)
		}
		if cfg.Port != "8080" {
			t.Errorf("Expected Port to be '8080', got '%s'", cfg.Port)
		}
		if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
			t.Errorf("Expected info/json logging, got %s/%s", cfg.LogLevel, cfg.LogFormat)
		}
		if cfg.StaleAfter != 30*24*time.Hour {
			t.Errorf("Expected StaleAfter of 30 days, got %v", cfg.StaleAfter)
		}
		if cfg.BotEnabled() {
			t.Error("Expected the bot to be disabled without a token")
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		setEnv("PROCHEFF_DATA_DIR", "/srv/procheff")
		setEnv("PROCHEFF_DB_PATH", "/tmp/m.db")
		setEnv("PORT", "9090")
		setEnv("PROCHEFF_LOG_FORMAT", "console")
		setEnv("PROCHEFF_STALE_AFTER_DAYS", "7")
		setEnv("TELEGRAM_BOT_TOKEN", "token")
		setEnv("TELEGRAM_ALLOWED_USER_IDS", "42, 1001,")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.DBPath != "/tmp/m.db" || cfg.Port != "9090" || cfg.LogFormat != "console" {
			t.Errorf("Unexpected config %+v", cfg)
		}
		if cfg.StaleAfter != 7*24*time.Hour {
			t.Errorf("Expected StaleAfter of 7 days, got %v", cfg.StaleAfter)
		}
		if !cfg.BotEnabled() {
			t.Error("Expected the bot to be enabled")
		}
		if want := []int64{42, 1001}; !reflect.DeepEqual(cfg.TelegramAllowedUserIDs, want) {
			t.Errorf("Expected allowed users %v, got %v", want, cfg.TelegramAllowedUserIDs)
		}
	})

	t.Run("MissingDataDir", func(t *testing.T) {
		unset("PROCHEFF_DATA_DIR")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing PROCHEFF_DATA_DIR, got nil")
		}
		expectedError := "PROCHEFF_DATA_DIR environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("InvalidValues", func(t *testing.T) {
		tests := []struct {
			name  string
			key   string
			value string
		}{
			{"StaleDaysNotNumber", "PROCHEFF_STALE_AFTER_DAYS", "month"},
			{"StaleDaysZero", "PROCHEFF_STALE_AFTER_DAYS", "0"},
			{"LogFormat", "PROCHEFF_LOG_FORMAT", "xml"},
			{"AllowedUsers", "TELEGRAM_ALLOWED_USER_IDS", "42,abc"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Setenv("PROCHEFF_DATA_DIR", "testdata")
				t.Setenv("PROCHEFF_STALE_AFTER_DAYS", "")
				t.Setenv("PROCHEFF_LOG_FORMAT", "")
				t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "")
				t.Setenv(tt.key, tt.value)

				if _, err := NewFromEnv(); err == nil {
					t.Errorf("Expected an error for %s=%q, got nil", tt.key, tt.value)
				}
			})
		}
	})
}
