package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	t.Run("Levels", func(t *testing.T) {
		tests := []struct {
			level string
			debug bool
		}{
			{"debug", true},
			{"info", false},
			{"warn", false},
		}
		for _, tt := range tests {
			logger, err := New(tt.level, "json")
			if err != nil {
				t.Fatalf("Expected no error for %s, got %v", tt.level, err)
			}
			if got := logger.Core().Enabled(zap.DebugLevel); got != tt.debug {
				t.Errorf("Level %s: expected debug enabled %v, got %v", tt.level, tt.debug, got)
			}
		}
	})

	t.Run("Console", func(t *testing.T) {
		if _, err := New("info", "console"); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		if _, err := New("loud", "json"); err == nil {
			t.Fatal("Expected an error for an invalid level, got nil")
		}
	})

	t.Run("InvalidFormat", func(t *testing.T) {
		if _, err := New("info", "xml"); err == nil {
			t.Fatal("Expected an error for an invalid format, got nil")
		}
	})
}
