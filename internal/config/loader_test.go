package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoader_ParseEnvironment(t *testing.T) {
	variables := []string{
		"TUTORHUB_HTTP_PORT",
		"TUTORHUB_SQLITE_DSN",
		"TUTORHUB_SESSION_TTL",
		"TUTORHUB_TIME_ZONE",
		"TUTORHUB_LOG_LEVEL",
		"TUTORHUB_CORS_ORIGINS",
	}
	clearEnvironment := func(t *testing.T) {
		t.Helper()
		for _, key := range variables {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}
	}

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnvironment(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:tutorhub.db" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.SessionTTL != 24*time.Hour {
			t.Fatalf("expected default session TTL 24h, got %s", cfg.SessionTTL)
		}
		if cfg.Location != time.UTC {
			t.Fatalf("expected default location UTC, got %v", cfg.Location)
		}
		if cfg.LogLevel != slog.LevelInfo {
			t.Fatalf("expected default log level info, got %v", cfg.LogLevel)
		}
		if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
			t.Fatalf("unexpected default CORS origins: %v", cfg.CORSOrigins)
		}
	})

	t.Run("parses overridden values", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("TUTORHUB_HTTP_PORT", "9090")
		t.Setenv("TUTORHUB_SQLITE_DSN", "file:/tmp/tutorhub.db")
		t.Setenv("TUTORHUB_SESSION_TTL", "8h")
		t.Setenv("TUTORHUB_TIME_ZONE", "America/New_York")
		t.Setenv("TUTORHUB_LOG_LEVEL", "debug")
		t.Setenv("TUTORHUB_CORS_ORIGINS", "https://app.example.com, https://staging.example.com")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:/tmp/tutorhub.db" {
			t.Fatalf("unexpected DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.SessionTTL != 8*time.Hour {
			t.Fatalf("expected session TTL 8h, got %s", cfg.SessionTTL)
		}
		if cfg.Location.String() != "America/New_York" {
			t.Fatalf("unexpected location: %v", cfg.Location)
		}
		if cfg.LogLevel != slog.LevelDebug {
			t.Fatalf("expected log level debug, got %v", cfg.LogLevel)
		}
		want := []string{"https://app.example.com", "https://staging.example.com"}
		if len(cfg.CORSOrigins) != len(want) {
			t.Fatalf("unexpected CORS origins: %v", cfg.CORSOrigins)
		}
		for i, origin := range want {
			if cfg.CORSOrigins[i] != origin {
				t.Fatalf("unexpected CORS origin at %d: %q", i, cfg.CORSOrigins[i])
			}
		}
	})

	t.Run("reports invalid values together", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("TUTORHUB_HTTP_PORT", "not-a-port")
		t.Setenv("TUTORHUB_SESSION_TTL", "-1h")
		t.Setenv("TUTORHUB_TIME_ZONE", "Nowhere/Nonexistent")

		_, err := Load()
		if err == nil {
			t.Fatal("expected an error for invalid values")
		}
		for _, key := range []string{"TUTORHUB_HTTP_PORT", "TUTORHUB_SESSION_TTL", "TUTORHUB_TIME_ZONE"} {
			if !strings.Contains(err.Error(), key) {
				t.Errorf("expected the error to name %s: %v", key, err)
			}
		}
	})
}
