// Package config loads service configuration from the process environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the tutoring
// service.
type Config struct {
	HTTPPort    int
	SQLiteDSN   string
	SessionTTL  time.Duration
	Location    *time.Location
	LogLevel    slog.Level
	CORSOrigins []string
}

// Load parses configuration values from the current process environment.
// Every variable is optional; defaults keep a development instance runnable
// with no environment at all. Invalid values are reported together rather
// than one at a time.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:    8080,
		SQLiteDSN:   "file:tutorhub.db",
		SessionTTL:  24 * time.Hour,
		Location:    time.UTC,
		LogLevel:    slog.LevelInfo,
		CORSOrigins: []string{"*"},
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("TUTORHUB_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "TUTORHUB_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("TUTORHUB_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("TUTORHUB_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "TUTORHUB_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if zone := strings.TrimSpace(os.Getenv("TUTORHUB_TIME_ZONE")); zone != "" {
		location, err := time.LoadLocation(zone)
		if err != nil {
			invalid = append(invalid, "TUTORHUB_TIME_ZONE")
		} else {
			cfg.Location = location
		}
	}

	if levelValue := strings.TrimSpace(os.Getenv("TUTORHUB_LOG_LEVEL")); levelValue != "" {
		level, ok := parseLogLevel(levelValue)
		if !ok {
			invalid = append(invalid, "TUTORHUB_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if origins := strings.TrimSpace(os.Getenv("TUTORHUB_CORS_ORIGINS")); origins != "" {
		parsed := make([]string, 0, 2)
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				parsed = append(parsed, trimmed)
			}
		}
		if len(parsed) == 0 {
			invalid = append(invalid, "TUTORHUB_CORS_ORIGINS")
		} else {
			cfg.CORSOrigins = parsed
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func parseLogLevel(value string) (slog.Level, bool) {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
