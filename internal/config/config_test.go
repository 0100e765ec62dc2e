package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPAddr != ":8080" || cfg.MetricsPath != "/metrics" {
		t.Errorf("server defaults = %q %q", cfg.HTTPAddr, cfg.MetricsPath)
	}
	if cfg.PlatformFeeBps != 300 || cfg.JWTTTL != 24*time.Hour || cfg.LogLevel != slog.LevelInfo {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.RedisAddr != "" || cfg.Sandbox {
		t.Errorf("optional features enabled by default: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("SUBLEDGER_PLATFORM_FEE_BPS", "250")
	t.Setenv("SUBLEDGER_OPERATORS", "ops-a, ops-b,,")
	t.Setenv("SUBLEDGER_SANDBOX", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		ok   bool
	}{
		{"addr", cfg.HTTPAddr == ":9000"},
		{"fee", cfg.PlatformFeeBps == 250},
		{"operators", len(cfg.Operators) == 2 && cfg.Operators[1] == "ops-b"},
		{"sandbox", cfg.Sandbox},
		{"redis", cfg.RedisAddr == "localhost:6379" && cfg.RedisDB == 2},
		{"log level", cfg.LogLevel == slog.LevelDebug},
		{"shutdown", cfg.ShutdownTimeout == 3*time.Second},
	}
	for _, tt := range tests {
		if !tt.ok {
			t.Errorf("%s not applied: %+v", tt.name, cfg)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", nil, "JWT_SECRET"},
		{"fee above cap", map[string]string{"JWT_SECRET": "s", "SUBLEDGER_PLATFORM_FEE_BPS": "1001"}, "SUBLEDGER_PLATFORM_FEE_BPS"},
		{"bad int", map[string]string{"JWT_SECRET": "s", "REDIS_DB": "two"}, "REDIS_DB"},
		{"bad duration", map[string]string{"JWT_SECRET": "s", "JWT_TTL": "forever"}, "JWT_TTL"},
		{"bad level", map[string]string{"JWT_SECRET": "s", "LOG_LEVEL": "loud"}, "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
