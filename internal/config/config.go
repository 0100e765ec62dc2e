// Package config loads the subledgerd daemon configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig is the daemon configuration.
type AppConfig struct {
	// Server
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        slog.Level
	MetricsPath     string
	Sandbox         bool

	// JWT
	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	// Ledger
	PlatformFeeBps uint16
	Custody        string
	Treasury       string
	Operators      []string

	// Redis registry; disabled when RedisAddr is empty.
	RedisAddr   string
	RedisPass   string
	RedisDB     int
	RedisPrefix string
}

// Load reads the configuration from environment variables.
func Load() (AppConfig, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := AppConfig{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		MetricsPath: getEnv("METRICS_PATH", "/metrics"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTIssuer:   getEnv("JWT_ISSUER", "subledgerd"),
		Custody:     getEnv("SUBLEDGER_CUSTODY", "subledger:custody"),
		Treasury:    getEnv("SUBLEDGER_TREASURY", "subledger:treasury"),
		Operators:   getEnvSlice("SUBLEDGER_OPERATORS", nil),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisPass:   getEnv("REDIS_PASS", ""),
		RedisPrefix: getEnv("REDIS_PREFIX", "subledger:registry:"),
	}

	var err error
	cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	collect(err)
	cfg.JWTTTL, err = getEnvDuration("JWT_TTL", 24*time.Hour)
	collect(err)
	cfg.Sandbox, err = getEnvBool("SUBLEDGER_SANDBOX", false)
	collect(err)
	cfg.RedisDB, err = getEnvInt("REDIS_DB", 0)
	collect(err)

	fee, err := getEnvInt("SUBLEDGER_PLATFORM_FEE_BPS", 300)
	collect(err)
	if fee < 0 || fee > 1000 {
		collect(fmt.Errorf("SUBLEDGER_PLATFORM_FEE_BPS: %d outside 0..1000", fee))
	}
	cfg.PlatformFeeBps = uint16(fee)

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		collect(fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if cfg.JWTSecret == "" {
		collect(errors.New("JWT_SECRET is required"))
	}

	return cfg, errors.Join(errs...)
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
