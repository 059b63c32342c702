package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env             string
	APIBaseURL      string
	APITimeout      time.Duration
	PushURL         string
	PushKey         string
	ChatPageSize    int
	CatalogPageSize int
	StubAddr        string
	StubEnabled     bool
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:        getEnv("APP_ENV", "dev"),
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080/api/v1"),
		PushURL:    getEnv("PUSH_URL", ""),
		PushKey:    os.Getenv("PUSH_KEY"),
		StubAddr:   getEnv("STUB_ADDR", ":8080"),
	}

	timeout, err := parseDurationEnv("API_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.APITimeout = timeout

	chatPageSize, err := parsePositiveIntEnv("CHAT_PAGE_SIZE", 50)
	if err != nil {
		return Config{}, err
	}
	cfg.ChatPageSize = chatPageSize

	catalogPageSize, err := parsePositiveIntEnv("CATALOG_PAGE_SIZE", 10)
	if err != nil {
		return Config{}, err
	}
	cfg.CatalogPageSize = catalogPageSize

	stubEnabled, err := parseBoolEnv("STUB_ENABLED", true)
	if err != nil {
		return Config{}, err
	}
	cfg.StubEnabled = stubEnabled

	if cfg.APIBaseURL == "" {
		return Config{}, fmt.Errorf("API_BASE_URL is required")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parsePositiveIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid %s value: %q", key, raw)
	}
	return value, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
