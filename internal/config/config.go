package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port             string
	Env              string
	BaseURL          string
	ExtractorURL     string
	ExtractorTimeout time.Duration
	SlideSecret      string
	SlideTTL         time.Duration
	SessionTTL       time.Duration
	MaxUploadBytes   int64
	DataDir          string
	SanitizeDiagrams bool
	LogFile          string
}

func LoadConfig() (Config, error) {
	cfg := Config{}

	cfg.Port = envOrDefault("PORT", "8080")
	cfg.Env = envOrDefault("APP_ENV", "development")
	cfg.BaseURL = strings.TrimRight(envOrDefault("BASE_URL", fmt.Sprintf("http://localhost:%s", cfg.Port)), "/")
	cfg.ExtractorURL = strings.TrimRight(envOrDefault("EXTRACTOR_URL", "http://localhost:8000"), "/")
	cfg.SlideSecret = envOrDefault("SLIDE_SECRET", "change-me")
	cfg.DataDir = envOrDefault("DATA_DIR", "data")
	cfg.LogFile = os.Getenv("LOG_FILE")

	timeoutSeconds, err := parseIntEnv("EXTRACTOR_TIMEOUT_SECONDS", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse EXTRACTOR_TIMEOUT_SECONDS: %w", err)
	}
	cfg.ExtractorTimeout = time.Duration(timeoutSeconds) * time.Second

	slideTTLSeconds, err := parseIntEnv("SLIDE_TTL_SECONDS", 3600)
	if err != nil {
		return Config{}, fmt.Errorf("parse SLIDE_TTL_SECONDS: %w", err)
	}
	cfg.SlideTTL = time.Duration(slideTTLSeconds) * time.Second

	sessionTTLSeconds, err := parseIntEnv("SESSION_TTL_SECONDS", 3600)
	if err != nil {
		return Config{}, fmt.Errorf("parse SESSION_TTL_SECONDS: %w", err)
	}
	cfg.SessionTTL = time.Duration(sessionTTLSeconds) * time.Second

	maxUploadMB, err := parseIntEnv("MAX_UPLOAD_MB", 10)
	if err != nil {
		return Config{}, fmt.Errorf("parse MAX_UPLOAD_MB: %w", err)
	}
	cfg.MaxUploadBytes = maxUploadMB * 1024 * 1024

	cfg.SanitizeDiagrams, err = parseBoolEnv("SANITIZE_DIAGRAMS", false)
	if err != nil {
		return Config{}, fmt.Errorf("parse SANITIZE_DIAGRAMS: %w", err)
	}

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = absDataDir

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseIntEnv(key string, fallback int64) (int64, error) {
	value := envOrDefault(key, "")
	if value == "" {
		return fallback, nil
	}

	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}
	if num < 0 {
		return 0, fmt.Errorf("must not be negative, got %d", num)
	}
	return num, nil
}

func parseBoolEnv(key string, fallback bool) (bool, error) {
	value := envOrDefault(key, "")
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}
