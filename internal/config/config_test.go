package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "APP_ENV", "BASE_URL", "EXTRACTOR_URL", "EXTRACTOR_TIMEOUT_SECONDS",
		"SLIDE_SECRET", "SLIDE_TTL_SECONDS", "SESSION_TTL_SECONDS", "MAX_UPLOAD_MB", "DATA_DIR", "SANITIZE_DIAGRAMS", "LOG_FILE"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, "http://localhost:8000", cfg.ExtractorURL)
	assert.Zero(t, cfg.ExtractorTimeout)
	assert.Equal(t, time.Hour, cfg.SlideTTL)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadBytes)
	assert.False(t, cfg.SanitizeDiagrams)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("EXTRACTOR_URL", "http://extractor:9000/")
	t.Setenv("EXTRACTOR_TIMEOUT_SECONDS", "30")
	t.Setenv("SANITIZE_DIAGRAMS", "true")
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://extractor:9000", cfg.ExtractorURL)
	assert.Equal(t, 30*time.Second, cfg.ExtractorTimeout)
	assert.True(t, cfg.SanitizeDiagrams)
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfigRejectsBadNumbers(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "lots")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("MAX_UPLOAD_MB", "")
	t.Setenv("SESSION_TTL_SECONDS", "-5")
	_, err = LoadConfig()
	assert.Error(t, err)
}
