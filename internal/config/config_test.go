package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/candidate-screener/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.ScoringModel)
	assert.Equal(t, int64(10), cfg.MaxUploadMB)
	assert.Equal(t, 15, cfg.BulkUploadBatchSize)
	assert.Equal(t, 3, cfg.AnalysisMaxRetries)
	assert.Equal(t, time.Second, cfg.RetryBaseDelay)
	assert.Equal(t, 10*time.Minute, cfg.AnalysisLockTTL)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PORT", "9090")
	t.Setenv("ANALYSIS_MAX_RETRIES", "5")
	t.Setenv("VISION_MODEL", "openai/gpt-4o")
	t.Setenv("RESEND_API_KEY", "re_test")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 5, cfg.AnalysisMaxRetries)
	assert.True(t, cfg.OCREnabled())
	assert.True(t, cfg.MailEnabled())
}

func TestFeatureTogglesDisabledByDefault(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.False(t, cfg.OCREnabled())
	assert.False(t, cfg.MailEnabled())
}

func TestGetRetryConfig(t *testing.T) {
	cfg := config.Config{AppEnv: "test", AnalysisMaxRetries: 3, RetryBaseDelay: time.Second}
	retries, delay := cfg.GetRetryConfig()
	assert.Equal(t, 3, retries)
	assert.Equal(t, time.Millisecond, delay, "test mode shrinks the retry delay")

	cfg.AppEnv = "prod"
	_, delay = cfg.GetRetryConfig()
	assert.Equal(t, time.Second, delay)
}
