package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "cpu", cfg.Device)
	assert.Equal(t, "server", cfg.ModelVariant)
	assert.False(t, cfg.EnableDocOrientation)
	assert.False(t, cfg.EnableDocUnwarping)
	assert.True(t, cfg.EnableTextOrientation)
	assert.Equal(t, int64(10485760), cfg.MaxFileSize)
	assert.Equal(t, 30*time.Second, cfg.DownloadTimeout())
	assert.Equal(t, "0.0.0.0:8000", cfg.Address())
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 2, cfg.OCRWorkers)
	assert.Zero(t, cfg.EngineTimeout())
	assert.Equal(t, "paddle", cfg.OCREngine)
	assert.Equal(t, 5*time.Second, cfg.DNSLookupTimeout())
	assert.Equal(t, 0.3, cfg.Thresholds().Detection)
	assert.Equal(t, 0.7, cfg.Thresholds().Recognition)
	assert.Equal(t, "*", cfg.CORSAllowOrigins)
	assert.Equal(t, 5*time.Minute, cfg.PaddleTimeout())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DEVICE", "cuda:1")
	t.Setenv("MODEL_VARIANT", "mobile")
	t.Setenv("ENABLE_TEXT_ORIENTATION", "false")
	t.Setenv("MAX_FILE_SIZE", "2048")
	t.Setenv("PORT", "9000")
	t.Setenv("OCR_TIMEOUT", "15")
	t.Setenv("OCR_DETECTION_THRESHOLD", "0.45")
	t.Setenv("OCR_RECOGNITION_THRESHOLD", "0")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://app.example.com")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "cuda:1", cfg.Device)
	assert.Equal(t, "mobile", cfg.ModelVariant)
	assert.False(t, cfg.EnableTextOrientation)
	assert.Equal(t, int64(2048), cfg.MaxFileSize)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.EngineTimeout())
	assert.Equal(t, 0.45, cfg.OCRDetectionThreshold)
	assert.Zero(t, cfg.OCRRecognitionThreshold)
	assert.Equal(t, "https://app.example.com", cfg.CORSAllowOrigins)
}

func TestFromEnvRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PORT", "eighty"},
		{"PORT", "70000"},
		{"DEVICE", "tpu"},
		{"DEVICE", "cuda:"},
		{"MODEL_VARIANT", "large"},
		{"MAX_FILE_SIZE", "0"},
		{"ENABLE_DOC_UNWARPING", "maybe"},
		{"LOG_LEVEL", "loud"},
		{"OCR_ENGINE", "easyocr"},
		{"OCR_WORKERS", "0"},
		{"OCR_TIMEOUT", "-1"},
		{"OCR_DETECTION_THRESHOLD", "1.5"},
		{"OCR_RECOGNITION_THRESHOLD", "-0.1"},
		{"OCR_RECOGNITION_THRESHOLD", "high"},
		{"PADDLE_REQUEST_TIMEOUT", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestFromEnvCacheNeedsRedis(t *testing.T) {
	t.Setenv("OCR_CACHE_ENABLED", "true")

	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.OCRCacheEnabled)
	assert.Equal(t, time.Hour, cfg.CacheTTL())
}
