package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framegrab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
extract:
  pixel_format: rgba
  open_strategy: tempfile
  temp_dir: /var/tmp
http:
  addr: ":9090"
  request_timeout: 5s
s3:
  endpoint: minio:9000
  use_ssl: true
`), 0o600))

	t.Setenv("FRAMEGRAB_HTTP_ADDR", ":7070")
	t.Setenv("FRAMEGRAB_EXTRACT_SCALING", "bicubic")
	t.Setenv("FRAMEGRAB_S3_ACCESS_KEY", "key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "rgba", cfg.Extract.PixelFormat)
	assert.Equal(t, "bicubic", cfg.Extract.Scaling)
	assert.Equal(t, "tempfile", cfg.Extract.OpenStrategy)
	assert.Equal(t, "/var/tmp", cfg.Extract.TempDir)
	assert.Equal(t, ":7070", cfg.HTTP.Addr, "environment wins over the file")
	assert.Equal(t, 5*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, "minio:9000", cfg.S3.Endpoint)
	assert.True(t, cfg.S3.UseSSL)
	assert.Equal(t, "key", cfg.S3.AccessKey)
	// Untouched fields keep their defaults.
	assert.Equal(t, "error", cfg.FFmpegLogLevel)
	assert.Equal(t, int64(512<<20), cfg.HTTP.MaxBodyBytes)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("FRAMEGRAB_EXTRACT_PIXEL_FORMAT", "yuv420p")
	t.Setenv("FRAMEGRAB_TRACING_EXPORTER", "otlp")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract.pixel_format")
	assert.Contains(t, err.Error(), "otlp_endpoint")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: [unclosed"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateLimits(t *testing.T) {
	cfg := Defaults()
	cfg.HTTP.RequestTimeout = 0
	cfg.HTTP.MaxConcurrent = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request_timeout")
	assert.Contains(t, err.Error(), "max_concurrent")
}
