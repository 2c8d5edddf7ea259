package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0", cfg.Web.Host)
	assert.Equal(t, 5000, cfg.Web.Port)
	assert.Equal(t, "uploads", cfg.Store.Dir)
	assert.Equal(t, 1280, cfg.Store.MaxImageSize)
	assert.Equal(t, "http", cfg.Detector.Backend)
	assert.Equal(t, "http://localhost:8000", cfg.Detector.URL)
	assert.Equal(t, 10*time.Second, cfg.Detector.Timeout)
	assert.InDelta(t, 0.6, cfg.Matcher.Threshold, 1e-9)
	assert.Equal(t, 200*time.Millisecond, cfg.Recognition.Interval)
	assert.Zero(t, cfg.Recognition.ReloadInterval)
	assert.Zero(t, cfg.Recognition.OverlapIoU)
	assert.False(t, cfg.Camera.Enabled())
	assert.Equal(t, 720, cfg.Camera.Width)
	assert.Equal(t, 560, cfg.Camera.Height)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5000", cfg.Web.Addr())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("FACES_WEB_PORT", "8080")
	t.Setenv("FACES_STORE_DIR", "/data/faces")
	t.Setenv("FACES_MATCHER_THRESHOLD", "0.45")
	t.Setenv("FACES_RECOGNITION_INTERVAL", "1s")
	t.Setenv("FACES_CAMERA_BACKEND", "snapshot")
	t.Setenv("FACES_CAMERA_URL", "http://camera.local/snapshot.jpg")
	t.Setenv("FACES_WEB_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("FACES_LOG_FORMAT", "json")
	t.Setenv("FACES_RECOGNITION_OVERLAP_IOU", "0.4")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Web.Port)
	assert.Equal(t, "/data/faces", cfg.Store.Dir)
	assert.InDelta(t, 0.45, cfg.Matcher.Threshold, 1e-9)
	assert.Equal(t, time.Second, cfg.Recognition.Interval)
	assert.Equal(t, "snapshot", cfg.Camera.Backend)
	assert.Equal(t, "http://camera.local/snapshot.jpg", cfg.Camera.URL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Web.AllowedOrigins)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.InDelta(t, 0.4, cfg.Recognition.OverlapIoU, 1e-9)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faces.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
web:
  port: 9000
store:
  dir: /srv/faces
detector:
  url: http://embeddings:8000
matcher:
  threshold: 0.5
`), 0o644))
	t.Setenv("FACES_WEB_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Web.Port)
	assert.Equal(t, "/srv/faces", cfg.Store.Dir)
	assert.Equal(t, "http://embeddings:8000", cfg.Detector.URL)
	assert.InDelta(t, 0.5, cfg.Matcher.Threshold, 1e-9)
	assert.Equal(t, "0.0.0.0", cfg.Web.Host)
}

func TestLoad_ConfigFileFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faces.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  dir: from-env-file\n"), 0o644))
	t.Setenv("FACES_CONFIG_FILE", path)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "from-env-file", cfg.Store.Dir)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidEnvironmentValue(t *testing.T) {
	t.Setenv("FACES_WEB_PORT", "not-a-number")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"port zero", func(c *Config) { c.Web.Port = 0 }, ErrInvalidPort},
		{"port too large", func(c *Config) { c.Web.Port = 70000 }, ErrInvalidPort},
		{"empty store", func(c *Config) { c.Store.Dir = "" }, ErrEmptyStoreDir},
		{"zero threshold", func(c *Config) { c.Matcher.Threshold = 0 }, ErrInvalidThreshold},
		{"negative interval", func(c *Config) { c.Recognition.Interval = -time.Second }, ErrInvalidInterval},
		{"negative overlap", func(c *Config) { c.Recognition.OverlapIoU = -0.1 }, ErrInvalidOverlap},
		{"overlap above one", func(c *Config) { c.Recognition.OverlapIoU = 1.5 }, ErrInvalidOverlap},
		{"overlap enabled", func(c *Config) { c.Recognition.OverlapIoU = 0.5 }, nil},
		{"unknown camera", func(c *Config) { c.Camera.Backend = "usb" }, ErrUnknownCamera},
		{"snapshot without url", func(c *Config) { c.Camera.Backend = "snapshot" }, ErrMissingCameraURL},
		{"directory without dir", func(c *Config) { c.Camera.Backend = "directory" }, ErrMissingCameraDir},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, ErrInvalidLogFormat},
		{"device camera", func(c *Config) { c.Camera.Backend = "device" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
