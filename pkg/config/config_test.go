package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Rooms.MaxRooms)
	assert.Equal(t, 60*time.Second, cfg.Rooms.CleanupGrace)
	assert.Equal(t, 75*time.Second, cfg.Signal.PongTimeout)
	assert.Equal(t, 32, cfg.Signal.SendBufferSize)
	assert.True(t, cfg.Monitoring.PrometheusEnabled)
	assert.False(t, cfg.Tracing.Enabled)
	assert.False(t, cfg.RateLimiting.Enabled)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("server:\n  port: 8080\nrooms:\n  max_rooms: 2\n  cleanup_grace: 10s\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Rooms.MaxRooms)
	assert.Equal(t, 10*time.Second, cfg.Rooms.CleanupGrace)
	// Untouched sections keep their defaults.
	assert.Equal(t, 75*time.Second, cfg.Signal.PongTimeout)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CASTLINK_MAX_ROOMS", "3")
	t.Setenv("CASTLINK_CLEANUP_GRACE", "90s")
	t.Setenv("CASTLINK_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Rooms.MaxRooms)
	assert.Equal(t, 90*time.Second, cfg.Rooms.CleanupGrace)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, true},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero max rooms", func(c *Config) { c.Rooms.MaxRooms = 0 }, true},
		{"zero cleanup grace", func(c *Config) { c.Rooms.CleanupGrace = 0 }, true},
		{"zero pong timeout", func(c *Config) { c.Signal.PongTimeout = 0 }, true},
		{"zero send buffer", func(c *Config) { c.Signal.SendBufferSize = 0 }, true},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }, true},
		{"tls cert without key", func(c *Config) { c.Server.TLSCertFile = "cert.pem" }, true},
		{"tls cert and key", func(c *Config) {
			c.Server.TLSCertFile = "cert.pem"
			c.Server.TLSKeyFile = "key.pem"
		}, false},
		{"tracing enabled without url", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.JaegerURL = ""
		}, true},
		{"sample rate out of range", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.SampleRate = 1.5
		}, true},
		{"rate limiting enabled without rps", func(c *Config) {
			c.RateLimiting.Enabled = true
			c.RateLimiting.HTTP.RequestsPerSecond = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
