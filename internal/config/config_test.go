package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "geovoiced.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	timeouts, err := cfg.Server.Timeouts()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeouts.ReadHeader)
	assert.Equal(t, 15*time.Second, timeouts.Read)
	assert.Equal(t, 30*time.Second, timeouts.Write)
	assert.Equal(t, 60*time.Second, timeouts.Idle)
	assert.Equal(t, 10*time.Second, timeouts.Shutdown)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvLogLevel, "")

	path := writeConfig(t, `
server:
  addr: "127.0.0.1:9000"
  write_timeout: 5s
logging:
  level: debug
  development: true
metrics:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "5s", cfg.Server.WriteTimeout)
	assert.Equal(t, "15s", cfg.Server.ReadTimeout, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv(EnvAddr, ":7070")
	t.Setenv(EnvLogLevel, "warn")

	path := writeConfig(t, "server:\n  addr: \":9000\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvLogLevel, "")

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server: [unterminated"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config")
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
server:
  addr: ""
  read_timeout: -1s
logging:
  level: loud
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.addr is required")
		assert.Contains(t, err.Error(), "server.read_timeout")
		assert.Contains(t, err.Error(), "unknown level")
	})
}

func TestRead_DefersValidation(t *testing.T) {
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvLogLevel, "verbose")

	cfg, err := Read("")
	require.NoError(t, err)
	assert.Equal(t, "verbose", cfg.Logging.Level)
	require.Error(t, cfg.Validate())

	_, err = Load("")
	require.Error(t, err)

	cfg.Logging.Level = "debug"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MetricsPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Path = "metrics"
	require.Error(t, cfg.Validate())

	cfg.Metrics.Path = "/voice-command"
	require.Error(t, cfg.Validate())

	cfg.Metrics.Path = "/static/metrics"
	require.Error(t, cfg.Validate())

	cfg.Metrics.Enabled = false
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ExampleFile(t *testing.T) {
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load(filepath.Join("..", "..", "configs", "geovoiced.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
