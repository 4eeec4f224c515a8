package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/superemem/azwaryfocus/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(config.ConfigPathEnv, "")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, config.TransportStdio, cfg.Transport.Mode)
	require.Equal(t, "127.0.0.1:8080", cfg.Transport.Addr())
	require.Equal(t, 25*time.Second, cfg.Realtime.Heartbeat)
	require.True(t, cfg.Realtime.Enabled)
	require.Equal(t, "en-US", cfg.Feedback.Locale)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "azwary.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend:
  url: https://example.supabase.co
  anon_key: file-key
  timeout: 5s
realtime:
  enabled: false
  heartbeat: 10s
log:
  level: debug
feedback:
  locale: id-ID
transport:
  mode: http
  port: 9090
`), 0o600))
	t.Setenv(config.ConfigPathEnv, path)
	t.Setenv("AZWARY_BACKEND_ANON_KEY", "env-key")
	t.Setenv("AZWARY_HTTP_PORT", "7070")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "https://example.supabase.co", cfg.Backend.URL)
	require.Equal(t, "env-key", cfg.Backend.AnonKey)
	require.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	require.False(t, cfg.Realtime.Enabled)
	require.Equal(t, 10*time.Second, cfg.Realtime.Heartbeat)
	require.Equal(t, 30*time.Second, cfg.Realtime.MaxBackoff)
	require.Equal(t, "id-ID", cfg.Feedback.Locale)
	require.Equal(t, config.TransportHTTP, cfg.Transport.Mode)
	require.Equal(t, 7070, cfg.Transport.Port)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(config.ConfigPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := config.Load()
	require.ErrorContains(t, err, "read config file")

	t.Setenv(config.ConfigPathEnv, "")
	t.Setenv("AZWARY_HTTP_PORT", "not-a-port")
	_, err = config.Load()
	require.ErrorContains(t, err, "parse env:")

	t.Setenv("AZWARY_HTTP_PORT", "8080")
	t.Setenv("AZWARY_TRANSPORT", "carrier-pigeon")
	t.Setenv("AZWARY_LOG_LEVEL", "loud")
	_, err = config.Load()
	require.ErrorContains(t, err, "invalid transport mode")
	require.ErrorContains(t, err, "invalid log level")
}

func TestParseLevel(t *testing.T) {
	level, err := config.ParseLevel("WARN")
	require.NoError(t, err)
	require.Equal(t, slog.LevelWarn, level)

	level, err = config.ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, level)
}
