package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/toolgate"
	"github.com/aretw0/toolgate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "toolgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.TransportStdio, cfg.Server.Transport)
	assert.Equal(t, toolgate.DefaultLimits(), cfg.Limits.ToolgateLimits())

	cfg, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err, "a missing file means defaults")
	assert.Equal(t, "toolgate", cfg.Server.Name)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
server:
  name: ops
  transport: sse
  port: 9000
  http_port: 9100
log:
  level: debug
  format: json
limits:
  max_active: 4
  max_queue: 2
  max_payload_bytes: 2048
tools:
  tasks:
    max_active: 1
    max_queue: 0
    max_payload_bytes: 512
redis:
  addr: localhost:6379
  lock_ttl: 5s
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ops", cfg.Server.Name)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 9100, cfg.Server.HTTPPort)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, toolgate.Limits{MaxActive: 4, MaxQueue: 2, MaxPayloadBytes: 2048}, cfg.Limits.ToolgateLimits())
	assert.Equal(t, 1, cfg.Tools["tasks"].MaxActive)
	assert.Equal(t, 5*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, "toolgate:", cfg.Redis.Prefix, "unset keys keep their defaults")
	assert.Len(t, cfg.ServerOptions(), 4)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(config.EnvMaxActive, "16")
	t.Setenv(config.EnvMaxQueue, "0")
	t.Setenv(config.EnvMaxPayloadBytes, "100")
	t.Setenv(config.EnvLogLevel, "warn")
	t.Setenv(config.EnvRedisAddr, "redis:6379")

	cfg, err := config.Load(writeFile(t, "limits:\n  max_active: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Limits.MaxActive)
	assert.Equal(t, 0, cfg.Limits.MaxQueue)
	assert.Equal(t, 100, cfg.Limits.MaxPayloadBytes)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("bad env", func(t *testing.T) {
		t.Setenv(config.EnvMaxActive, "many")
		_, err := config.Load("")
		assert.ErrorContains(t, err, config.EnvMaxActive)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := config.Load(writeFile(t, "server: [unclosed"))
		assert.ErrorContains(t, err, "failed to parse")
	})

	t.Run("bad values", func(t *testing.T) {
		_, err := config.Load(writeFile(t, `
server:
  transport: carrier-pigeon
log:
  level: loud
limits:
  max_active: 0
tools:
  tasks:
    max_active: 1
    max_queue: -1
`))
		require.Error(t, err)
		assert.ErrorContains(t, err, "unknown transport")
		assert.ErrorContains(t, err, "unknown log level")
		assert.ErrorContains(t, err, "limits.max_active")
		assert.ErrorContains(t, err, "tools.tasks.max_queue")
	})
}
