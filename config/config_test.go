package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jlynch25/golang-ticketing/ticketing"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ticketing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendBadger, cfg.Store.Backend)
	assert.Equal(t, "./ticketsDB", cfg.Store.Path)
	assert.Equal(t, ticketing.VerifyByEventAuthority, cfg.VerifyPolicy())
	assert.Equal(t, 50, cfg.Metadata.VIPCount)
	assert.False(t, cfg.Notify.Enabled)
}

func TestLoadFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, `
store:
  backend: redis
  redis:
    addr: redis:6379
    db: 2
program:
  verify_policy: authority-or-owner
node:
  port: 4000
  bootstrap: [127.0.0.1:3000, 127.0.0.1:3001]
log:
  level: debug
  format: json
metadata:
  event_name: Concert
  vip_count: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.Equal(t, "ticketing", cfg.Store.Redis.Prefix)
	assert.Equal(t, ticketing.VerifyByAuthorityOrOwner, cfg.VerifyPolicy())
	assert.Equal(t, uint16(4000), cfg.Node.Port)
	assert.Equal(t, []string{"127.0.0.1:3000", "127.0.0.1:3001"}, cfg.Node.Bootstrap)
	assert.Equal(t, "Concert", cfg.Metadata.EventName)
	assert.Equal(t, 10, cfg.Metadata.VIPCount)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(writeConfig(t, "store:\n  engine: badger\n"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TICKETING_STORE_BACKEND", "memory")
	t.Setenv("TICKETING_NODE_PORT", "3100")
	t.Setenv("TICKETING_NODE_BOOTSTRAP", "a:1, b:2,")
	t.Setenv("TICKETING_NOTIFY_ENABLED", "true")
	t.Setenv("TICKETING_AMQP_URL", "amqp://broker:5672/")
	t.Setenv("TICKETING_VERIFY_POLICY", "ticket-owner")

	cfg, err := Load(writeConfig(t, "store:\n  backend: redis\n"))
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, uint16(3100), cfg.Node.Port)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Node.Bootstrap)
	assert.True(t, cfg.Notify.Enabled)
	assert.Equal(t, "amqp://broker:5672/", cfg.Notify.URL)
	assert.Equal(t, ticketing.VerifyByTicketOwner, cfg.VerifyPolicy())
}

func TestDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TICKETING_LOG_LEVEL=warn\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("TICKETING_LOG_LEVEL") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestBadEnvValue(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TICKETING_NODE_PORT", "70000")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "sqlite"
	cfg.Program.VerifyPolicy = "anyone"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.backend")
	assert.Contains(t, err.Error(), "program.verify_policy")
	assert.Contains(t, err.Error(), "log.format")
}

func TestLogApply(t *testing.T) {
	logger := logrus.New()
	require.NoError(t, LogConfig{Level: "debug", Format: "json"}.Apply(logger))
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	assert.Error(t, LogConfig{Level: "loud"}.Apply(logger))
}
