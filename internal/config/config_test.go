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

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "candidates", cfg.Store.Collection)
	assert.Equal(t, 6, cfg.Interview.QuestionCount)
	assert.Equal(t, time.Second, cfg.Interview.Tick)
	assert.Equal(t, []string{"React", "Node.js"}, cfg.Interview.Stack)
	assert.Equal(t, "http", cfg.Backend.Driver)
	assert.Equal(t, "0.0.0.0:5050", cfg.Server.Addr())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
store:
  driver: redis
interview:
  tick: 250ms
worker:
  size: 4
redis:
  pool_size: 8
  read_timeout: 2s
db:
  conn_max_idle_time: 90s
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REDIS_ADDRESS", "cache:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Interview.Tick)
	assert.Equal(t, 4, cfg.Worker.Size)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "cache:6379", cfg.Redis.Address)
	assert.Equal(t, 8, cfg.Redis.PoolSize)
	assert.Equal(t, 2*time.Second, cfg.Redis.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.Redis.DialTimeout)
	assert.Equal(t, 90*time.Second, cfg.DB.ConnMaxIdleTime)
	assert.Equal(t, time.Hour, cfg.DB.ConnMaxLifeTime)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	bad := *cfg
	bad.Store.Driver = "etcd"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Backend.Driver = "gemini"
	assert.Error(t, bad.Validate())

	bad.Gemini.APIKey = "key"
	assert.NoError(t, bad.Validate())

	bad = *cfg
	bad.Interview.QuestionCount = 0
	assert.Error(t, bad.Validate())
}
