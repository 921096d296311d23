package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutPath(t *testing.T) {
	t.Setenv("TERRAIN_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 1025, cfg.Render.MaxSize)
	assert.Equal(t, 200, cfg.Render.DefaultNoiseSz)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain.yaml")
	yml := `
render:
  workers: 4
  timeout: 5s
cache:
  backend: redis
  redis_addr: localhost:6379
eventbus:
  backend: nats
  url: nats://127.0.0.1:4222
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Render.Workers)
	assert.Equal(t, 5*time.Second, cfg.Render.Timeout)
	assert.Equal(t, 1025, cfg.Render.MaxSize, "незаданные поля сохраняют дефолты")
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "TERRAIN", cfg.EventBus.Stream)
}

func TestLoad_FromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  rest_port: 9000\n"), 0644))
	t.Setenv("TERRAIN_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.GetRESTPort())
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  backend: redis\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err, "redis без адреса")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGetRESTPort_Fallbacks(t *testing.T) {
	t.Setenv("TERRAIN_REST_PORT", "")
	s := ServerConfig{}
	assert.Equal(t, 8088, s.GetRESTPort())

	t.Setenv("TERRAIN_REST_PORT", "7070")
	assert.Equal(t, 7070, s.GetRESTPort())

	s.RESTPort = 6060
	assert.Equal(t, 6060, s.GetRESTPort())
}

func TestLoad_SampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "terrain.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8088, cfg.Server.RESTPort)
	assert.Equal(t, 30*time.Second, cfg.Render.Timeout)
	assert.Equal(t, "memory", cfg.EventBus.Backend)
}
