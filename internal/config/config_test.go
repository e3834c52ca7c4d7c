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
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 50*time.Millisecond, cfg.Broadcast.Interval)
	assert.Equal(t, 50.0, cfg.World.HitRadius)
	assert.Equal(t, 10, cfg.World.HitDamage)
	assert.Equal(t, 100, cfg.World.InitialHealth)
	assert.Equal(t, 5*time.Second, cfg.World.ProjectileTTL)
	assert.Equal(t, 30*time.Second, cfg.Session.IdleTimeout)
	assert.Equal(t, "localhost:12201", cfg.Log.Graylog.Address)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
listen_addr: ":9000"
broadcast:
  interval: 100ms
world:
  hit_radius: 25
  max_crew: 6
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "boatboat.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 100*time.Millisecond, cfg.Broadcast.Interval)
	assert.Equal(t, 25.0, cfg.World.HitRadius)
	assert.Equal(t, 6, cfg.World.MaxCrew)
	assert.Equal(t, 10, cfg.World.HitDamage)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "boatboat.json"), []byte(`{"session":{"idle_timeout":"45s"}}`), 0o644))
	t.Setenv("BOATBOAT_SESSION_IDLE_TIMEOUT", "2m")
	t.Setenv("BOATBOAT_OBSERVABILITY_PPROF", "true")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Session.IdleTimeout)
	assert.True(t, cfg.Observability.Pprof)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BOATBOAT_WORLD_HIT_DAMAGE=25\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("BOATBOAT_WORLD_HIT_DAMAGE") })

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.World.HitDamage)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "boatboat.json"), []byte(`{"listen_addr":`), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Broadcast.Interval = 0
	cfg.World.MaxCrew = -1
	cfg.Log.Graylog.Enabled = true
	cfg.Log.Graylog.Address = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "broadcast.interval")
	assert.Contains(t, err.Error(), "world.max_crew")
	assert.Contains(t, err.Error(), "log.graylog.address")
}

func TestLoadRejectsInvalidOverride(t *testing.T) {
	t.Setenv("BOATBOAT_WORLD_HIT_RADIUS", "-5")
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrInvalid)
}
