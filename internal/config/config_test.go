package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "en", cfg.Server.DefaultLanguage)
	assert.Equal(t, 2*time.Hour, cfg.Session.MaxAge)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9999"
store:
  in_memory: true
seed:
  path: seed.cue
  watch: true
session:
  idle_timeout: 5m
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.True(t, cfg.Store.InMemory)
	assert.True(t, cfg.Seed.Watch)
	assert.Equal(t, 5*time.Minute, cfg.Session.IdleTimeout)
	// Untouched keys keep their defaults.
	assert.Equal(t, "en", cfg.Server.DefaultLanguage)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Path = ""
	assert.Error(t, cfg.Validate())

	cfg.Store.InMemory = true
	assert.NoError(t, cfg.Validate())

	cfg.Session.MaxAge = 0
	assert.Error(t, cfg.Validate())
}
