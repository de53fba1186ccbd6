package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viktor111/keyz/internal/config"
)

func TestLoadDefaultsWhenNoFilePresent(t *testing.T) {
	dir := t.TempDir()
	restore := chdir(t, dir)
	defer restore()

	cfg, source, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "defaults", source.Kind)
	assert.Equal(t, 7667, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 512, cfg.Store.CompressionThreshold)
	assert.EqualValues(t, 4*1024*1024, cfg.Protocol.MaxMessageBytes)
}

func TestLoadExplicitPathOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
host = "0.0.0.0"
port = 7777

[store]
compression_threshold = 2048

[protocol]
idle_timeout_secs = 5
`), 0o644))

	cfg, source, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "explicit", source.Kind)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, 2048, cfg.Store.CompressionThreshold)
	assert.Equal(t, 250, cfg.Store.CleanupIntervalMs) // untouched default
	assert.Equal(t, 5, cfg.Protocol.IdleTimeoutSecs)
}

func TestLoadRejectsInvalidProtocolValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[protocol]\nmax_message_bytes = 0\n"), 0o644))

	_, _, err := config.Load(path)
	require.Error(t, err)
	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "protocol.max_message_bytes", verr.Field)
}

func TestLoadRejectsZeroDefaultTTL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[store]\ndefault_ttl_secs = 0\n"), 0o644))

	_, _, err := config.Load(path)
	require.Error(t, err)
	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "store.default_ttl_secs", verr.Field)
}

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(prev) }
}
