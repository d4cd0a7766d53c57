package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseDirsIncludesLegacyFallback(t *testing.T) {
	cfg := &Config{}
	cfg.Server.DataDir = "/srv/docklite/sites"
	assert.Equal(t, []string{"/srv/docklite/sites", LegacyDataDir}, cfg.BaseDirs())

	cfg.Server.DataDir = LegacyDataDir
	assert.Equal(t, []string{LegacyDataDir}, cfg.BaseDirs(), "no duplicate when configured dir is the legacy dir")
}

func TestEnsureSessionSecretGeneratesAndPersists(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{}
	cfg.Server.DataDir = dir

	require.NoError(t, cfg.EnsureSessionSecret())
	first := cfg.Auth.SessionSecret
	assert.Len(t, first, 64)

	raw, err := os.ReadFile(filepath.Join(dir, ".session_secret"))
	require.NoError(t, err)
	assert.Equal(t, first, string(raw))

	// A second process load reuses the persisted secret.
	other := &Config{}
	other.Server.DataDir = dir
	require.NoError(t, other.EnsureSessionSecret())
	assert.Equal(t, first, other.Auth.SessionSecret)
}

func TestEnsureSessionSecretRespectsConfiguredValue(t *testing.T) {
	cfg := &Config{}
	cfg.Server.DataDir = t.TempDir()
	cfg.Auth.SessionSecret = "configured"

	require.NoError(t, cfg.EnsureSessionSecret())
	assert.Equal(t, "configured", cfg.Auth.SessionSecret)
	assert.NoFileExists(t, filepath.Join(cfg.Server.DataDir, ".session_secret"))
}
