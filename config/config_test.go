package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robgrahamau/datis-go/config"
)

func withConfigHome(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", dir)
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	withConfigHome(t, t.TempDir())
	got := config.Load()
	assert.Equal(t, config.Default(), got)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	withConfigHome(t, t.TempDir())
	cfg := config.Settings{
		config.KeyGCloudAccessKey: "abc123",
		config.KeySRSPort:         "5002",
	}
	require.NoError(t, config.Save(cfg))

	got := config.Load()
	assert.Equal(t, cfg, got)
}

func TestSaveThenLoadYAMLRoundTrips(t *testing.T) {
	withConfigHome(t, t.TempDir())
	cfg := config.Settings{
		config.KeyDefaultVoice:   "en-US-Standard-E",
		config.KeyExecutablePath: "/opt/datis/datis",
	}
	require.NoError(t, config.SaveYAML(cfg))

	got := config.LoadYAML()
	assert.Equal(t, cfg, got)
}

func TestLoadCorruptFileReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	withConfigHome(t, dir)

	path, err := config.Path()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	got := config.Load()
	assert.Equal(t, config.Default(), got)
}
