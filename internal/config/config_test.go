package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate_ResolvesAndDefaults(t *testing.T) {
	tmp := t.TempDir()
	cfg := &Config{
		PrimaryDir: filepath.Join(tmp, "p", "..", "p"),
		MirrorDir:  filepath.Join(tmp, "m"),
		Filter:     ".snip",
	}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join(tmp, "p"), cfg.PrimaryDir)
	assert.Equal(t, DefaultLatency, cfg.Latency)
	assert.Equal(t, DefaultStateDir, cfg.StateDir)
	assert.Equal(t, "notify", string(cfg.WatchBackend()))
	assert.Equal(t, filepath.Join(DefaultStateDir, "journal.db"), cfg.JournalPath())
	assert.Equal(t, filepath.Join(DefaultStateDir, "logs", "snipsync.log"), cfg.LogFilePath())
}

func TestConfig_Validate_ExpandsTilde(t *testing.T) {
	cfg := Default()
	cfg.MirrorDir = "~/snippets-backup"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join(home, "snippets-backup"), cfg.MirrorDir)
}

func TestConfig_Validate_ErrorsOnInvalidInputs(t *testing.T) {
	tmp := t.TempDir()
	valid := func() *Config {
		cfg := Default()
		cfg.PrimaryDir = filepath.Join(tmp, "p")
		cfg.MirrorDir = filepath.Join(tmp, "m")
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{"empty primary", func(c *Config) { c.PrimaryDir = "" }, "primary dir"},
		{"empty mirror", func(c *Config) { c.MirrorDir = "" }, "mirror dir"},
		{"same dirs", func(c *Config) { c.MirrorDir = c.PrimaryDir }, "both"},
		{"negative latency", func(c *Config) { c.Latency = -time.Second }, "latency must not be negative"},
		{"bad backend", func(c *Config) { c.Backend = "kqueue" }, "backend"},
		{"bad glob", func(c *Config) { c.Filter = "[*.snip" }, "filter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestConfig_SaveAndLoad_Roundtrip(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "nested", "config.yaml")

	cfg := Default()
	cfg.PrimaryDir = filepath.Join(tmp, "p")
	cfg.MirrorDir = filepath.Join(tmp, "m")
	cfg.Ignore = []string{"*.bak"}
	cfg.Latency = 750 * time.Millisecond
	cfg.Backend = "fsnotify"
	cfg.SeedMirror = true
	cfg.Verbose = true // should not persist

	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "latency: 750ms")
	assert.NotContains(t, string(data), "verbose")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, loaded.Path)
	assert.Equal(t, cfg.PrimaryDir, loaded.PrimaryDir)
	assert.Equal(t, cfg.MirrorDir, loaded.MirrorDir)
	assert.Equal(t, []string{"*.bak"}, loaded.Ignore)
	assert.Equal(t, 750*time.Millisecond, loaded.Latency)
	assert.Equal(t, "fsnotify", loaded.Backend)
	assert.True(t, loaded.SeedMirror)
	assert.True(t, loaded.Journal)
	assert.False(t, loaded.Verbose)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mirror_dir: /tmp/backup\njournal: false\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/backup", cfg.MirrorDir)
	assert.Equal(t, DefaultPrimaryDir, cfg.PrimaryDir)
	assert.Equal(t, DefaultFilter, cfg.Filter)
	assert.False(t, cfg.Journal)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("latency: [nope"), 0o644))
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
