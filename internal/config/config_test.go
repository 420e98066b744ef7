package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/physutils/internal/dispatch"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "physutils.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, "physio", cfg.Transform.Mode)
	assert.Equal(t, []string{"peakdet", "phys2denoise"}, cfg.Replay.Collaborators)
}

func TestDefault_CollaboratorsNotShared(t *testing.T) {
	cfg := Default()
	cfg.Replay.Collaborators[0] = "changed"
	assert.Equal(t, "peakdet", Default().Replay.Collaborators[0])
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
catalog: catalog.db
transform:
  mode: bids
  fs: 250
  bids_parameters:
    subject: "01"
    task: rest
  bids_channel: cardiac
replay:
  verbose: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.Format, "unset keys keep their default")
	assert.Equal(t, "catalog.db", cfg.Catalog)
	assert.True(t, cfg.Replay.Verbose)
	assert.Equal(t, []string{"peakdet", "phys2denoise"}, cfg.Replay.Collaborators)

	req, err := cfg.Request("ds")
	require.NoError(t, err)
	assert.Equal(t, dispatch.Request{
		InputFile:      "ds",
		Mode:           dispatch.ModeBIDS,
		FS:             250,
		BIDSParameters: map[string]string{"subject": "01", "task": "rest"},
		BIDSChannel:    "cardiac",
	}, req)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_EmptyFileIsDefault(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	_, err := Load(writeConfig(t, "log_levle: debug\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoadOrDefault_EmptyPath(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad format", func(c *Config) { c.Format = "xml" }, "format"},
		{"bad mode", func(c *Config) { c.Transform.Mode = "edf" }, "mode"},
		{"negative fs", func(c *Config) { c.Transform.FS = -1 }, "transform.fs"},
		{"blank collaborator", func(c *Config) { c.Replay.Collaborators = []string{" "} }, "replay.collaborators"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var ce *dispatch.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}
