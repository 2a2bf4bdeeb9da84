package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvPolicy, "")
	t.Setenv(EnvVerbose, "")
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lineage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
policy: internal
verbose: true
capacity: 128
failure_mode: tree
capture_origin: false
output: discard
bridge:
  clear_on_read: true
external:
  queue_size: 16
  workers: 2
  sinks:
    - type: jsonl
      path: /tmp/lineage.jsonl
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "internal", cfg.Policy)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 128, cfg.Capacity)
	assert.Equal(t, "tree", cfg.FailureMode)
	assert.False(t, cfg.CaptureOrigin)
	assert.Equal(t, "discard", cfg.Output)
	assert.True(t, cfg.Bridge.ClearOnRead)
	assert.Equal(t, 16, cfg.External.QueueSize)
	assert.Equal(t, 2, cfg.External.Workers)
	assert.True(t, cfg.External.DropOnFull, "unset keys keep their defaults")
	require.Len(t, cfg.External.Sinks, 1)
	assert.Equal(t, SinkConfig{Type: SinkJSONL, Path: "/tmp/lineage.jsonl"}, cfg.External.Sinks[0])
}

func TestLoad_UnknownField(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "policy: internal\npolcy: none\n")

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "polcy")
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "policy: dual\nverbose: false\n")
	t.Setenv(EnvPolicy, " None ")
	t.Setenv(EnvVerbose, "true")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Policy)
	assert.True(t, cfg.Verbose)
}

func TestLoad_InvalidVerboseEnv(t *testing.T) {
	t.Setenv(EnvPolicy, "")
	t.Setenv(EnvVerbose, "loud")

	_, err := Load("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvVerbose)
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
