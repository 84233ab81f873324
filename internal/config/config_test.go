package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reconcile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  max_retries: 9\n"), 0o644))

	t.Setenv("RECONCILE_MIN_WAIT_MS", "50")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9, cfg.Agent.MaxRetries)
	require.Equal(t, 50, cfg.Agent.MinWaitMs)
	require.Equal(t, 2.0, cfg.Agent.BackoffFactor)

	opts := cfg.AgentOptions()
	require.Equal(t, 9, opts.MaxRetries)
	require.Equal(t, 50, opts.MinWaitMs)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, 64, cfg.Planner.MaxDepth)
}
