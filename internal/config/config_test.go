package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tarslinks/linkhive/internal/config"
)

func TestDefaultIsUnconfiguredDatabase(t *testing.T) {
	cfg := config.Default()
	_, ok := cfg.Database.Resolved()
	require.False(t, ok)
	require.Equal(t, 3600, cfg.Cache.TTLSeconds)
	require.Equal(t, 8000, cfg.Server.Port)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "linkhive.toml")
	contents := `
[database]
path = "./data/linkhive.db"

[server]
port = 9090
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	resolved, ok := cfg.Database.Resolved()
	require.True(t, ok)
	require.Equal(t, "./data/linkhive.db", resolved)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestDatabaseURLTakesPriorityOverPath(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Path = "./data/linkhive.db"
	cfg.Database.URL = "file:linkhive.db?cache=shared"

	resolved, ok := cfg.Database.Resolved()
	require.True(t, ok)
	require.Equal(t, "file:linkhive.db?cache=shared", resolved)
}

func TestEnvOverrideWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "linkhive.toml")
	require.NoError(t, os.WriteFile(path, []byte(`[server]
port = 9090
`), 0o644))

	t.Setenv("LINKHIVE_SERVER_PORT", "7777")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 7777, cfg.Server.Port)
}

func TestApplyFlagOverridesWinsOverEverything(t *testing.T) {
	cfg := config.Default()
	config.ApplyFlagOverrides(cfg, "0.0.0.0", 1234)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 1234, cfg.Server.Port)
}
