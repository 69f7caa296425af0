package hostbridge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hostbridge.toml")

	cfg := DefaultConfig()
	cfg.Registry.Strict = true
	cfg.HTTP.MaxConcurrent = 3
	cfg.HTTP.FilesDir = "/data/files"
	cfg.Runtime.Library = "hostrt"
	cfg.Runtime.Versions = []int{2, 1}
	require.NoError(t, SaveConfig(path, cfg))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}

func TestLoadConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hostbridge.toml")
	data := `
[registry]
strict = true

[http]
max_concurrent = 0
deliver_on_home_thread = true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.True(t, cfg.Registry.Strict)
	require.True(t, cfg.HTTP.DeliverOnHomeThread)
	require.Equal(t, 1, cfg.HTTP.MaxConcurrent)
	require.Equal(t, DefaultConfig().HTTP.UserAgent, cfg.HTTP.UserAgent)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\n"), 0o644))
	t.Setenv(ConfigEnv, path)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[http\n"), 0o644))

	_, err := LoadConfig(path)
	require.ErrorContains(t, err, "failed to parse")
}
