package hostbridge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ConfigEnv names a configuration file to load when no path is given.
const ConfigEnv = "HOSTBRIDGE_CONFIG"

// DefaultConfigFile is the file name looked up in the working directory.
const DefaultConfigFile = "hostbridge.toml"

// Config represents the hostbridge.toml configuration file
type Config struct {
	Log      LogConfig      `toml:"log"`
	Registry RegistryConfig `toml:"registry"`
	HTTP     HTTPConfig     `toml:"http"`
	Display  DisplayConfig  `toml:"display"`
	Runtime  RuntimeConfig  `toml:"runtime"`
}

type LogConfig struct {
	// Console level: debug, info, error, or a positive verbosity
	Level string `toml:"level"`
	// Folder for the JSON diagnostics log; empty disables it
	DiagnosticsDir string `toml:"diagnostics_dir"`
}

type RegistryConfig struct {
	// Panic on callback protocol violations instead of only logging them
	Strict bool `toml:"strict"`
}

type HTTPConfig struct {
	UserAgent     string `toml:"user_agent"`
	MaxConcurrent int    `toml:"max_concurrent"`
	// Base directory for relative download targets
	FilesDir string `toml:"files_dir"`
	// Deliver completions on the home thread looper instead of the worker thread
	DeliverOnHomeThread bool `toml:"deliver_on_home_thread"`
}

type DisplayConfig struct {
	HighDPI bool `toml:"high_dpi"`
}

// RuntimeConfig names the hosting runtime library that registers foreign
// threads. An empty Library means threads need no registration.
type RuntimeConfig struct {
	Library      string `toml:"library"`
	Versions     []int  `toml:"versions"`
	AttachSymbol string `toml:"attach_symbol"`
	DetachSymbol string `toml:"detach_symbol"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level: "info",
		},
		HTTP: HTTPConfig{
			UserAgent:     "hostbridge/" + Version,
			MaxConcurrent: 8,
			FilesDir:      defaultFilesDir(),
		},
		Display: DisplayConfig{
			HighDPI: true,
		},
		Runtime: RuntimeConfig{
			AttachSymbol: "hostrt_thread_attach",
			DetachSymbol: "hostrt_thread_detach",
		},
	}
}

func defaultFilesDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "hostbridge", "files")
	}
	return filepath.Join(os.TempDir(), "hostbridge", "files")
}

// LoadConfig loads configuration from path. An empty path falls back to
// $HOSTBRIDGE_CONFIG, then to hostbridge.toml in the working directory.
// If the file doesn't exist, returns default config
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return config, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// Apply defaults for empty values
	if config.HTTP.MaxConcurrent <= 0 {
		config.HTTP.MaxConcurrent = 1
	}
	if config.HTTP.FilesDir == "" {
		config.HTTP.FilesDir = defaultFilesDir()
	}

	return config, nil
}

// SaveConfig saves the configuration to path
func SaveConfig(path string, config Config) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
