package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Device and store option defaults are handled by their factories
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyCheckDefaults(&cfg.Check)
	applyDeviceDefaults(&cfg.Device)
	applyStateDefaults(&cfg.State)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyCheckDefaults(cfg *CheckConfig) {
	if cfg.Mode == "" {
		cfg.Mode = "interactive"
	}
	cfg.Mode = strings.ToLower(cfg.Mode)
}

// applyDeviceDefaults sets device defaults.
func applyDeviceDefaults(cfg *DeviceConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
}

// applyStateDefaults sets state store defaults.
func applyStateDefaults(cfg *StateConfig) {
	if cfg.Type == "" {
		cfg.Type = "badger"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = filepath.Join(getDataDir(), "state")
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 && cfg.Textfile == "" {
		cfg.Port = 9090
	}
}

// getDataDir returns the directory holding persistent scan state.
//
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share, or falls back to the
// current directory.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "o2fsck")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".local", "share", "o2fsck")
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Device: DeviceConfig{
			Filesystem: map[string]any{
				"path": "/dev/sdb1",
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
