package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete o2fsck configuration.
//
// This structure captures every configurable aspect of a check run:
//   - Logging configuration
//   - Check behaviour (fix mode, write-back, geometry expectations)
//   - Block device selection and configuration (device-specific)
//   - Scan state store selection and configuration (store-specific)
//   - Metrics export
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (O2FSCK_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Device and State follow the same pattern: a Type selector plus a
// type-specific options map that the matching factory decodes.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Check controls how problems are answered and whether repairs reach the device
	Check CheckConfig `mapstructure:"check" yaml:"check"`

	// Device specifies the block device holding the filesystem
	Device DeviceConfig `mapstructure:"device" yaml:"device"`

	// State specifies where the scan state (bitmaps, parents, directory blocks) lives
	State StateConfig `mapstructure:"state" yaml:"state"`

	// Metrics controls Prometheus metrics export
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// CheckConfig controls the directory pass.
type CheckConfig struct {
	// Mode selects how fix questions are answered
	// Valid values: interactive, yes, no, preen
	Mode string `mapstructure:"mode" yaml:"mode" validate:"required,oneof=interactive yes no preen"`

	// WriteChanges writes repaired directory blocks back to the device
	WriteChanges bool `mapstructure:"write_changes" yaml:"write_changes"`

	// RootInode is the expected root directory inode (0 = use recorded geometry)
	RootInode uint64 `mapstructure:"root_inode" yaml:"root_inode"`

	// BlockSize is the expected filesystem block size (0 = use recorded geometry)
	BlockSize uint32 `mapstructure:"block_size" yaml:"block_size" validate:"omitempty,min=512,max=4096,pow2"`
}

// DeviceConfig specifies block device configuration.
//
// The Type field determines which device implementation is used.
// Only the corresponding type-specific configuration section is used.
type DeviceConfig struct {
	// Type specifies which device implementation to use
	// Valid values: filesystem, memory, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=filesystem memory s3"`

	// Filesystem contains options for a local image file or block device node
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem"`

	// Memory contains options for an in-memory copy of an image
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`

	// S3 contains options for an image stored as an S3 object
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`

	// MaxReadsPerSecond paces block I/O (0 = unlimited)
	MaxReadsPerSecond uint `mapstructure:"max_reads_per_second" yaml:"max_reads_per_second"`

	// Burst is the number of operations allowed above the steady rate
	// (0 = same as MaxReadsPerSecond)
	Burst uint `mapstructure:"burst" yaml:"burst"`
}

// StateConfig specifies the scan state store configuration.
type StateConfig struct {
	// Type specifies which state store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns metrics collection on
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port serves /metrics over HTTP while a check runs (0 = no HTTP server)
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`

	// Textfile writes the final metrics in text format to this path
	// (node_exporter textfile collector)
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (O2FSCK_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// envKeys are bound explicitly so environment overrides work without a
// config file declaring the key first.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"check.mode",
	"check.write_changes",
	"check.root_inode",
	"check.block_size",
	"device.type",
	"device.max_reads_per_second",
	"device.burst",
	"state.type",
	"metrics.enabled",
	"metrics.port",
	"metrics.textfile",
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: O2FSCK_CHECK_MODE=yes
	v.SetEnvPrefix("O2FSCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// $XDG_CONFIG_HOME/o2fsck/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "o2fsck")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "o2fsck")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
