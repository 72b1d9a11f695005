package config

import (
	"path/filepath"
	"testing"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default log output 'stderr', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_Check(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Check.Mode != "interactive" {
		t.Errorf("Expected default mode 'interactive', got %q", cfg.Check.Mode)
	}

	cfg = &Config{Check: CheckConfig{Mode: "PREEN"}}
	ApplyDefaults(cfg)
	if cfg.Check.Mode != "preen" {
		t.Errorf("Expected mode normalized to 'preen', got %q", cfg.Check.Mode)
	}
}

func TestApplyDefaults_Device(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Device.Type != "filesystem" {
		t.Errorf("Expected default device type 'filesystem', got %q", cfg.Device.Type)
	}
	if cfg.Device.Filesystem == nil || cfg.Device.Memory == nil || cfg.Device.S3 == nil {
		t.Fatal("Expected device option maps to be initialized")
	}
	if cfg.Device.MaxReadsPerSecond != 0 {
		t.Errorf("Expected unlimited device I/O by default, got %d", cfg.Device.MaxReadsPerSecond)
	}
}

func TestApplyDefaults_State(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataDir)

	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.State.Type != "badger" {
		t.Errorf("Expected default state type 'badger', got %q", cfg.State.Type)
	}
	want := filepath.Join(dataDir, "o2fsck", "state")
	if got := cfg.State.Badger["db_path"]; got != want {
		t.Errorf("Expected default db_path %q, got %v", want, got)
	}
	if cfg.State.Memory == nil {
		t.Fatal("Expected Memory map to be initialized")
	}
}

func TestApplyDefaults_Metrics(t *testing.T) {
	tests := []struct {
		name     string
		cfg      MetricsConfig
		wantPort int
	}{
		{"disabled", MetricsConfig{}, 0},
		{"enabled without outputs", MetricsConfig{Enabled: true}, 9090},
		{"enabled with textfile", MetricsConfig{Enabled: true, Textfile: "/tmp/o2fsck.prom"}, 0},
		{"explicit port", MetricsConfig{Enabled: true, Port: 9100}, 9100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Metrics: tt.cfg}
			ApplyDefaults(cfg)
			if cfg.Metrics.Port != tt.wantPort {
				t.Errorf("Expected port %d, got %d", tt.wantPort, cfg.Metrics.Port)
			}
		})
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "DEBUG",
			Format: "json",
			Output: "/var/log/o2fsck.log",
		},
		Check: CheckConfig{
			Mode:         "yes",
			WriteChanges: true,
			RootInode:    129,
		},
		Device: DeviceConfig{
			Type: "s3",
			S3: map[string]any{
				"bucket": "images",
			},
			MaxReadsPerSecond: 100,
			Burst:             10,
		},
		State: StateConfig{
			Type: "badger",
			Badger: map[string]any{
				"db_path": "/srv/o2fsck",
			},
		},
	}

	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" || cfg.Logging.Format != "json" || cfg.Logging.Output != "/var/log/o2fsck.log" {
		t.Errorf("Logging values were overwritten: %+v", cfg.Logging)
	}
	if cfg.Check.Mode != "yes" || !cfg.Check.WriteChanges || cfg.Check.RootInode != 129 {
		t.Errorf("Check values were overwritten: %+v", cfg.Check)
	}
	if cfg.Device.Type != "s3" || cfg.Device.S3["bucket"] != "images" {
		t.Errorf("Device values were overwritten: %+v", cfg.Device)
	}
	if cfg.Device.MaxReadsPerSecond != 100 || cfg.Device.Burst != 10 {
		t.Errorf("Device limits were overwritten: %+v", cfg.Device)
	}
	if cfg.State.Badger["db_path"] != "/srv/o2fsck" {
		t.Errorf("Expected explicit db_path to be kept, got %v", cfg.State.Badger["db_path"])
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}

func TestGetDefaultConfig_HasRequiredFields(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level == "" {
		t.Error("Default config missing logging level")
	}
	if cfg.Check.Mode == "" {
		t.Error("Default config missing check mode")
	}
	if cfg.Device.Type == "" {
		t.Error("Default config missing device type")
	}
	if cfg.Device.Filesystem["path"] == nil {
		t.Error("Default config missing device path")
	}
	if cfg.State.Type == "" {
		t.Error("Default config missing state type")
	}
}
