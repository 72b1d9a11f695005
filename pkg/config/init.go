package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `o2fsck Configuration File

Values can be overridden with O2FSCK_* environment variables,
for example O2FSCK_CHECK_MODE=preen or O2FSCK_LOGGING_LEVEL=DEBUG.`

// sectionComments documents each top-level section of the generated file.
var sectionComments = map[string]string{
	"logging": "Logging: level is DEBUG, INFO, WARN or ERROR; format is text or json;\noutput is stdout, stderr or a file path.",
	"check": "Directory check behaviour.\n" +
		"  mode: interactive (ask), yes (fix everything), no (report only), preen (safe defaults)\n" +
		"  write_changes: write repaired directory blocks back to the device\n" +
		"  root_inode / block_size: expected geometry, 0 trusts the imported scan state",
	"device": "Block device holding the filesystem.\n" +
		"  type: filesystem (path, read_only), memory (image or blocks), s3 (region, bucket, key,\n" +
		"  endpoint, access_key_id, secret_access_key, max_retries)\n" +
		"  max_reads_per_second / burst: pace block I/O, 0 is unlimited",
	"state": "Scan state written by 'o2fsck import' and read by 'o2fsck check'.\n" +
		"  type: memory (lost on exit) or badger (db_path, in_memory, sync_writes)",
	"metrics": "Prometheus metrics: port serves /metrics during a check,\ntextfile writes the final values for the node_exporter textfile collector.",
}

// InitConfig writes a commented default configuration to the default
// location and returns its path. An existing file is only replaced when
// force is true.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a commented default configuration to path,
// creating parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateYAMLWithComments renders cfg as YAML with a header and a comment
// above every top-level section.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var body yaml.Node
	if err := body.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	// Mapping nodes alternate key and value.
	for i := 0; i+1 < len(body.Content); i += 2 {
		key := body.Content[i]
		if comment, ok := sectionComments[key.Value]; ok {
			key.HeadComment = comment
		}
	}

	doc := &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: configHeader,
		Content:     []*yaml.Node{&body},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}

	return buf.String(), nil
}
