// Command generate-schema writes the JSON schema of the o2fsck config file.
//
// Usage: generate-schema [output.json | -]
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/config"
)

func main() {
	outputFile := "config.schema.json"
	if len(os.Args) > 1 {
		outputFile = os.Args[1]
	}

	data, err := generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}

	if outputFile == "-" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing schema file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("JSON schema written to %s\n", outputFile)
}

func generate() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
		FieldNameTag:              "mapstructure",
	}

	schema := reflector.Reflect(&config.Config{})
	schema.ID = "https://github.com/Byte-Jerry/ocfs2-tools/config.schema.json"
	schema.Title = "o2fsck Configuration"
	schema.Description = "Configuration for the o2fsck directory checker"

	example, err := defaultsDocument()
	if err != nil {
		return nil, err
	}
	schema.Examples = []any{example}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return append(data, '\n'), nil
}

// defaultsDocument renders the default config keyed the way the file is.
func defaultsDocument() (map[string]any, error) {
	raw, err := yaml.Marshal(config.GetDefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal defaults: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to reload defaults: %w", err)
	}
	return doc, nil
}
