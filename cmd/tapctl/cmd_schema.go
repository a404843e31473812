package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/beepcard/beep-tap/internal/domain/tap"
	"github.com/beepcard/beep-tap/internal/infrastructure/relay"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [name]",
	Short: "Print JSON schemas of the relay protocol and agent models",
	Long: `Generate JSON Schema documents for the relay wire frames and the agent's
status and history models. Without a name every schema is written to --output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSchema,
}

var schemaTypes = map[string]any{
	"envelope":     relay.Envelope{},
	"room-message": relay.RoomMessage{},
	"status":       tap.Status{},
	"attempt":      tap.Attempt{},
}

func init() {
	schemaCmd.Flags().StringP("output", "o", "schema", "Output directory when no name is given")
	schemaCmd.Flags().String("format", "json", "Output format: json, yaml")
}

func reflectSchema(name string) (*jsonschema.Schema, error) {
	typ, ok := schemaTypes[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q (known: %v)", name, schemaNames())
	}
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
	}
	schema := reflector.Reflect(typ)
	schema.Title = name
	return schema, nil
}

func schemaNames() []string {
	names := make([]string, 0, len(schemaTypes))
	for name := range schemaTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func encodeSchema(schema *jsonschema.Schema, format string) ([]byte, error) {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	switch format {
	case "json":
		return append(data, '\n'), nil
	case "yaml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("convert schema: %w", err)
		}
		return yaml.Marshal(doc)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func runSchema(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	if len(args) == 1 {
		schema, err := reflectSchema(args[0])
		if err != nil {
			return err
		}
		data, err := encodeSchema(schema, format)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	outputDir, _ := cmd.Flags().GetString("output")
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, name := range schemaNames() {
		schema, err := reflectSchema(name)
		if err != nil {
			return err
		}
		data, err := encodeSchema(schema, format)
		if err != nil {
			return err
		}
		path := filepath.Join(outputDir, fmt.Sprintf("%s.schema.%s", name, format))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Generated %s\n", path)
	}
	return nil
}
