package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/FrogCounters/boatboat/internal/net/proto"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	if err := writeSchema(outPath, proto.Schema()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// writeSchema encodes the protocol schema next to outPath and renames it into
// place, so readers never observe a partial file.
func writeSchema(outPath string, schema *jsonschema.Schema) error {
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("protoschema: prepare %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".protocol-*.json")
	if err != nil {
		return fmt.Errorf("protoschema: stage schema: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(schema); err != nil {
		tmp.Close()
		return fmt.Errorf("protoschema: encode schema: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("protoschema: flush schema: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("protoschema: chmod schema: %w", err)
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return fmt.Errorf("protoschema: publish %s: %w", outPath, err)
	}
	return nil
}
