package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FrogCounters/boatboat/internal/net/proto"
)

func TestWriteSchema(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "protocol.schema.json")
	if err := writeSchema(out, proto.Schema()); err != nil {
		t.Fatalf("writeSchema failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read schema: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	if decoded["title"] != "Boatboat Wire Protocol" {
		t.Fatalf("unexpected title: %v", decoded["title"])
	}
	entries, err := os.ReadDir(filepath.Dir(out))
	if err != nil {
		t.Fatalf("failed to list output directory: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the schema file, got %d entries", len(entries))
	}
}

func TestWriteSchemaReportsBlockedDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create blocker file: %v", err)
	}

	err := writeSchema(filepath.Join(blocker, "protocol.schema.json"), proto.Schema())
	if err == nil {
		t.Fatalf("expected an error when the parent is a file")
	}
	if !strings.Contains(err.Error(), "protoschema: prepare") {
		t.Fatalf("unexpected error: %v", err)
	}
}
