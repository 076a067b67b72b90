package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testDataset = filepath.Join("..", "..", "internal", "dataset", "testdata", "dataset.json")

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestCheck(t *testing.T) {
	path := writeConfig(t, "dataset:\n  path: "+testDataset+"\n")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "--check"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !strings.Contains(out.String(), "factorio dataset with 5 recipes") {
		t.Errorf("Expected dataset summary, got %q", out.String())
	}
}

func TestPrepareErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad effect floor", "adjust:\n  effect_floor: \"2\"\ndataset:\n  path: " + testDataset + "\n"},
		{"missing dataset", "dataset:\n  path: " + filepath.Join("nope", "dataset.json") + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := prepare(writeConfig(t, tt.body)); err == nil {
				t.Error("Expected error")
			}
		})
	}

	if _, _, err := prepare(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config")
	}
}
