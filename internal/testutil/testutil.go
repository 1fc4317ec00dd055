// Package testutil provides shared test helpers for building world trees.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteWorldFile writes content to <worldsDir>/<world>/region/<name>,
// creating directories as needed, and returns the absolute path.
func WriteWorldFile(t *testing.T, worldsDir, world, name, content string) string {
	t.Helper()
	path := filepath.Join(worldsDir, world, "region", name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ReadFileString reads a file and fails the test on error.
func ReadFileString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
