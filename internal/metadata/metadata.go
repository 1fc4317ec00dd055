// Package metadata persists the backup engine's durable state: the
// path→fingerprint map and the per-world active archive records. The whole
// document is rewritten on every save; there is never an incremental diff.
package metadata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Record describes a world's currently-active archive container.
type Record struct {
	File    string `yaml:"file"`
	Created int64  `yaml:"created"` // epoch milliseconds
}

// Document is the full persisted state.
type Document struct {
	Fingerprints map[string]string `yaml:"fingerprints"`
	Archives     map[string]Record `yaml:"archives"`
}

// NewDocument returns an empty document with initialized maps.
func NewDocument() *Document {
	return &Document{
		Fingerprints: make(map[string]string),
		Archives:     make(map[string]Record),
	}
}

// Store reads and writes the metadata document at a fixed path.
type Store struct {
	path string
}

// NewStore creates a store for the document at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the on-disk location of the document.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document from disk. A missing file is not an error and
// yields an empty document.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("metadata: read %s: %w", s.path, err)
	}

	doc := NewDocument()
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("metadata: parse %s: %w", s.path, err)
	}
	if doc.Fingerprints == nil {
		doc.Fingerprints = make(map[string]string)
	}
	if doc.Archives == nil {
		doc.Archives = make(map[string]Record)
	}
	return doc, nil
}

// Save atomically rewrites the document: tmp file → fsync → rename.
// The previously persisted state is entirely superseded.
func (s *Store) Save(doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("metadata: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("metadata: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".saveward-meta-*")
	if err != nil {
		return fmt.Errorf("metadata: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("metadata: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("metadata: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("metadata: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("metadata: rename: %w", err)
	}
	success = true
	return nil
}
