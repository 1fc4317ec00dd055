package metadata

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileYieldsEmptyDocument(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "file_metadata.yml"))
	doc, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Fingerprints) != 0 || len(doc.Archives) != 0 {
		t.Errorf("expected empty document, got %+v", doc)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "file_metadata.yml"))

	doc := NewDocument()
	doc.Fingerprints["/worlds/world1/region/r.0.0.mca"] = "abc123"
	doc.Archives["world1"] = Record{File: "backup_1700000000000.zip", Created: 1700000000000}

	if err := s.Save(doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Fingerprints["/worlds/world1/region/r.0.0.mca"] != "abc123" {
		t.Errorf("fingerprint not round-tripped: %+v", got.Fingerprints)
	}
	rec := got.Archives["world1"]
	if rec.File != "backup_1700000000000.zip" || rec.Created != 1700000000000 {
		t.Errorf("archive record = %+v", rec)
	}
}

func TestSave_FullyRewritesPriorState(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "file_metadata.yml"))

	first := NewDocument()
	first.Fingerprints["/a"] = "1"
	first.Fingerprints["/b"] = "2"
	if err := s.Save(first); err != nil {
		t.Fatalf("Save first: %v", err)
	}

	second := NewDocument()
	second.Fingerprints["/a"] = "3"
	if err := s.Save(second); err != nil {
		t.Fatalf("Save second: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Fingerprints["/a"] != "3" {
		t.Errorf("fingerprint /a = %q, want 3", got.Fingerprints["/a"])
	}
	if _, ok := got.Fingerprints["/b"]; ok {
		t.Error("stale entry /b survived a full rewrite")
	}
}

func TestSave_NoLeftoverTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "file_metadata.yml"))
	if err := s.Save(NewDocument()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, ".saveward-meta-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestSave_CreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "data", "file_metadata.yml"))
	if err := s.Save(NewDocument()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(s.Path()); err != nil {
		t.Errorf("document not written: %v", err)
	}
}
