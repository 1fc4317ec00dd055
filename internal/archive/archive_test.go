package archive

import (
	"archive/zip"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// readEntries returns every (name, content) pair in archive order.
func readEntries(t *testing.T, container string) [][2]string {
	t.Helper()
	r, err := zip.OpenReader(container)
	if err != nil {
		t.Fatalf("open %s: %v", container, err)
	}
	defer r.Close()

	var out [][2]string
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		out = append(out, [2]string{f.Name, string(data)})
	}
	return out
}

func TestContainerName(t *testing.T) {
	created := time.UnixMilli(1700000000000)
	if got := ContainerName(created); got != "backup_1700000000000.zip" {
		t.Errorf("ContainerName = %q", got)
	}
}

func TestAppend_CreatesContainer(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "r.0.0.mca", "A")
	container := filepath.Join(dir, "backups", "backup_1.zip")

	err := Append(container, []Entry{{Name: "world1/region/r.0.0.mca", Source: src}})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	got := readEntries(t, container)
	if len(got) != 1 {
		t.Fatalf("entries = %d, want 1", len(got))
	}
	if got[0][0] != "world1/region/r.0.0.mca" || got[0][1] != "A" {
		t.Errorf("entry = %v", got[0])
	}
}

func TestAppend_PreservesExistingEntriesAndDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	container := filepath.Join(dir, "backup_1.zip")

	src := writeSource(t, dir, "r.0.0.mca", "A")
	if err := Append(container, []Entry{{Name: "world1/region/r.0.0.mca", Source: src}}); err != nil {
		t.Fatalf("first Append: %v", err)
	}

	// Same relative path archived again in a later cycle: both entries
	// must coexist, original first.
	if err := os.WriteFile(src, []byte("B"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Append(container, []Entry{{Name: "world1/region/r.0.0.mca", Source: src}}); err != nil {
		t.Fatalf("second Append: %v", err)
	}

	got := readEntries(t, container)
	if len(got) != 2 {
		t.Fatalf("entries = %d, want 2", len(got))
	}
	if got[0][1] != "A" || got[1][1] != "B" {
		t.Errorf("entry contents = %q, %q; want A then B", got[0][1], got[1][1])
	}
	if got[0][0] != got[1][0] {
		t.Errorf("duplicate names expected, got %q and %q", got[0][0], got[1][0])
	}
}

func TestAppend_FailureLeavesPriorGenerationIntact(t *testing.T) {
	dir := t.TempDir()
	container := filepath.Join(dir, "backup_1.zip")

	src := writeSource(t, dir, "a.mca", "A")
	if err := Append(container, []Entry{{Name: "world1/region/a.mca", Source: src}}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	err := Append(container, []Entry{
		{Name: "world1/region/missing.mca", Source: filepath.Join(dir, "missing.mca")},
	})
	if err == nil {
		t.Fatal("expected error for missing source")
	}

	got := readEntries(t, container)
	if len(got) != 1 || got[0][1] != "A" {
		t.Errorf("prior generation corrupted: %v", got)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, ".saveward-zip-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestAppend_EmptyEntryListRejected(t *testing.T) {
	if err := Append(filepath.Join(t.TempDir(), "b.zip"), nil); err == nil {
		t.Fatal("expected error for empty entry list")
	}
}

func TestRestore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "r.0.0.mca", "region bytes")
	container := filepath.Join(dir, "backup_1.zip")
	if err := Append(container, []Entry{{Name: "world1/region/r.0.0.mca", Source: src}}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	dest := t.TempDir()
	n, err := Restore(container, dest)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if n != 1 {
		t.Errorf("files restored = %d, want 1", n)
	}
	data, err := os.ReadFile(filepath.Join(dest, "world1", "region", "r.0.0.mca"))
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if string(data) != "region bytes" {
		t.Errorf("restored content = %q", data)
	}
}

func TestRestore_LastEntryWins(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "r.0.0.mca", "A")
	container := filepath.Join(dir, "backup_1.zip")
	if err := Append(container, []Entry{{Name: "world1/region/r.0.0.mca", Source: src}}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("B"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Append(container, []Entry{{Name: "world1/region/r.0.0.mca", Source: src}}); err != nil {
		t.Fatal(err)
	}

	dest := t.TempDir()
	if _, err := Restore(container, dest); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(dest, "world1", "region", "r.0.0.mca"))
	if string(data) != "B" {
		t.Errorf("restored content = %q, want B (last entry wins)", data)
	}
}

func TestRestore_OverwritesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "r.0.0.mca", "fresh")
	container := filepath.Join(dir, "backup_1.zip")
	if err := Append(container, []Entry{{Name: "world1/region/r.0.0.mca", Source: src}}); err != nil {
		t.Fatal(err)
	}

	dest := t.TempDir()
	writeSource(t, dest, filepath.Join("world1", "region", "r.0.0.mca"), "stale")
	if _, err := Restore(container, dest); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(dest, "world1", "region", "r.0.0.mca"))
	if string(data) != "fresh" {
		t.Errorf("restored content = %q, want fresh", data)
	}
}

func TestRestore_RejectsEscapingEntries(t *testing.T) {
	// Hand-build a container with a traversal entry name.
	dir := t.TempDir()
	container := filepath.Join(dir, "evil.zip")
	f, err := os.Create(container)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("../outside.mca")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	dest := filepath.Join(t.TempDir(), "inner")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Restore(container, dest); err == nil {
		t.Fatal("expected error for escaping entry")
	}
	if _, err := os.Stat(filepath.Join(dest, "..", "outside.mca")); err == nil {
		t.Error("escaping entry was written outside dest")
	}
}

func TestList_OrdersByModTimeDescending(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"backup_1.zip", "backup_2.zip", "backup_3.zip"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("z"), 0o644); err != nil {
			t.Fatal(err)
		}
		mt := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, mt, mt); err != nil {
			t.Fatal(err)
		}
	}

	got, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Name != "backup_3.zip" || got[2].Name != "backup_1.zip" {
		t.Errorf("order = %s, %s, %s", got[0].Name, got[1].Name, got[2].Name)
	}
}

func TestList_MissingDir(t *testing.T) {
	got, err := List(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil listing, got %v", got)
	}
}

func TestPrune_KeepsMostRecentlyModified(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	names := []string{"backup_1.zip", "backup_2.zip", "backup_3.zip"}
	for i, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("z"), 0o644); err != nil {
			t.Fatal(err)
		}
		mt := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, mt, mt); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := Prune(dir, 2, slog.Default())
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(removed) != 1 || removed[0] != "backup_1.zip" {
		t.Errorf("removed = %v, want [backup_1.zip]", removed)
	}

	left, _ := List(dir)
	if len(left) != 2 {
		t.Fatalf("containers left = %d, want 2", len(left))
	}
	for _, c := range left {
		if c.Name == "backup_1.zip" {
			t.Error("oldest container survived pruning")
		}
	}
}

func TestPrune_NoopUnderLimit(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "backup_1.zip"), []byte("z"), 0o644); err != nil {
		t.Fatal(err)
	}
	removed, err := Prune(dir, 2, slog.Default())
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != nil {
		t.Errorf("removed = %v, want nil", removed)
	}
}

func TestPrune_IgnoresNonContainers(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "backup_1.zip"), []byte("z"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Prune(dir, 1, slog.Default()); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	var names []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			names = append(names, d.Name())
		}
		return nil
	})
	if len(names) != 2 {
		t.Errorf("files = %v, non-container was touched", names)
	}
}
