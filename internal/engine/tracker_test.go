package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/saveward/saveward/internal/fingerprint"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDetect_FirstObservationIsChanged(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "r.0.0.mca", "A")

	tr := NewTracker(nil)
	changes, skipped := tr.Detect([]string{path}, quietLogger())
	if skipped != 0 {
		t.Fatalf("skipped = %d", skipped)
	}
	if len(changes) != 1 || changes[0].Path != path {
		t.Fatalf("changes = %v", changes)
	}
	if changes[0].Digest != fingerprint.Sum([]byte("A")) {
		t.Errorf("digest = %q", changes[0].Digest)
	}
}

func TestDetect_DoesNotMutateUntilCommit(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "r.0.0.mca", "A")

	tr := NewTracker(nil)
	changes, _ := tr.Detect([]string{path}, quietLogger())

	// Without Commit, the file is still considered changed.
	again, _ := tr.Detect([]string{path}, quietLogger())
	if len(again) != 1 {
		t.Fatalf("changes after uncommitted detect = %d, want 1", len(again))
	}

	tr.Commit(changes)
	after, _ := tr.Detect([]string{path}, quietLogger())
	if len(after) != 0 {
		t.Errorf("changes after commit = %d, want 0", len(after))
	}
}

func TestDetect_UnchangedFileNotReported(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "r.0.0.mca", "A")

	seed := map[string]string{path: fingerprint.Sum([]byte("A"))}
	tr := NewTracker(seed)
	changes, _ := tr.Detect([]string{path}, quietLogger())
	if len(changes) != 0 {
		t.Errorf("changes = %v, want none", changes)
	}
}

func TestDetect_HashFailureSkipsOnlyThatFile(t *testing.T) {
	dir := t.TempDir()
	good := writeTemp(t, dir, "r.0.0.mca", "A")
	missing := filepath.Join(dir, "gone.mca")

	tr := NewTracker(nil)
	changes, skipped := tr.Detect([]string{missing, good}, quietLogger())
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(changes) != 1 || changes[0].Path != good {
		t.Errorf("changes = %v, sibling file must still be evaluated", changes)
	}
}

func TestSnapshot_ReturnsCopy(t *testing.T) {
	tr := NewTracker(map[string]string{"/a": "1"})
	snap := tr.Snapshot()
	snap["/a"] = "mutated"
	if got := tr.Snapshot()["/a"]; got != "1" {
		t.Errorf("internal map mutated through snapshot: %q", got)
	}
}
