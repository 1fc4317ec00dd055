package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Restore extracts every entry of the container into destRoot, recreating
// intermediate directories and overwriting existing files unconditionally.
// Entries are applied in archive order, so when the same name appears more
// than once the last entry wins. Returns the number of files written.
//
// There is no rollback: if extraction fails partway, files already written
// remain on disk.
func Restore(containerPath, destRoot string) (int, error) {
	r, err := zip.OpenReader(containerPath)
	if err != nil {
		return 0, fmt.Errorf("archive: open %s: %w", containerPath, err)
	}
	defer r.Close()

	absRoot, err := filepath.Abs(destRoot)
	if err != nil {
		return 0, fmt.Errorf("archive: resolve dest: %w", err)
	}

	files := 0
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		dest, err := safeDest(absRoot, f.Name)
		if err != nil {
			return files, err
		}
		if err := extractFile(f, dest); err != nil {
			return files, err
		}
		files++
	}
	return files, nil
}

// safeDest resolves an entry name under root and rejects any entry that
// would escape it (absolute paths, .. traversal).
func safeDest(root, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("archive: absolute entry name not allowed: %s", name)
	}
	dest := filepath.Join(root, cleaned)
	if !strings.HasPrefix(dest, root+string(os.PathSeparator)) && dest != root {
		return "", fmt.Errorf("archive: entry escapes destination: %s", name)
	}
	return dest, nil
}

func extractFile(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("archive: mkdir for %s: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("archive: open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("archive: extract %s: %w", f.Name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("archive: close %s: %w", dest, err)
	}
	return nil
}
