package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
)

// Entry names one file to append: Name is the container entry name
// (forward-slash separated, world-relative), Source the file on disk.
type Entry struct {
	Name   string
	Source string
}

// Append adds one Deflate entry per Entry to the container at containerPath,
// creating the container if it does not exist.
//
// The new container generation is built in a temp file next to the target:
// every existing entry is raw-copied first (no recompression, duplicate
// names and order preserved), then the new entries are streamed in, and the
// result is renamed over the container path. Existing entries are therefore
// never removed or rewritten, and any failure leaves the previous
// generation intact.
func Append(containerPath string, entries []Entry) error {
	if len(entries) == 0 {
		return errors.New("archive: append called with no entries")
	}

	dir := filepath.Dir(containerPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("archive: mkdir %s: %w", dir, err)
	}

	var prior *zip.ReadCloser
	if _, err := os.Stat(containerPath); err == nil {
		prior, err = zip.OpenReader(containerPath)
		if err != nil {
			return fmt.Errorf("archive: open existing %s: %w", containerPath, err)
		}
		defer prior.Close()
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("archive: stat %s: %w", containerPath, err)
	}

	tmp, err := os.CreateTemp(dir, ".saveward-zip-*")
	if err != nil {
		return fmt.Errorf("archive: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	zw := zip.NewWriter(tmp)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})

	if prior != nil {
		for _, f := range prior.File {
			if err := zw.Copy(f); err != nil {
				return fmt.Errorf("archive: carry entry %s: %w", f.Name, err)
			}
		}
	}

	for _, e := range entries {
		if err := appendEntry(zw, e); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("archive: finalize: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("archive: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("archive: close temp: %w", err)
	}
	if err := os.Rename(tmpName, containerPath); err != nil {
		return fmt.Errorf("archive: rename: %w", err)
	}
	success = true
	return nil
}

// appendEntry streams one source file into a Deflate entry.
func appendEntry(zw *zip.Writer, e Entry) error {
	src, err := os.Open(e.Source)
	if err != nil {
		return fmt.Errorf("archive: open source %s: %w", e.Source, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("archive: stat source %s: %w", e.Source, err)
	}

	h := &zip.FileHeader{
		Name:     strings.TrimLeft(filepath.ToSlash(e.Name), "/"),
		Method:   zip.Deflate,
		Modified: info.ModTime().Truncate(time.Second),
	}
	h.SetMode(0o644)

	w, err := zw.CreateHeader(h)
	if err != nil {
		return fmt.Errorf("archive: create entry %s: %w", e.Name, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("archive: write entry %s: %w", e.Name, err)
	}
	return nil
}
