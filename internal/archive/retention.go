package archive

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Info describes one container in a world's backup directory.
type Info struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// List returns every container in dir, most recently modified first.
// The ordering key is the file's modification time, not the creation
// timestamp embedded in its name: the active container's mtime advances on
// every append, which keeps it ahead of sealed ones.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("archive: list %s: %w", dir, err)
	}

	var out []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}

// Prune keeps the `keep` most recently modified containers in dir and
// deletes the rest. Individual deletion failures are logged and do not
// abort pruning of the remaining files. Returns the names deleted.
func Prune(dir string, keep int, logger *slog.Logger) ([]string, error) {
	if keep < 1 {
		keep = 1
	}
	containers, err := List(dir)
	if err != nil {
		return nil, err
	}
	if len(containers) <= keep {
		return nil, nil
	}

	var removed []string
	for _, c := range containers[keep:] {
		path := filepath.Join(dir, c.Name)
		if err := os.Remove(path); err != nil {
			logger.Warn("retention: delete failed",
				slog.String("container", path),
				slog.String("error", err.Error()))
			continue
		}
		removed = append(removed, c.Name)
	}
	return removed, nil
}
