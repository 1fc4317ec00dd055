package engine

import (
	"log/slog"

	"github.com/saveward/saveward/internal/fingerprint"
)

// Change is one file whose content differs from its last-known state.
type Change struct {
	Path   string
	Digest string
}

// Tracker owns the in-memory path→fingerprint map seeded from the metadata
// store at startup.
type Tracker struct {
	fingerprints map[string]string
}

// NewTracker creates a tracker seeded with previously persisted fingerprints.
func NewTracker(seed map[string]string) *Tracker {
	fp := make(map[string]string, len(seed))
	for path, digest := range seed {
		fp[path] = digest
	}
	return &Tracker{fingerprints: fp}
}

// Detect hashes every candidate independently and returns the subset whose
// digest differs from the stored one, plus the count of files skipped
// because hashing failed. A file with no prior fingerprint is always
// reported as changed.
//
// Detect never mutates the stored map: call Commit once the changed files
// have actually reached a container, so that a failed append leaves the
// files marked changed for the next cycle.
func (t *Tracker) Detect(paths []string, logger *slog.Logger) ([]Change, int) {
	var changes []Change
	skipped := 0
	for _, p := range paths {
		digest, err := fingerprint.File(p)
		if err != nil {
			logger.Warn("tracker: fingerprint failed, skipping file",
				slog.String("path", p),
				slog.String("error", err.Error()))
			skipped++
			continue
		}
		if t.fingerprints[p] != digest {
			changes = append(changes, Change{Path: p, Digest: digest})
		}
	}
	return changes, skipped
}

// Commit records the new digests for successfully archived changes.
func (t *Tracker) Commit(changes []Change) {
	for _, c := range changes {
		t.fingerprints[c.Path] = c.Digest
	}
}

// Snapshot returns a copy of the fingerprint map for persistence.
func (t *Tracker) Snapshot() map[string]string {
	out := make(map[string]string, len(t.fingerprints))
	for path, digest := range t.fingerprints {
		out[path] = digest
	}
	return out
}
