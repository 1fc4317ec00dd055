package engine

import (
	"fmt"
	"time"
)

// Cycle trigger labels recorded in history and surfaced in events.
const (
	TriggerSchedule = "schedule"
	TriggerWatch    = "watch"
	TriggerAPI      = "api"
	TriggerCLI      = "cli"
	TriggerMCP      = "mcp"
)

// Event names published to the notify hook.
const (
	EventCycleStarted     = "cycle_started"
	EventCycleCompleted   = "cycle_completed"
	EventArchiveRotated   = "archive_rotated"
	EventRestoreCompleted = "restore_completed"
)

// CycleReport summarizes one completed backup cycle.
type CycleReport struct {
	Trigger       string
	Started       time.Time
	Duration      time.Duration
	Worlds        int // worlds processed (skipped worlds excluded)
	FilesArchived int
	Rotations     int
	Pruned        int
	Failures      int // contained per-file and per-world failures
}

// Summary renders the one-line operator status for the cycle.
func (r *CycleReport) Summary() string {
	s := fmt.Sprintf("archived %d file(s) across %d world(s) in %s",
		r.FilesArchived, r.Worlds, r.Duration.Round(time.Millisecond))
	if r.Rotations > 0 {
		s += fmt.Sprintf(", %d archive(s) rotated", r.Rotations)
	}
	if r.Pruned > 0 {
		s += fmt.Sprintf(", %d pruned", r.Pruned)
	}
	if r.Failures > 0 {
		s += fmt.Sprintf(", %d failure(s) - see log", r.Failures)
	}
	return s
}

// RestoreReport summarizes one completed restore.
type RestoreReport struct {
	World    string
	Archive  string
	Files    int
	Duration time.Duration
}

// Summary renders the one-line operator status for the restore.
func (r *RestoreReport) Summary() string {
	return fmt.Sprintf("restored %d file(s) from %s into world %q; restart the server before resuming play",
		r.Files, r.Archive, r.World)
}

// Listing describes one archive container of a world.
type Listing struct {
	World   string
	Name    string
	Size    int64
	ModTime time.Time
}
