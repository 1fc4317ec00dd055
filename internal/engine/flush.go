package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Flusher brings a world to a consistent on-disk state before hashing.
// It is invoked once per world per cycle; a failure is logged and the
// world is still processed.
type Flusher interface {
	Flush(ctx context.Context, world string) error
}

// NopFlusher performs no flushing.
type NopFlusher struct{}

func (NopFlusher) Flush(context.Context, string) error { return nil }

// CommandFlusher shells out to an external command (e.g. an RCON save-all
// bridge) with the world name exposed as $SAVEWARD_WORLD.
type CommandFlusher struct {
	Command string
}

func (f CommandFlusher) Flush(ctx context.Context, world string) error {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", f.Command)
	cmd.Env = append(os.Environ(), "SAVEWARD_WORLD="+world)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("flush %q: %w: %s", f.Command, err, strings.TrimSpace(string(out)))
	}
	return nil
}
