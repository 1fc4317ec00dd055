package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/saveward/saveward/internal/api"
	"github.com/saveward/saveward/internal/engine"
	"github.com/saveward/saveward/internal/history"
	"github.com/saveward/saveward/internal/mcpserver"
)

// One-shot operator commands. Each builds an engine against the configured
// data directory, so they must not run while a serving daemon owns the same
// directory (single-writer assumption on the metadata document).

// oneShotLogger logs to stderr so command output on stdout stays clean.
func oneShotLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// RunOnce executes one backup cycle and returns its status line.
func RunOnce(ctx context.Context, cfg *Config) (string, error) {
	logger := oneShotLogger(cfg)
	eng, hist, err := buildEngine(cfg, nil, logger, engine.Options{})
	if err != nil {
		return "", err
	}
	defer hist.Close()

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go eng.Run(workerCtx) //nolint:errcheck // worker exits on cancel

	rep, err := eng.RunCycle(ctx, engine.TriggerCLI)
	if err != nil {
		return "", err
	}
	return rep.Summary(), nil
}

// ListArchives returns the archive listing for one world, or all worlds
// when world is empty.
func ListArchives(cfg *Config, world string) (string, error) {
	logger := oneShotLogger(cfg)
	eng, hist, err := buildEngine(cfg, nil, logger, engine.Options{})
	if err != nil {
		return "", err
	}
	defer hist.Close()

	listings, err := eng.Archives(world)
	if err != nil {
		return "", err
	}
	if len(listings) == 0 {
		return "no archives found", nil
	}
	lines := make([]string, 0, len(listings))
	for _, l := range listings {
		lines = append(lines, api.FormatListing(l))
	}
	return strings.Join(lines, "\n"), nil
}

// RestoreArchive restores the named container into the live worlds
// directory and returns the status line.
func RestoreArchive(ctx context.Context, cfg *Config, world, container string) (string, error) {
	logger := oneShotLogger(cfg)
	eng, hist, err := buildEngine(cfg, nil, logger, engine.Options{})
	if err != nil {
		return "", err
	}
	defer hist.Close()

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go eng.Run(workerCtx) //nolint:errcheck

	rep, err := eng.Restore(ctx, world, container)
	if err != nil {
		return "", err
	}
	return rep.Summary(), nil
}

// History returns the most recent cycle history lines.
func History(cfg *Config, limit int) (string, error) {
	oneShotLogger(cfg)
	hist, err := history.Open(cfg.Backup.HistoryPath())
	if err != nil {
		return "", fmt.Errorf("init history: %w", err)
	}
	defer hist.Close()

	rows, err := hist.RecentCycles(limit)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "no cycles recorded yet", nil
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, api.FormatCycleRow(row))
	}
	return strings.Join(lines, "\n"), nil
}

// ServeMCP runs the MCP stdio server until stdin closes.
func ServeMCP(ctx context.Context, cfg *Config) error {
	logger := oneShotLogger(cfg)
	eng, hist, err := buildEngine(cfg, nil, logger, engine.Options{})
	if err != nil {
		return err
	}
	defer hist.Close()

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go eng.Run(workerCtx) //nolint:errcheck

	return mcpserver.New(eng, hist).ServeStdio()
}
