// Package engine implements the incremental backup core: change detection
// against stored fingerprints, the active-archive lifecycle, appending
// changed files to the active container, metadata persistence, and
// retention pruning. One Engine instance owns all mutable backup state;
// every cycle and restore runs through its single-worker queue, so two
// operations can never touch a world concurrently.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/saveward/saveward/internal/apperr"
	"github.com/saveward/saveward/internal/archive"
	"github.com/saveward/saveward/internal/metadata"
)

// Settings is the immutable configuration of an Engine.
type Settings struct {
	Worlds        []string      // world names to track
	WorldsDir     string        // parent directory of world save folders
	BackupsDir    string        // parent directory of per-world backup dirs
	SourceSubdir  string        // tracked subdirectory inside a world, e.g. "region"
	FileSuffix    string        // tracked file suffix, e.g. ".mca"
	Interval      time.Duration // scheduled cycle interval
	ArchiveAge    time.Duration // active archive age before rotation
	MaxArchives   int           // containers retained per world
	WatchDebounce time.Duration // quiet period before a watch-triggered cycle
}

// Recorder receives completed cycle and restore reports for durable history.
type Recorder interface {
	RecordCycle(CycleReport) error
	RecordRestore(RestoreReport) error
}

// EventFunc receives engine events for live broadcasting.
type EventFunc func(event string, data map[string]string)

// Options carries the optional collaborators of an Engine.
type Options struct {
	Flusher  Flusher          // nil means no flushing
	Recorder Recorder         // nil means no history
	Notify   EventFunc        // nil means no events
	Logger   *slog.Logger     // nil means slog.Default()
	Now      func() time.Time // nil means time.Now (tests inject a fake clock)
}

// Engine is the backup engine. All state mutation happens on the worker
// goroutine started by Run; public entry points submit jobs to it.
type Engine struct {
	set     Settings
	meta    *metadata.Store
	tracker *Tracker
	actives map[string]metadata.Record

	flusher Flusher
	rec     Recorder
	notify  EventFunc
	logger  *slog.Logger
	now     func() time.Time

	jobs chan job
}

type job struct {
	run   func(ctx context.Context) (any, error)
	reply chan jobResult
}

type jobResult struct {
	value any
	err   error
}

// New loads persisted metadata and constructs an Engine.
func New(set Settings, store *metadata.Store, opts Options) (*Engine, error) {
	if len(set.Worlds) == 0 {
		return nil, fmt.Errorf("engine: no worlds configured")
	}
	if set.MaxArchives < 1 {
		return nil, fmt.Errorf("engine: max archives must be at least 1")
	}
	if set.WatchDebounce <= 0 {
		set.WatchDebounce = 2 * time.Second
	}

	doc, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("engine: load metadata: %w", err)
	}

	actives := make(map[string]metadata.Record, len(doc.Archives))
	for world, rec := range doc.Archives {
		actives[world] = rec
	}

	e := &Engine{
		set:     set,
		meta:    store,
		tracker: NewTracker(doc.Fingerprints),
		actives: actives,
		flusher: opts.Flusher,
		rec:     opts.Recorder,
		notify:  opts.Notify,
		logger:  opts.Logger,
		now:     opts.Now,
		jobs:    make(chan job, 1),
	}
	if e.flusher == nil {
		e.flusher = NopFlusher{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Run drains the job queue one job at a time until ctx is cancelled.
// It must be running for RunCycle and Restore to make progress.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case j := <-e.jobs:
			v, err := j.run(ctx)
			j.reply <- jobResult{value: v, err: err}
		}
	}
}

// submit enqueues a job and waits for its result. The queue holds at most
// one waiting job beyond the one in flight; further submissions are
// rejected with apperr.ErrBusy so overlapping cycles cannot happen.
func (e *Engine) submit(ctx context.Context, run func(context.Context) (any, error)) (any, error) {
	j := job{run: run, reply: make(chan jobResult, 1)}
	select {
	case e.jobs <- j:
	default:
		return nil, apperr.ErrBusy
	}
	select {
	case res := <-j.reply:
		return res.value, res.err
	case <-ctx.Done():
		// The job still runs to completion on the worker; only the
		// caller stops waiting.
		return nil, ctx.Err()
	}
}

// RunCycle performs one full backup cycle over all tracked worlds.
func (e *Engine) RunCycle(ctx context.Context, trigger string) (*CycleReport, error) {
	v, err := e.submit(ctx, func(ctx context.Context) (any, error) {
		return e.runCycle(ctx, trigger), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CycleReport), nil
}

// Restore extracts the named container back into the worlds directory,
// overwriting live files. It runs through the same queue as cycles and can
// therefore never overlap an in-flight write cycle.
func (e *Engine) Restore(ctx context.Context, world, container string) (*RestoreReport, error) {
	if !slices.Contains(e.set.Worlds, world) {
		return nil, fmt.Errorf("engine: world %q: %w", world, apperr.ErrNotFound)
	}
	if container == "" || filepath.Base(container) != container {
		return nil, fmt.Errorf("engine: invalid container name %q", container)
	}
	v, err := e.submit(ctx, func(context.Context) (any, error) {
		return e.runRestore(world, container)
	})
	if err != nil {
		return nil, err
	}
	return v.(*RestoreReport), nil
}

// Archives lists the containers of one world, or of all worlds when world
// is empty, most recently modified first per world.
func (e *Engine) Archives(world string) ([]Listing, error) {
	worlds := e.set.Worlds
	if world != "" {
		if !slices.Contains(e.set.Worlds, world) {
			return nil, fmt.Errorf("engine: world %q: %w", world, apperr.ErrNotFound)
		}
		worlds = []string{world}
	}

	var out []Listing
	for _, w := range worlds {
		infos, err := archive.List(filepath.Join(e.set.BackupsDir, w))
		if err != nil {
			return nil, err
		}
		for _, info := range infos {
			out = append(out, Listing{World: w, Name: info.Name, Size: info.Size, ModTime: info.ModTime})
		}
	}
	return out, nil
}

// Worlds returns the tracked world names.
func (e *Engine) Worlds() []string {
	return slices.Clone(e.set.Worlds)
}

// Schedule runs a cycle every Settings.Interval until ctx is cancelled.
// A tick that arrives while the queue is full is skipped.
func (e *Engine) Schedule(ctx context.Context) error {
	ticker := time.NewTicker(e.set.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rep, err := e.RunCycle(ctx, TriggerSchedule)
			switch {
			case errors.Is(err, apperr.ErrBusy):
				e.logger.Debug("schedule: cycle in flight, tick skipped")
			case err != nil:
				if ctx.Err() != nil {
					return nil
				}
				e.logger.Error("schedule: cycle failed", slog.String("error", err.Error()))
			default:
				e.logger.Info("schedule: cycle completed", slog.String("summary", rep.Summary()))
			}
		}
	}
}

// runCycle executes one cycle on the worker goroutine.
func (e *Engine) runCycle(ctx context.Context, trigger string) *CycleReport {
	start := e.now()
	rep := &CycleReport{Trigger: trigger, Started: start}
	e.publish(EventCycleStarted, map[string]string{"trigger": trigger})

	dirty := false
	for _, world := range e.set.Worlds {
		if e.processWorld(ctx, world, rep) {
			dirty = true
		}
	}

	if dirty {
		e.persist()
	}

	for _, world := range e.set.Worlds {
		removed, err := archive.Prune(filepath.Join(e.set.BackupsDir, world), e.set.MaxArchives, e.logger)
		if err != nil {
			e.logger.Warn("cycle: prune failed",
				slog.String("world", world),
				slog.String("error", err.Error()))
			rep.Failures++
			continue
		}
		rep.Pruned += len(removed)
	}

	rep.Duration = e.now().Sub(start)
	e.record(rep)
	e.publish(EventCycleCompleted, map[string]string{
		"trigger": trigger,
		"summary": rep.Summary(),
	})
	return rep
}

// processWorld runs detection, lifecycle, and archival for one world.
// Returns true when metadata changed. Failures are contained: they are
// logged, counted, and never abort sibling worlds.
func (e *Engine) processWorld(ctx context.Context, world string, rep *CycleReport) bool {
	srcDir := filepath.Join(e.set.WorldsDir, world, e.set.SourceSubdir)
	if info, err := os.Stat(srcDir); err != nil || !info.IsDir() {
		e.logger.Warn("cycle: source directory missing, world skipped",
			slog.String("world", world),
			slog.String("dir", srcDir))
		rep.Failures++
		return false
	}
	rep.Worlds++

	if err := e.flusher.Flush(ctx, world); err != nil {
		e.logger.Warn("cycle: flush failed",
			slog.String("world", world),
			slog.String("error", err.Error()))
	}

	candidates, err := e.candidateFiles(srcDir)
	if err != nil {
		e.logger.Warn("cycle: listing candidates failed",
			slog.String("world", world),
			slog.String("error", err.Error()))
		rep.Failures++
		return false
	}

	changes, skipped := e.tracker.Detect(candidates, e.logger)
	rep.Failures += skipped

	// Lifecycle decision precedes any write, so the first write after a
	// rotation always lands in the new container. It runs even when
	// nothing changed: rotation is driven by age, not by content.
	rec, dirty := e.activeFor(world, rep)

	if len(changes) == 0 {
		e.logger.Debug("cycle: no changes", slog.String("world", world))
		return dirty
	}

	entries := make([]archive.Entry, 0, len(changes))
	for _, c := range changes {
		rel, relErr := filepath.Rel(e.set.WorldsDir, c.Path)
		if relErr != nil {
			e.logger.Warn("cycle: relative path failed",
				slog.String("path", c.Path),
				slog.String("error", relErr.Error()))
			rep.Failures++
			return dirty
		}
		entries = append(entries, archive.Entry{
			Name:   filepath.ToSlash(rel),
			Source: c.Path,
		})
	}

	containerPath := filepath.Join(e.set.BackupsDir, world, rec.File)
	if err := archive.Append(containerPath, entries); err != nil {
		// Fingerprints stay uncommitted so these files are retried
		// next cycle.
		e.logger.Error("cycle: append failed, world skipped",
			slog.String("world", world),
			slog.String("container", containerPath),
			slog.String("error", err.Error()))
		rep.Failures++
		return dirty
	}

	e.tracker.Commit(changes)
	rep.FilesArchived += len(changes)
	e.logger.Info("cycle: world archived",
		slog.String("world", world),
		slog.String("container", rec.File),
		slog.Int("files", len(changes)))
	return true
}

// activeFor returns the world's active archive record, creating it on first
// observation and rotating it once its age reaches the threshold. The
// record is persisted as soon as it changes so a crash later in the cycle
// cannot lose it. The second return reports whether metadata changed.
func (e *Engine) activeFor(world string, rep *CycleReport) (metadata.Record, bool) {
	now := e.now()

	rec, ok := e.actives[world]
	if !ok {
		rec = metadata.Record{File: archive.ContainerName(now), Created: now.UnixMilli()}
		e.actives[world] = rec
		e.logger.Info("lifecycle: active archive started",
			slog.String("world", world),
			slog.String("container", rec.File))
		e.persist()
		return rec, true
	}

	if now.Sub(time.UnixMilli(rec.Created)) < e.set.ArchiveAge {
		return rec, false
	}

	old := rec.File
	rec = metadata.Record{File: archive.ContainerName(now), Created: now.UnixMilli()}
	e.actives[world] = rec
	rep.Rotations++
	e.logger.Info("lifecycle: active archive rotated",
		slog.String("world", world),
		slog.String("sealed", old),
		slog.String("container", rec.File))
	e.publish(EventArchiveRotated, map[string]string{
		"world":     world,
		"sealed":    old,
		"container": rec.File,
	})
	e.persist()
	return rec, true
}

// candidateFiles returns every tracked file under srcDir.
func (e *Engine) candidateFiles(srcDir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), e.set.FileSuffix) {
			return nil
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("engine: walk %s: %w", srcDir, err)
	}
	return out, nil
}

// runRestore executes a restore on the worker goroutine.
func (e *Engine) runRestore(world, container string) (*RestoreReport, error) {
	start := e.now()
	containerPath := filepath.Join(e.set.BackupsDir, world, container)
	if _, err := os.Stat(containerPath); err != nil {
		return nil, fmt.Errorf("engine: container %s: %w", container, apperr.ErrNotFound)
	}

	files, err := archive.Restore(containerPath, e.set.WorldsDir)
	if err != nil {
		return nil, fmt.Errorf("engine: restore %s: %w", container, err)
	}

	rep := &RestoreReport{
		World:    world,
		Archive:  container,
		Files:    files,
		Duration: e.now().Sub(start),
	}
	e.logger.Info("restore: completed",
		slog.String("world", world),
		slog.String("container", container),
		slog.Int("files", files))
	if e.rec != nil {
		if err := e.rec.RecordRestore(*rep); err != nil {
			e.logger.Warn("restore: history record failed", slog.String("error", err.Error()))
		}
	}
	e.publish(EventRestoreCompleted, map[string]string{
		"world":     world,
		"container": container,
		"summary":   rep.Summary(),
	})
	return rep, nil
}

// persist rewrites the metadata document. A failed save is logged and the
// in-memory state stays authoritative until the next successful save.
func (e *Engine) persist() {
	doc := &metadata.Document{
		Fingerprints: e.tracker.Snapshot(),
		Archives:     make(map[string]metadata.Record, len(e.actives)),
	}
	for world, rec := range e.actives {
		doc.Archives[world] = rec
	}
	if err := e.meta.Save(doc); err != nil {
		e.logger.Error("metadata save failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) record(rep *CycleReport) {
	if e.rec == nil {
		return
	}
	if err := e.rec.RecordCycle(*rep); err != nil {
		e.logger.Warn("cycle: history record failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) publish(event string, data map[string]string) {
	if e.notify != nil {
		e.notify(event, data)
	}
}
