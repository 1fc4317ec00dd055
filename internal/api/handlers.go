package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saveward/saveward/internal/apperr"
	"github.com/saveward/saveward/internal/engine"
	"github.com/saveward/saveward/internal/history"
)

// Handler holds the operator command handlers.
type Handler struct {
	eng  *engine.Engine
	hist *history.DB
}

// NewHandler creates a new Handler.
func NewHandler(eng *engine.Engine, hist *history.DB) *Handler {
	return &Handler{eng: eng, hist: hist}
}

// RunBackup handles POST /api/backup/run: triggers an immediate cycle and
// waits for its completion.
func (h *Handler) RunBackup(w http.ResponseWriter, r *http.Request) {
	rep, err := h.eng.RunCycle(r.Context(), engine.TriggerAPI)
	if err != nil {
		if errors.Is(err, apperr.ErrBusy) {
			writeText(w, http.StatusConflict, "a backup cycle is already running, try again later")
			return
		}
		slog.Error("backup run failed", slog.String("error", err.Error()))
		writeText(w, http.StatusInternalServerError, "backup cycle failed: %v", err)
		return
	}
	writeText(w, http.StatusOK, "%s", rep.Summary())
}

// ListArchives handles GET /api/archives and GET /api/archives/{world}:
// one line per container, most recently modified first per world.
func (h *Handler) ListArchives(w http.ResponseWriter, r *http.Request) {
	world := chi.URLParam(r, "world")

	listings, err := h.eng.Archives(world)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeText(w, http.StatusNotFound, "unknown world: %s", world)
			return
		}
		slog.Error("list archives failed", slog.String("error", err.Error()))
		writeText(w, http.StatusInternalServerError, "listing archives failed: %v", err)
		return
	}
	if len(listings) == 0 {
		writeText(w, http.StatusOK, "no archives found")
		return
	}

	var b strings.Builder
	for _, l := range listings {
		b.WriteString(FormatListing(l))
		b.WriteByte('\n')
	}
	writeText(w, http.StatusOK, "%s", strings.TrimRight(b.String(), "\n"))
}

// Restore handles POST /api/restore with a JSON body {"world": ..., "archive": ...}.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		World   string `json:"world"`
		Archive string `json:"archive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeText(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.World == "" || req.Archive == "" {
		writeText(w, http.StatusBadRequest, "world and archive are required")
		return
	}

	rep, err := h.eng.Restore(r.Context(), req.World, req.Archive)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeText(w, http.StatusNotFound, "not found: %v", err)
		case errors.Is(err, apperr.ErrBusy):
			writeText(w, http.StatusConflict, "a backup cycle is already running, try again later")
		default:
			slog.Error("restore failed",
				slog.String("world", req.World),
				slog.String("archive", req.Archive),
				slog.String("error", err.Error()))
			writeText(w, http.StatusInternalServerError, "restore failed: %v", err)
		}
		return
	}
	writeText(w, http.StatusOK, "%s", rep.Summary())
}

// History handles GET /api/history?limit=N: recent cycles, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rows, err := h.hist.RecentCycles(limit)
	if err != nil {
		slog.Error("history query failed", slog.String("error", err.Error()))
		writeText(w, http.StatusInternalServerError, "history query failed: %v", err)
		return
	}
	if len(rows) == 0 {
		writeText(w, http.StatusOK, "no cycles recorded yet")
		return
	}

	var b strings.Builder
	for _, row := range rows {
		b.WriteString(FormatCycleRow(row))
		b.WriteByte('\n')
	}
	writeText(w, http.StatusOK, "%s", strings.TrimRight(b.String(), "\n"))
}

// FormatListing renders one archive listing line. Shared with the CLI.
func FormatListing(l engine.Listing) string {
	return l.World + "\t" + l.Name + "\t" +
		strconv.FormatInt(l.Size, 10) + " bytes\t" +
		l.ModTime.UTC().Format(time.RFC3339)
}

// FormatCycleRow renders one history line. Shared with the CLI.
func FormatCycleRow(row history.CycleRow) string {
	return row.Started.UTC().Format(time.RFC3339) +
		"\ttrigger=" + row.Trigger +
		"\tworlds=" + strconv.Itoa(row.Worlds) +
		"\tfiles=" + strconv.Itoa(row.FilesArchived) +
		"\trotations=" + strconv.Itoa(row.Rotations) +
		"\tpruned=" + strconv.Itoa(row.Pruned) +
		"\tfailures=" + strconv.Itoa(row.Failures) +
		"\t(" + row.Duration.Round(time.Millisecond).String() + ")"
}
