package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saveward/saveward/internal/engine"
	"github.com/saveward/saveward/internal/history"
)

// NewRouter creates a chi router with the operator command surface mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(eng *engine.Engine, hist *history.DB, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(eng, hist)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Backup cycle trigger.
	r.Post("/backup/run", h.RunBackup)

	// Archive listing.
	r.Get("/archives", h.ListArchives)
	r.Get("/archives/{world}", h.ListArchives)

	// Restore.
	r.Post("/restore", h.Restore)

	// Cycle and restore history.
	r.Get("/history", h.History)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
