// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/saveward/saveward/internal/api"
	"github.com/saveward/saveward/internal/engine"
	"github.com/saveward/saveward/internal/history"
	"github.com/saveward/saveward/internal/metadata"
	"github.com/saveward/saveward/internal/sse"
)

// Run starts the backup daemon with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("worlds", strings.Join(cfg.Backup.Worlds, ",")),
		slog.String("worlds_dir", cfg.Backup.WorldsDir),
		slog.String("data_dir", cfg.Backup.DataDir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	eng, hist, err := buildEngine(cfg, app.flusher, logger, engine.Options{Notify: broker.PublishEvent})
	if err != nil {
		return err
	}
	defer hist.Close()

	// Build operator router.
	apiRouter := api.NewRouter(eng, hist, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP))

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Engine worker: drains the single-job queue.
	g.Go(func() error {
		return eng.Run(gCtx)
	})

	// Scheduled cycles.
	g.Go(func() error {
		return eng.Schedule(gCtx)
	})

	// Optional filesystem trigger.
	if cfg.Backup.Watch {
		g.Go(func() error {
			return eng.Watch(gCtx)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// buildEngine constructs the engine and history store from configuration.
// The caller owns closing the returned history DB.
func buildEngine(cfg *Config, flusher engine.Flusher, logger *slog.Logger, opts engine.Options) (*engine.Engine, *history.DB, error) {
	if err := os.MkdirAll(cfg.Backup.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Backup.BackupsDir(), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create backups dir: %w", err)
	}

	hist, err := history.Open(cfg.Backup.HistoryPath())
	if err != nil {
		return nil, nil, fmt.Errorf("init history: %w", err)
	}

	if flusher == nil && cfg.Backup.FlushCommand != "" {
		flusher = engine.CommandFlusher{Command: cfg.Backup.FlushCommand}
	}

	opts.Flusher = flusher
	opts.Recorder = hist
	opts.Logger = logger

	eng, err := engine.New(engine.Settings{
		Worlds:       cfg.Backup.Worlds,
		WorldsDir:    cfg.Backup.WorldsDir,
		BackupsDir:   cfg.Backup.BackupsDir(),
		SourceSubdir: cfg.Backup.SourceSubdir,
		FileSuffix:   cfg.Backup.FileSuffix,
		Interval:     cfg.Backup.Interval(),
		ArchiveAge:   cfg.Backup.ArchiveAge(),
		MaxArchives:  cfg.Backup.MaxArchives,
	}, metadata.NewStore(cfg.Backup.MetadataPath()), opts)
	if err != nil {
		hist.Close()
		return nil, nil, fmt.Errorf("init engine: %w", err)
	}
	return eng, hist, nil
}
