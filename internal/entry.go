// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/lint"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/render"
	"github.com/starford/ansuz/internal/schema"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
)

// Run starts the HTTP server with the given options.
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
		slog.String("library_path", cfg.Library.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("schema_dir", cfg.Schema.Dir),
		slog.Bool("strict_writes", cfg.Schema.StrictWrites),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure library directory exists.
	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return fmt.Errorf("create library dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Library.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// Run initial sync.
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	// Frontmatter schema registry.
	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build document service and API router.
	svc := docservice.NewService(store, db, reg, render.New(), cfg.Schema.StrictWrites)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.Library.Path)

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

	// Attachment downloads (unauthenticated, read-only).
	attach := api.NewAttachmentHandler(cfg.Library.Path)
	r.Get("/attachments/{filename}", attach.ServeFile)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		index.Watch(gCtx, db, store, cfg.Library.Path, logger, func(kind, path, sum string) {
			broker.PublishDocEvent(kind, path, sum)
		})
		return nil
	})

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

// RunLint lints the configured library and writes the report to w.
// It needs no database; the linter reads straight off the file system.
// The returned flag reports whether any error-severity findings exist.
func RunLint(_ context.Context, cfg *Config, format string, w io.Writer) (bool, error) {
	if format != "text" && format != "json" {
		return false, fmt.Errorf("unknown format %q (want text or json)", format)
	}

	store, err := storage.NewFS(cfg.Library.Path)
	if err != nil {
		return false, fmt.Errorf("init storage: %w", err)
	}
	reg, err := loadRegistry(cfg)
	if err != nil {
		return false, err
	}

	report, err := lint.New(store, reg).Run()
	if err != nil {
		return false, err
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return false, err
		}
		return report.HasErrors(), nil
	}

	for _, f := range report.Findings {
		fmt.Fprintf(w, "%s: %s: %s [%s]\n", f.Path, f.Severity, f.Message, f.Rule)
	}
	fmt.Fprintf(w, "%d documents checked: %d errors, %d warnings\n", report.Docs, report.Errors, report.Warnings)
	return report.HasErrors(), nil
}

// RunMCP serves the agent-facing MCP server on stdio. Logs go to stderr so
// stdout stays protocol-clean.
func RunMCP(_ context.Context, cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return fmt.Errorf("create library dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Library.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// Initial sync so search and backlinks are warm before the first call.
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	svc := docservice.NewService(store, db, reg, render.New(), cfg.Schema.StrictWrites)

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc, store).ServeStdio()
}

// loadRegistry builds the schema registry, loading per-category schemas
// when a schema directory is configured.
func loadRegistry(cfg *Config) (*schema.Registry, error) {
	reg, err := schema.NewRegistry()
	if err != nil {
		return nil, err
	}
	if cfg.Schema.Dir != "" {
		if err := reg.LoadDir(cfg.Schema.Dir); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
