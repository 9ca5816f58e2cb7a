package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aanand-mishra/student-roster/internal/config"
	"github.com/aanand-mishra/student-roster/internal/http/handlers/page"
	"github.com/aanand-mishra/student-roster/internal/http/router"
	"github.com/aanand-mishra/student-roster/internal/metrics"
	"github.com/aanand-mishra/student-roster/internal/roster"
)

const shutdownTimeout = 5 * time.Second

// serveCmd starts the web app.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger
//  3. Open the key-value storage and hydrate the roster from it
//  4. Register all HTTP routes
//  5. Start the HTTP server in a separate goroutine
//  6. Block until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, then exit
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the roster web app",
	Long: `Start the roster web app.

The server renders the roster page on / and the JSON API under /api,
and runs until interrupted (Ctrl+C) or it receives SIGTERM.

Example:
  roster serve -c config/local.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// ── 1. Load Config ────────────────────────────────────────────────────
	// MustLoad exits the process if the config is missing or invalid.
	configPath, _ := cmd.Flags().GetString("config")
	cfg := config.MustLoad(config.ResolvePath(configPath))

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting roster",
		slog.String("env", cfg.Env),
		slog.String("version", version),
	)

	// ── 3. Initialise Storage and Roster ──────────────────────────────────
	kv, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialise storage: %w", err)
	}
	defer kv.Close()

	log.Info("storage initialised",
		slog.String("driver", cfg.StorageDriver),
		slog.String("path", cfg.StoragePath))

	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := roster.New(ctx, kv, roster.Options{
		ConfirmTimeout: cfg.Roster.ConfirmTimeout,
		TotalPolicy:    roster.TotalPolicy(cfg.Roster.TotalPolicy),
		OnOperation:    m.ObserveOperation,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	go m.Watch(ctx, store)

	// ── 4. Register HTTP Routes ───────────────────────────────────────────
	handler := router.New(store, page.NewCookieStore(cfg.SessionSecret), m, log)

	// ── 5. Create and Start the HTTP Server ───────────────────────────────
	// No WriteTimeout: the event stream stays open and bounds its own
	// writes with per-write deadlines.
	server := &http.Server{
		Addr:              cfg.HTTPServer.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,

		// Request contexts derive from ctx, so a shutdown signal also ends
		// the open event streams.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		// ListenAndServe returns http.ErrServerClosed when Shutdown() is
		// called. That's expected — we don't want to treat it as an error.
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// ── 6. Wait for Shutdown Signal ───────────────────────────────────────
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server encountered an error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutdown signal received, stopping server...")

	// ── 7. Graceful Shutdown ──────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}
