package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nipunrajk/accessiblity-sub002/api"
	"github.com/nipunrajk/accessiblity-sub002/audit"
	"github.com/nipunrajk/accessiblity-sub002/browser"
	"github.com/nipunrajk/accessiblity-sub002/cache"
	"github.com/nipunrajk/accessiblity-sub002/config"
	"github.com/nipunrajk/accessiblity-sub002/content"
	"github.com/nipunrajk/accessiblity-sub002/metrics"
	"github.com/nipunrajk/accessiblity-sub002/scanner"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("a11yd starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxWorkers", cfg.Pool.MaxWorkers,
	)

	// ── 3. Initialise the browser worker pool ───────────────────────
	// Workers are launched lazily on demand; starting the service does
	// not spawn any browser processes.
	pool := browser.New(browser.Options{
		MaxWorkers:    cfg.Pool.MaxWorkers,
		IdleTimeout:   cfg.Pool.IdleTimeout,
		SweepInterval: cfg.Pool.SweepInterval,
	}, browser.NewFactory(cfg.Browser))
	defer pool.Shutdown()

	// ── 3b. Metrics ─────────────────────────────────────────────────
	metrics.Init()
	metrics.RegisterPool(func() (total, inUse, max int) {
		st := pool.Stats()
		return st.Total, st.InUse, st.MaxWorkers
	})

	// ── 4. Initialise scanner, auditor, extractor, cache ────────────
	sc := scanner.New(pool, cfg.Browser, cfg.Scan)
	au := audit.New()
	ex := content.NewExtractor()
	cc := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(sc, au, ex, cfg, cc, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// pool.Shutdown() runs via defer and closes every browser worker.
	slog.Info("a11yd stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
