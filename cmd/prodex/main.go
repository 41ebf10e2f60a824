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

	"github.com/use-agent/prodex/api"
	"github.com/use-agent/prodex/cache"
	"github.com/use-agent/prodex/config"
	"github.com/use-agent/prodex/pipeline"
	"github.com/use-agent/prodex/ratelimit"
	"github.com/use-agent/prodex/strategy"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("prodex starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxPages", cfg.Browser.MaxPages,
	)

	// ── 3. Launch the shared browser session ────────────────────────
	sess, err := strategy.NewSession(cfg.Browser)
	if err != nil {
		slog.Error("failed to launch browser", "error", err)
		os.Exit(1)
	}
	defer sess.Close()

	// ── 4. Build the strategy chain ─────────────────────────────────
	static := strategy.NewStaticFetch(cfg.Scraper)
	desktop := strategy.NewBrowser(sess, strategy.ProfileDesktop, cfg.Scraper)
	mobile := strategy.NewBrowser(sess, strategy.ProfileMobile, cfg.Scraper)
	secondary := strategy.NewSecondaryEngine(cfg.Secondary)

	// ── 4b. Cache and rate limiter ──────────────────────────────────
	cc := cache.New(cfg.Cache.TTL)
	defer cc.Stop()
	rl := ratelimit.New(cfg.RateLimit.Window)
	defer rl.Stop()

	orch := pipeline.New(pipeline.Options{
		Cache:     cc,
		Limiter:   rl,
		CacheTTL:  cfg.Cache.TTL,
		Static:    static,
		Desktop:   desktop,
		Mobile:    mobile,
		Secondary: secondary,
		Log:       slog.Default(),
	})

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(orch, sess, cfg, startTime)

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

	// sess.Close() runs via defer: drains page pool and kills Chrome.
	slog.Info("prodex stopped")
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
