// Command server runs the statusgraph API server.
//
// # Usage
//
//	server --database postgres://localhost/statusgraph --port 8080
//
// # Configuration
//
// The server can be configured via:
// - Command-line flags
// - Environment variables (STATUSGRAPH_*)
// - YAML config file (--config)
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pulse-ops/statusgraph/db/migrate"
	"github.com/pulse-ops/statusgraph/internal/api"
	"github.com/pulse-ops/statusgraph/internal/cache"
	"github.com/pulse-ops/statusgraph/internal/checker"
	"github.com/pulse-ops/statusgraph/internal/config"
	"github.com/pulse-ops/statusgraph/internal/metrics"
	"github.com/pulse-ops/statusgraph/internal/secrets"
	"github.com/pulse-ops/statusgraph/internal/service"
	"github.com/pulse-ops/statusgraph/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file")
		port       = flag.Int("port", 0, "HTTP server port")
		dbURL      = flag.String("database", "", "Database URL (postgres://...)")
		redisURL   = flag.String("redis", "", "Redis URL for response caching (optional)")
		debug      = flag.Bool("debug", false, "Enable debug logging")
		version    = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Println("statusgraph-server v0.1.0")
		os.Exit(0)
	}

	// Load config: file, then env, then flags.
	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.ApplyEnvOverrides()
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbURL != "" {
		cfg.Database.URL = *dbURL
	}
	if *redisURL != "" {
		cfg.Cache.RedisURL = *redisURL
	}
	if *debug {
		cfg.Server.Debug = true
	}

	// Set up logging
	logLevel := slog.LevelInfo
	if cfg.Server.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	// Resolve connection strings from the secret store when not configured
	// directly.
	secretCfg := secrets.ConfigFromEnv()
	if cfg.Secrets.Backend != "" {
		secretCfg.Backend = cfg.Secrets.Backend
	}
	if cfg.Secrets.LocalDir != "" {
		secretCfg.LocalDir = cfg.Secrets.LocalDir
	}
	secretStore, err := secrets.NewStore(secretCfg, logger)
	if err != nil {
		logger.Error("failed to initialize secret store", "error", err)
		os.Exit(1)
	}
	defer secretStore.Close()

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if v, err := secretStore.Get(startCtx, secrets.SecretDatabaseURL); err == nil && v != "" && *dbURL == "" && os.Getenv("STATUSGRAPH_DATABASE_URL") == "" {
		cfg.Database.URL = v
	}
	if v, err := secretStore.Get(startCtx, secrets.SecretRedisURL); err == nil && v != "" && cfg.Cache.RedisURL == "" {
		cfg.Cache.RedisURL = v
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := store.NewStoreFromURL(startCtx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(startCtx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Apply schema migrations
	if err := migrate.Run(startCtx, db.Pool(), logger); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// Optional response cache
	var responseCache *cache.Cache
	if cfg.Cache.RedisURL != "" {
		responseCache, err = cache.New(cfg.Cache.RedisURL, logger)
		if err != nil {
			logger.Warn("cache disabled: redis unavailable", "error", err)
			responseCache = nil
		} else {
			logger.Info("response cache enabled")
		}
	}

	// Create service and API
	svc := service.NewService(db, logger)
	svc.SetMaxTreeDepth(cfg.Tree.MaxDepth)

	var pinger metrics.CachePinger
	if responseCache != nil {
		pinger = responseCache
	}
	collector := metrics.NewCollector(db, pinger)

	apiServer := api.NewServer(svc, db, collector, responseCache, logger)
	if cfg.Auth.EnforceIngestKeys {
		apiServer.EnableIngestAuth()
	}

	// Background health checker
	checkerCtx, stopChecker := context.WithCancel(context.Background())
	defer stopChecker()
	if cfg.Checker.Enabled {
		chk := checker.New(db, svc, checker.Config{
			Interval:       cfg.Checker.Interval,
			RequestTimeout: cfg.Checker.RequestTimeout,
			RatePerSecond:  cfg.Checker.RatePerSecond,
		}, logger)
		go chk.Run(checkerCtx)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      apiServer,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	stopChecker()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
