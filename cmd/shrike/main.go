// Shrike - Merchant fleet health monitoring that deploys in 60 seconds.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

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

	"github.com/opensource-finance/shrike/internal/activity"
	"github.com/opensource-finance/shrike/internal/api"
	"github.com/opensource-finance/shrike/internal/bus"
	"github.com/opensource-finance/shrike/internal/cache"
	"github.com/opensource-finance/shrike/internal/domain"
	"github.com/opensource-finance/shrike/internal/repository"
	"github.com/opensource-finance/shrike/internal/rules"
	"github.com/opensource-finance/shrike/internal/scanner"
	"github.com/opensource-finance/shrike/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("SHRIKE_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting shrike",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("SHRIKE_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Activity Service
	activitySvc := activity.NewService(repo)
	if sqlRepo, ok := repo.(*repository.SQLRepository); ok {
		activitySvc = activity.NewServiceWithDB(repo, sqlRepo.DB())
	}
	slog.Info("activity service initialized")

	// Initialize Rule Engine with the fixed action catalog
	engine, err := rules.NewEngine()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()
	slog.Info("rule engine initialized", "rules_count", engine.RulesCount())

	// Initialize Scanner
	scan := scanner.New(engine)
	slog.Info("scanner initialized",
		"max_workers", cfg.Scanner.MaxWorkers,
		"top_codes", cfg.Scanner.TopCodes,
	)

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("SHRIKE_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, repo, cacheImpl, scan)

		// Get tenant IDs to process (from environment or default)
		tenantIDs := []string{}
		if envTenants := os.Getenv("SHRIKE_TENANTS"); envTenants != "" {
			// Could parse comma-separated list here
			tenantIDs = []string{envTenants}
		}

		workerCfg := worker.Config{
			TenantIDs:      tenantIDs,
			ReportCacheTTL: time.Duration(cfg.Scanner.ReportCacheTTL) * time.Second,
		}

		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, engine, scan, activitySvc, cfg.Scanner, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("shrike is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("shrike shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🐦 SHRIKE                   ║")
	fmt.Println("  ║     Merchant Fleet Health Monitor         ║")
	fmt.Println("  ║      Every till, always serviceable.      ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /merchants              - Register a merchant twin")
	fmt.Println("    POST /merchants/generate     - Generate fixture or random fleets")
	fmt.Println("    GET  /merchants              - List merchant twins")
	fmt.Println("    GET  /merchants/{id}         - Get a merchant twin")
	fmt.Println("    POST /merchants/{id}/events  - Apply a twin event")
	fmt.Println("    GET  /merchants/{id}/scan    - Scan one merchant")
	fmt.Println("    GET  /merchants/{id}/health  - Sensor health and risk tier")
	fmt.Println("    POST /fleet/scan             - Scan the whole fleet")
	fmt.Println("    GET  /rules                  - List the action catalog")
	fmt.Println("    GET  /health                 - Health check")
	fmt.Println()
}
