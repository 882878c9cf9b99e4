// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command relate starts the Aleutian Relate API server.
//
// Aleutian Relate resolves person names to relationships against a
// CSV dataset with:
//   - Exact lookup over a normalized-key index
//   - Fuzzy fallback (Levenshtein similarity, configurable threshold)
//   - Atomic hot-reload of the dataset (manual and file-watch)
//   - A WebSocket stream of every resolution step
//
// Usage:
//
//	go run ./cmd/relate -data family.csv
//	go run ./cmd/relate -data family.csv -port 9090
//	go run ./cmd/relate -config relate.config.yaml
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/relate/health
//
//	# Resolve a name
//	curl -X POST http://localhost:8080/v1/relate/resolve \
//	  -H "Content-Type: application/json" \
//	  -d '{"name": "  Saanvi  "}'
//
//	# Reload the dataset
//	curl -X POST http://localhost:8080/v1/relate/reload
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/RelateFOSS/services/relate"
	"github.com/AleutianAI/RelateFOSS/services/relate/telemetry"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	configPath := flag.String("config", "relate.config.yaml", "Path to the YAML config file")
	dataPath := flag.String("data", "", "Path to the dataset CSV (overrides config)")
	noWatch := flag.Bool("no-watch", false, "Disable dataset file watching")
	flag.Parse()

	// Set Gin mode
	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// W3C TraceContext propagation so callers can correlate spans with
	// their own distributed traces.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	cfg, err := relate.LoadServiceConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *dataPath != "" {
		cfg.DatasetPath = *dataPath
	}
	if *noWatch {
		cfg.WatchDataset = false
	}
	if cfg.DatasetPath == "" {
		slog.Error("No dataset configured; pass -data or set dataset_path in the config file")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		slog.Error("Failed to initialize telemetry", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetryShutdown(shutdownCtx); err != nil {
			slog.Warn("Telemetry shutdown error", slog.String("error", err.Error()))
		}
	}()

	svc, err := relate.NewService(cfg, slog.Default())
	if err != nil {
		slog.Error("Failed to create service", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer svc.Stop()

	handlers := relate.NewHandlers(svc)

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("aleutian-relate"))
	if *debug {
		router.Use(gin.Logger())
	}

	// Register routes under /v1/relate
	v1 := router.Group("/v1")
	relate.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	printBanner(*port, cfg)

	g, gctx := errgroup.WithContext(ctx)

	// Initial dataset load plus the file watcher (when enabled). Start
	// returns after the load when watching is off.
	g.Go(func() error {
		return svc.Start(gctx)
	})

	g.Go(func() error {
		slog.Info("Starting Aleutian Relate server",
			slog.String("address", srv.Addr),
			slog.String("dataset", cfg.DatasetPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down Aleutian Relate server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func printBanner(port int, cfg relate.ServiceConfig) {
	watchStatus := "ENABLED"
	if !cfg.WatchDataset {
		watchStatus = "DISABLED"
	}
	fuzzyStatus := fmt.Sprintf("ENABLED (threshold %.2f)", cfg.FuzzyThreshold)
	if !cfg.EnableFuzzy {
		fuzzyStatus = "DISABLED"
	}

	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                     ALEUTIAN RELATE SERVER                        ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Name-to-relationship resolution over a hot-reloadable dataset.   ║
║  Dataset: %-55s ║
║  Fuzzy matching: %-48s ║
║  File watching: %-49s ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/v1/relate/health             │  ║
║  │                                                             │  ║
║  │ # Resolve a name                                            │  ║
║  │ curl -X POST http://localhost:%d/v1/relate/resolve \  │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"name": "Saanvi"}'                                   │  ║
║  │                                                             │  ║
║  │ # Reload the dataset                                        │  ║
║  │ curl -X POST http://localhost:%d/v1/relate/reload     │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── POST /v1/relate/resolve   Resolve a name                     ║
║  ├── GET  /v1/relate/stream    WebSocket step stream              ║
║  ├── POST /v1/relate/reload    Reload the dataset                 ║
║  ├── GET  /v1/relate/health    Health check                       ║
║  └── GET  /v1/relate/ready     Readiness check                    ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, cfg.DatasetPath, fuzzyStatus, watchStatus, port, port, port)
}
