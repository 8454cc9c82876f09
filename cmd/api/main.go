// Package main is the entry point for the Fleetcare API server.
//
// It loads configuration (resolving SSM parameters outside local), wires the
// application and serves HTTP until SIGINT or SIGTERM, then drains in-flight
// requests.
//
// Routes:
//
//	GET|POST /v1/cron/overdue-maintenance      cron-authenticated scan trigger
//	POST     /v1/vehicles/{v}/schedules/{s}/records
//	PATCH    /v1/records/{id}
//	DELETE   /v1/records/{id}
//	GET      /health
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fleetcare/internal/config"
	"fleetcare/internal/wiring"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := wiring.NewLogger(cfg.LogLevel)
	logger.Info("fleetcare API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := wiring.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("wiring application: %w", err)
	}
	defer app.Close()

	srv, err := app.NewServer()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("server stopped cleanly")
	return nil
}
