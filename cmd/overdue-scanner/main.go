// Package main is the entry point for the Overdue Scanner Lambda.
//
// EventBridge invokes it once a day with a scheduler.ScanPayload. An empty
// payload scans every eligible user for the current UTC day; user_id limits
// the scan to one user and reference_time backfills a past day.
//
// With APP_ENV=local the payload is read from stdin instead of the Lambda
// runtime:
//
//	echo '{"dry_run":true}' | go run ./cmd/overdue-scanner
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"fleetcare/internal/config"
	"fleetcare/internal/scheduler"
	"fleetcare/internal/types"
	"fleetcare/internal/wiring"
)

// Scanner is the slice of scheduler.OverdueScanJob the handler drives.
type Scanner interface {
	Run(ctx context.Context, now time.Time, opts ...scheduler.RunOption) (*types.ScanSummary, error)
	RunForUser(ctx context.Context, userID string, now time.Time, opts ...scheduler.RunOption) (*types.ScanSummary, error)
}

// Handler adapts ScanPayload invocations onto the scan job.
type Handler struct {
	scanner Scanner
	clock   types.Clock
	logger  *slog.Logger
}

// NewHandler creates a Handler. A nil clock uses the wall clock.
func NewHandler(scanner Scanner, clock types.Clock, logger *slog.Logger) *Handler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{scanner: scanner, clock: clock, logger: logger}
}

// Handle runs one scan. Only a fatal run error fails the invocation; per-user
// failures are reported in the summary.
func (h *Handler) Handle(ctx context.Context, payload scheduler.ScanPayload) (*types.ScanSummary, error) {
	now := h.clock.Now()
	if payload.ReferenceTime != nil {
		now = *payload.ReferenceTime
	}
	trigger := payload.Trigger
	if trigger == "" {
		trigger = scheduler.TriggerCron
	}
	opts := []scheduler.RunOption{
		scheduler.WithTrigger(trigger),
		scheduler.WithDryRun(payload.DryRun),
	}

	h.logger.InfoContext(ctx, "overdue scanner invoked",
		"trigger", trigger,
		"reference_time", now.UTC().Format(time.RFC3339),
		"user_id", payload.UserID,
		"dry_run", payload.DryRun,
	)

	if payload.UserID != "" {
		summary, err := h.scanner.RunForUser(ctx, payload.UserID, now, opts...)
		if err != nil {
			h.logger.ErrorContext(ctx, "single-user scan failed", "user_id", payload.UserID, "error", err)
		}
		return summary, nil
	}

	summary, err := h.scanner.Run(ctx, now, opts...)
	if err != nil {
		return summary, fmt.Errorf("overdue scan failed: %w", err)
	}
	return summary, nil
}

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
	logger.Info("overdue scanner initializing (cold start)", "version", cfg.Build.Version)

	ctx := context.Background()
	app, err := wiring.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("wiring application: %w", err)
	}
	defer app.Close()

	handler := NewHandler(app.Scanner, app.Clock, logger)

	if cfg.Environment == "local" {
		return runLocal(ctx, handler, os.Stdin, os.Stdout)
	}
	lambda.Start(handler.Handle)
	return nil
}

// runLocal decodes one payload from in and writes the summary to out. Empty
// input is treated as an empty payload.
func runLocal(ctx context.Context, h *Handler, in io.Reader, out io.Writer) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	var payload scheduler.ScanPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("parsing payload: %w", err)
		}
	}
	summary, err := h.Handle(ctx, payload)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
