// Package main implements the scan-runner CLI for running the overdue
// maintenance scan by hand, bypassing the Lambda shim.
//
// Usage:
//
//	go run ./cmd/tools/scan-runner --dry-run
//	go run ./cmd/tools/scan-runner --date=2024-06-01 --user=7f0c...
//	go run ./cmd/tools/scan-runner --ledger --user=7f0c... --date=2024-06-01
//	go run ./cmd/tools/scan-runner --purge-before=2024-01-01
//	go run ./cmd/tools/scan-runner --last-run
//
// Configuration is read from the environment (or .env) exactly as the
// deployed services read it. The summary is printed as JSON on stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleetcare/internal/config"
	"fleetcare/internal/scheduler"
	"fleetcare/internal/types"
	"fleetcare/internal/wiring"
)

type mode int

const (
	modeScan mode = iota
	modeLedger
	modePurge
	modeLastRun
)

type options struct {
	mode   mode
	day    time.Time
	userID string
	dryRun bool
	cutoff time.Time
}

// Operations the CLI drives; satisfied by the wired App components.
type (
	scanner interface {
		Run(ctx context.Context, now time.Time, opts ...scheduler.RunOption) (*types.ScanSummary, error)
		RunForUser(ctx context.Context, userID string, now time.Time, opts ...scheduler.RunOption) (*types.ScanSummary, error)
	}
	ledgerInspector interface {
		ListForDay(ctx context.Context, userID string, day time.Time) ([]types.LedgerEntry, error)
		PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
	runHistory interface {
		Latest(ctx context.Context) (*types.ScanRun, error)
	}
)

// ledgerRow is one ledger entry as printed by --ledger. The legacy code is
// the single integer older reports keyed deliveries on.
type ledgerRow struct {
	types.LedgerEntry
	Severity   string `json:"severity"`
	LegacyCode int    `json:"legacy_severity_code"`
}

func ledgerRows(entries []types.LedgerEntry) []ledgerRow {
	rows := make([]ledgerRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, ledgerRow{LedgerEntry: e, Severity: e.Key.String(), LegacyCode: e.Key.LegacyCode()})
	}
	return rows
}

type runner struct {
	scanner scanner
	ledger  ledgerInspector
	runs    runHistory
	out     io.Writer
}

func parseFlags(args []string, now time.Time) (options, error) {
	fs := flag.NewFlagSet("scan-runner", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dateFlag := fs.String("date", "", "Reference day (YYYY-MM-DD or RFC3339); defaults to today (UTC)")
	userFlag := fs.String("user", "", "Scan (or inspect) a single user")
	dryRun := fs.Bool("dry-run", false, "Classify and count without writing the ledger or sending")
	ledger := fs.Bool("ledger", false, "Print the ledger entries for --user on --date")
	purge := fs.String("purge-before", "", "Delete ledger entries for days before this date")
	lastRun := fs.Bool("last-run", false, "Print the most recent scan run")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts := options{day: now, userID: *userFlag, dryRun: *dryRun}
	if *dateFlag != "" {
		day, err := parseDay(*dateFlag)
		if err != nil {
			return options{}, fmt.Errorf("invalid --date: %w", err)
		}
		opts.day = day
	}

	selected := 0
	for _, set := range []bool{*ledger, *purge != "", *lastRun} {
		if set {
			selected++
		}
	}
	if selected > 1 {
		return options{}, errors.New("--ledger, --purge-before and --last-run are mutually exclusive")
	}

	switch {
	case *ledger:
		if opts.userID == "" {
			return options{}, errors.New("--ledger requires --user")
		}
		opts.mode = modeLedger
	case *purge != "":
		cutoff, err := parseDay(*purge)
		if err != nil {
			return options{}, fmt.Errorf("invalid --purge-before: %w", err)
		}
		opts.mode = modePurge
		opts.cutoff = cutoff
	case *lastRun:
		opts.mode = modeLastRun
	}
	return opts, nil
}

func parseDay(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (r *runner) execute(ctx context.Context, opts options) error {
	switch opts.mode {
	case modeLedger:
		entries, err := r.ledger.ListForDay(ctx, opts.userID, opts.day)
		if err != nil {
			return err
		}
		return r.print(ledgerRows(entries))
	case modePurge:
		n, err := r.ledger.PurgeBefore(ctx, opts.cutoff)
		if err != nil {
			return err
		}
		return r.print(map[string]any{"purged": n, "before": opts.cutoff.Format(time.DateOnly)})
	case modeLastRun:
		run, err := r.runs.Latest(ctx)
		if err != nil {
			return err
		}
		return r.print(run)
	}

	runOpts := []scheduler.RunOption{
		scheduler.WithTrigger(scheduler.TriggerManual),
		scheduler.WithDryRun(opts.dryRun),
	}
	var (
		summary *types.ScanSummary
		err     error
	)
	if opts.userID != "" {
		summary, err = r.scanner.RunForUser(ctx, opts.userID, opts.day, runOpts...)
	} else {
		summary, err = r.scanner.Run(ctx, opts.day, runOpts...)
	}
	if summary != nil {
		if printErr := r.print(summary); printErr != nil {
			return printErr
		}
	}
	return err
}

func (r *runner) print(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	opts, err := parseFlags(os.Args[1:], time.Now().UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n\nUsage: scan-runner [--date=YYYY-MM-DD] [--user=ID] [--dry-run] [--ledger] [--purge-before=YYYY-MM-DD] [--last-run]\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger := wiring.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := wiring.New(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	r := &runner{scanner: app.Scanner, ledger: app.Ledger, runs: app.ScanRuns, out: os.Stdout}
	if err := r.execute(ctx, opts); err != nil {
		logger.Error("scan-runner failed", "error", err)
		app.Close()
		os.Exit(1)
	}
}
