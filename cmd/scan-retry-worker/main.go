// Package main is the entry point for the Scan Retry Worker Lambda.
//
// It consumes types.ScanRetryMessage records from the scan retry queue and
// rescans the named user for the original day. Failures are reported as
// batch item failures so SQS redelivers them after the visibility timeout;
// once a message has been attempted maxAttempts times it is logged and
// dropped. Redelivered scans are safe because every dispatch is reserved in
// the notification ledger first.
//
// With APP_ENV=local an SQS event is read from stdin:
//
//	echo '{"Records":[{"messageId":"1","body":"{\"user_id\":\"u1\",\"day\":\"2024-06-01T00:00:00Z\"}"}]}' \
//	  | go run ./cmd/scan-retry-worker
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"fleetcare/internal/config"
	"fleetcare/internal/scheduler"
	"fleetcare/internal/types"
	"fleetcare/internal/wiring"
)

const maxAttempts = 3

// UserScanner rescans a single user.
type UserScanner interface {
	RunForUser(ctx context.Context, userID string, now time.Time, opts ...scheduler.RunOption) (*types.ScanSummary, error)
}

// Handler processes SQS batches of scan retries.
type Handler struct {
	scanner UserScanner
	logger  *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(scanner UserScanner, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{scanner: scanner, logger: logger}
}

// Handle processes every record and returns the ones SQS should redeliver.
func (h *Handler) Handle(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}
	for _, record := range event.Records {
		if err := h.processMessage(ctx, record); err != nil {
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	if n := len(response.BatchItemFailures); n > 0 {
		h.logger.WarnContext(ctx, "scan retry batch completed with failures",
			"records", len(event.Records),
			"failed", n,
		)
	}
	return response, nil
}

func (h *Handler) processMessage(ctx context.Context, record events.SQSMessage) error {
	var msg types.ScanRetryMessage
	if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
		h.logger.ErrorContext(ctx, "dropping malformed scan retry message",
			"message_id", record.MessageId,
			"error", err,
		)
		return nil
	}
	if msg.UserID == "" || msg.Day.IsZero() {
		h.logger.ErrorContext(ctx, "dropping incomplete scan retry message",
			"message_id", record.MessageId,
			"user_id", msg.UserID,
		)
		return nil
	}

	attempt := attemptOf(msg, record)
	logger := h.logger.With(
		"message_id", record.MessageId,
		"trace_id", msg.TraceID,
		"user_id", msg.UserID,
		"day", msg.Day.UTC().Format(time.DateOnly),
		"attempt", attempt,
	)

	summary, err := h.scanner.RunForUser(ctx, msg.UserID, msg.Day)
	if err == nil {
		logger.InfoContext(ctx, "scan retry succeeded",
			"total_overdue", summary.TotalOverdueMaintenances,
			"total_notifications", summary.TotalNotifications,
		)
		return nil
	}

	if types.IsNotFound(err) {
		logger.WarnContext(ctx, "user no longer eligible; dropping scan retry", "error", err)
		return nil
	}
	if attempt >= maxAttempts {
		logger.ErrorContext(ctx, "scan retry attempts exhausted", "error", err, "reason", msg.Reason)
		return nil
	}
	logger.WarnContext(ctx, "scan retry failed; will redeliver", "error", err)
	return err
}

// attemptOf is the larger of the publisher's attempt number and the SQS
// receive count, so redeliveries count towards maxAttempts.
func attemptOf(msg types.ScanRetryMessage, record events.SQSMessage) int {
	attempt := msg.Attempt
	if raw, ok := record.Attributes["ApproximateReceiveCount"]; ok {
		if n, err := strconv.Atoi(raw); err == nil && n > attempt {
			attempt = n
		}
	}
	return max(attempt, 1)
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
	logger.Info("scan retry worker initializing (cold start)", "version", cfg.Build.Version)

	ctx := context.Background()
	app, err := wiring.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("wiring application: %w", err)
	}
	defer app.Close()

	handler := NewHandler(app.Scanner, logger)

	if cfg.Environment == "local" {
		return runLocal(ctx, handler, os.Stdin, logger)
	}
	lambda.Start(handler.Handle)
	return nil
}

func runLocal(ctx context.Context, h *Handler, in io.Reader, logger *slog.Logger) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("no SQS event on stdin")
	}
	var event events.SQSEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return fmt.Errorf("parsing SQS event: %w", err)
	}
	response, err := h.Handle(ctx, event)
	if err != nil {
		return err
	}
	logger.Info("local batch processed",
		"records", len(event.Records),
		"failures", len(response.BatchItemFailures),
	)
	return nil
}
