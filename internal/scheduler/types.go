// Package scheduler implements the daily overdue-maintenance scan.
//
// The scan is a stateless batch task. It walks eligible users, their vehicles
// and each vehicle's overdue schedules, classifies every candidate, applies
// the reminder cadence and dispatches through the email and push channels.
// Re-triggering the scan on the same day is safe: every dispatch is preceded
// by an atomic reservation in the notification ledger.
package scheduler

import (
	"context"
	"time"

	"fleetcare/internal/types"
)

// Trigger names recorded in scan_runs and metrics.
const (
	TriggerCron   = "cron"
	TriggerHTTP   = "http"
	TriggerRetry  = "retry"
	TriggerManual = "manual"
)

// ScanPayload is the JSON payload EventBridge sends to the scanner Lambda.
//
//	{
//	  "trigger": "cron",
//	  "reference_time": "2024-06-01T06:00:00Z",  // optional
//	  "user_id": "…",                            // optional, single-user scan
//	  "dry_run": false
//	}
type ScanPayload struct {
	Trigger string `json:"trigger,omitempty"`
	// ReferenceTime overrides "now" for backfills. If nil, the current UTC
	// time is used.
	ReferenceTime *time.Time `json:"reference_time,omitempty"`
	UserID        string     `json:"user_id,omitempty"`
	DryRun        bool       `json:"dry_run,omitempty"`
}

// UserDirectory lists users with a verified contact channel.
type UserDirectory interface {
	// ListEligible returns up to limit users ordered by ID, starting after
	// afterID. Push registrations are populated.
	ListEligible(ctx context.Context, afterID string, limit int) ([]types.User, error)
	GetEligible(ctx context.Context, userID string) (*types.User, error)
	RemovePushRegistrations(ctx context.Context, userID string, endpoints []string) (int64, error)
}

// VehicleStore lists a user's vehicles.
type VehicleStore interface {
	ListByUser(ctx context.Context, userID string) ([]types.Vehicle, error)
}

// ScheduleStore returns candidate schedules for one vehicle: those whose
// next-due date is before today or whose next-due odometer is below the
// vehicle's current mileage.
type ScheduleStore interface {
	ListOverdue(ctx context.Context, vehicleID string, today time.Time, currentMileage int) ([]types.MaintenanceSchedule, error)
}

// DefinitionReader loads shared maintenance definitions.
type DefinitionReader interface {
	GetDefinition(ctx context.Context, id string) (*types.MaintenanceDefinition, error)
}

// Ledger is the notification idempotency store.
type Ledger interface {
	// Reserve inserts entry if no entry with the same key exists. It returns
	// false when the key was already taken.
	Reserve(ctx context.Context, entry *types.LedgerEntry) (bool, error)
	Exists(ctx context.Context, userID, scheduleID string, day time.Time, key types.SeverityKey) (bool, error)
	RecordOutcome(ctx context.Context, id string, delivered types.Delivery, errText string) error
}

// EmailSender delivers a rendered email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// PushSender delivers one payload to every registration.
type PushSender interface {
	SendMany(ctx context.Context, regs []types.PushRegistration, payload []byte) (types.PushResult, error)
}

// EmailRenderer builds the subject and HTML body for a notice.
type EmailRenderer interface {
	Render(n types.OverdueNotice) (subject, html string, err error)
}

// PushPayloadBuilder builds the JSON push payload for a notice.
type PushPayloadBuilder interface {
	Build(n types.OverdueNotice) ([]byte, error)
}

// RetryPublisher enqueues a single-user rescan.
type RetryPublisher interface {
	PublishUserRetry(ctx context.Context, msg types.ScanRetryMessage) error
}

// RunRecorder persists scan history.
type RunRecorder interface {
	Start(ctx context.Context, trigger string, day time.Time) (string, error)
	Finish(ctx context.Context, id string, status types.ScanRunStatus, summary *types.ScanSummary, runErr error) error
}

// MetricsEmitter publishes run-level metrics.
type MetricsEmitter interface {
	EmitScan(ctx context.Context, trigger string, summary types.ScanSummary, duration time.Duration) error
}

// Dependencies groups the collaborators of an OverdueScanJob. Retry, Runs and
// Metrics are optional.
type Dependencies struct {
	Users       UserDirectory
	Vehicles    VehicleStore
	Schedules   ScheduleStore
	Definitions DefinitionReader
	Ledger      Ledger
	Email       EmailSender
	Push        PushSender
	EmailBody   EmailRenderer
	PushBody    PushPayloadBuilder
	Retry       RetryPublisher
	Runs        RunRecorder
	Metrics     MetricsEmitter
}

// Config tunes a scan.
type Config struct {
	// Concurrency bounds how many users are scanned at once.
	Concurrency int
	// BatchSize is the user directory page size.
	BatchSize int
	// DashboardURL is linked from every notification.
	DashboardURL string
}

// Defaults applied when Config fields are zero.
const (
	DefaultConcurrency = 4
	DefaultBatchSize   = 100
)
