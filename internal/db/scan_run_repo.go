package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"fleetcare/internal/types"
)

// ScanRunRepository provides data access for the scan_runs table, which
// tracks every overdue scan invocation for operational visibility.
type ScanRunRepository struct {
	db DBTX
}

// NewScanRunRepository creates a new ScanRunRepository backed by the given
// database connection (pool or transaction).
func NewScanRunRepository(db DBTX) *ScanRunRepository {
	return &ScanRunRepository{db: db}
}

// Start inserts a running scan_runs row and returns its ID.
func (r *ScanRunRepository) Start(ctx context.Context, trigger string, day time.Time) (string, error) {
	id := uuid.NewString()
	_, err := r.db.Exec(ctx,
		`INSERT INTO scan_runs (id, trigger, day, status, started_at)
		 VALUES ($1, $2, $3, 'running', NOW())`,
		id,
		trigger,
		dayOf(day),
	)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalDB, "failed to start scan run", err)
	}
	return id, nil
}

// Finish stores the final status, summary and optional error of a run.
func (r *ScanRunRepository) Finish(ctx context.Context, id string, status types.ScanRunStatus, summary *types.ScanSummary, runErr error) error {
	var errMsg *string
	if runErr != nil {
		s := runErr.Error()
		errMsg = &s
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE scan_runs
		 SET finished_at = NOW(), status = $2, summary = $3, error = $4
		 WHERE id = $1`,
		id,
		string(status),
		summary,
		errMsg,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to finish scan run", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "scan run not found", nil)
	}
	return nil
}

// Latest returns the most recently started run, or nil if none exist.
func (r *ScanRunRepository) Latest(ctx context.Context) (*types.ScanRun, error) {
	var (
		run    types.ScanRun
		status string
		errMsg *string
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, trigger, day, status, summary, error, started_at, finished_at
		 FROM scan_runs
		 ORDER BY started_at DESC
		 LIMIT 1`,
	).Scan(&run.ID, &run.Trigger, &run.Day, &status, &run.Summary, &errMsg, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve latest scan run", err)
	}
	run.Status = types.ScanRunStatus(status)
	if errMsg != nil {
		run.Error = *errMsg
	}
	return &run, nil
}
