package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"fleetcare/internal/types"
)

// LedgerRepository provides data access for notification_ledger, the
// idempotency record for overdue reminders. The table carries a unique
// constraint on (user_id, schedule_id, day, severity_axis,
// severity_magnitude).
type LedgerRepository struct {
	db DBTX
}

// NewLedgerRepository creates a new LedgerRepository backed by the given
// database connection (pool or transaction).
func NewLedgerRepository(db DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Reserve atomically inserts entry unless an entry with the same key tuple
// already exists. It returns true when this call created the row; false means
// another run already claimed it and nothing should be dispatched.
//
// entry.ID is generated when empty, and entry.Day is truncated to a UTC day.
func (r *LedgerRepository) Reserve(ctx context.Context, entry *types.LedgerEntry) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.Day = dayOf(entry.Day)

	err := r.db.QueryRow(ctx,
		`INSERT INTO notification_ledger
		 (id, user_id, schedule_id, vehicle_id, day, severity_axis, severity_magnitude,
		  tier, email_delivered, push_delivered, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, FALSE, NULL)
		 ON CONFLICT (user_id, schedule_id, day, severity_axis, severity_magnitude) DO NOTHING
		 RETURNING created_at`,
		entry.ID,
		entry.UserID,
		entry.ScheduleID,
		entry.VehicleID,
		entry.Day,
		string(entry.Key.Axis),
		entry.Key.Magnitude,
		string(entry.Tier),
	).Scan(&entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		// A primary-key collision on a caller-supplied ID also means the
		// entry exists.
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to reserve ledger entry", err)
	}
	return true, nil
}

// Exists reports whether an entry exists for the key tuple.
func (r *LedgerRepository) Exists(ctx context.Context, userID, scheduleID string, day time.Time, key types.SeverityKey) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM notification_ledger
		   WHERE user_id = $1 AND schedule_id = $2 AND day = $3
		     AND severity_axis = $4 AND severity_magnitude = $5
		 )`,
		userID,
		scheduleID,
		dayOf(day),
		string(key.Axis),
		key.Magnitude,
	).Scan(&exists)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to check ledger entry", err)
	}
	return exists, nil
}

// RecordOutcome stores the delivery outcome of a reserved entry.
func (r *LedgerRepository) RecordOutcome(ctx context.Context, id string, delivered types.Delivery, errText string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE notification_ledger
		 SET email_delivered = $2, push_delivered = $3, error = $4
		 WHERE id = $1`,
		id,
		delivered.Email,
		delivered.Push,
		nilIfEmpty(errText),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to record ledger outcome", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundLedger, "ledger entry not found", nil)
	}
	return nil
}

// ListForDay returns a user's ledger entries for one day, oldest first.
func (r *LedgerRepository) ListForDay(ctx context.Context, userID string, day time.Time) ([]types.LedgerEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, schedule_id, vehicle_id, day, severity_axis, severity_magnitude,
		        tier, email_delivered, push_delivered, COALESCE(error, ''), created_at
		 FROM notification_ledger
		 WHERE user_id = $1 AND day = $2
		 ORDER BY created_at`,
		userID,
		dayOf(day),
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list ledger entries", err)
	}
	defer rows.Close()

	var entries []types.LedgerEntry
	for rows.Next() {
		var (
			e    types.LedgerEntry
			axis string
			tier string
		)
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.ScheduleID,
			&e.VehicleID,
			&e.Day,
			&axis,
			&e.Key.Magnitude,
			&tier,
			&e.Delivered.Email,
			&e.Delivered.Push,
			&e.Error,
			&e.CreatedAt,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan ledger entry", err)
		}
		e.Key.Axis = types.Axis(axis)
		e.Tier = types.Tier(tier)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating ledger entries", err)
	}
	return entries, nil
}

// PurgeBefore deletes entries for days strictly before cutoff and returns the
// number of rows removed.
func (r *LedgerRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM notification_ledger WHERE day < $1`,
		dayOf(cutoff),
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to purge ledger entries", err)
	}
	return tag.RowsAffected(), nil
}
