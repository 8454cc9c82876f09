package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"fleetcare/internal/types"
)

// RecordRepository provides data access for maintenance_records.
type RecordRepository struct {
	db DBTX
}

// NewRecordRepository creates a new RecordRepository backed by the given
// database connection (pool or transaction).
func NewRecordRepository(db DBTX) *RecordRepository {
	return &RecordRepository{db: db}
}

const recordColumns = `id, schedule_id, vehicle_id, user_id, completed_at, mileage_at_completion,
	COALESCE(notes, ''), cost, created_at, updated_at`

func scanRecord(row pgx.Row) (*types.MaintenanceRecord, error) {
	var rec types.MaintenanceRecord
	err := row.Scan(
		&rec.ID,
		&rec.ScheduleID,
		&rec.VehicleID,
		&rec.UserID,
		&rec.CompletedAt,
		&rec.MileageAtCompletion,
		&rec.Notes,
		&rec.Cost,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateRecord inserts a completion record. A foreign-key violation means the
// schedule or vehicle vanished concurrently and is reported as not found.
func (r *RecordRepository) CreateRecord(ctx context.Context, rec *types.MaintenanceRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO maintenance_records
		 (id, schedule_id, vehicle_id, user_id, completed_at, mileage_at_completion,
		  notes, cost, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()), COALESCE($10, NOW()))`,
		rec.ID,
		rec.ScheduleID,
		rec.VehicleID,
		rec.UserID,
		rec.CompletedAt,
		rec.MileageAtCompletion,
		nilIfEmpty(rec.Notes),
		rec.Cost,
		nilIfZeroTime(rec.CreatedAt),
		nilIfZeroTime(rec.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return types.NewAppError(types.ErrCodeNotFoundSchedule, "schedule not found", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create maintenance record", err)
	}
	return nil
}

// GetRecord returns a record only if it belongs to userID.
func (r *RecordRepository) GetRecord(ctx context.Context, userID, recordID string) (*types.MaintenanceRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+recordColumns+`
		 FROM maintenance_records
		 WHERE id = $1 AND user_id = $2`,
		recordID,
		userID,
	)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundRecord, "maintenance record not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve maintenance record", err)
	}
	return rec, nil
}

// UpdateRecord writes the mutable fields of a record.
func (r *RecordRepository) UpdateRecord(ctx context.Context, rec *types.MaintenanceRecord) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE maintenance_records
		 SET completed_at = $2,
		     mileage_at_completion = $3,
		     notes = $4,
		     cost = $5,
		     updated_at = COALESCE($6, NOW())
		 WHERE id = $1`,
		rec.ID,
		rec.CompletedAt,
		rec.MileageAtCompletion,
		nilIfEmpty(rec.Notes),
		rec.Cost,
		nilIfZeroTime(rec.UpdatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update maintenance record", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundRecord, "maintenance record not found", nil)
	}
	return nil
}

// DeleteRecord removes a record by ID.
func (r *RecordRepository) DeleteRecord(ctx context.Context, recordID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM maintenance_records WHERE id = $1`, recordID)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete maintenance record", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundRecord, "maintenance record not found", nil)
	}
	return nil
}

// LatestForSchedule returns the record with the greatest completed_at for the
// schedule, or nil when none exist. Ties break on created_at.
func (r *RecordRepository) LatestForSchedule(ctx context.Context, scheduleID string) (*types.MaintenanceRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+recordColumns+`
		 FROM maintenance_records
		 WHERE schedule_id = $1
		 ORDER BY completed_at DESC, created_at DESC
		 LIMIT 1`,
		scheduleID,
	)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve latest maintenance record", err)
	}
	return rec, nil
}
