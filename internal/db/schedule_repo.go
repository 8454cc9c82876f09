package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"fleetcare/internal/types"
)

// ScheduleRepository provides data access for maintenance_schedules.
type ScheduleRepository struct {
	db DBTX
}

// NewScheduleRepository creates a new ScheduleRepository backed by the given
// database connection (pool or transaction).
func NewScheduleRepository(db DBTX) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, user_id, vehicle_id, definition_id, custom_definition,
	next_due_date, next_due_kilometers, last_completed_at, last_completed_mileage,
	created_at, updated_at`

// scanSchedule maps the definition_id / custom_definition pair onto the
// DefinitionSource variant. custom_definition wins when both are set.
func scanSchedule(row pgx.Row) (*types.MaintenanceSchedule, error) {
	var (
		s            types.MaintenanceSchedule
		definitionID *string
		custom       *types.DefinitionData
	)
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.VehicleID,
		&definitionID,
		&custom,
		&s.NextDueDate,
		&s.NextDueKilometers,
		&s.LastCompletedAt,
		&s.LastCompletedMileage,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	switch {
	case custom != nil:
		s.Source = types.CustomDefinition{Data: *custom}
	case definitionID != nil:
		s.Source = types.ReferencedDefinition{ID: *definitionID}
	}
	return &s, nil
}

// ListOverdue returns the vehicle's schedules whose next-due date is before
// today or whose next-due odometer reading is below currentMileage.
func (r *ScheduleRepository) ListOverdue(ctx context.Context, vehicleID string, today time.Time, currentMileage int) ([]types.MaintenanceSchedule, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+scheduleColumns+`
		 FROM maintenance_schedules
		 WHERE vehicle_id = $1
		   AND (next_due_date < $2 OR next_due_kilometers < $3)
		 ORDER BY id`,
		vehicleID,
		today,
		currentMileage,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list overdue schedules", err)
	}
	defer rows.Close()

	var schedules []types.MaintenanceSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan schedule", err)
		}
		schedules = append(schedules, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating schedules", err)
	}
	return schedules, nil
}

// GetSchedule returns a schedule only if it belongs to userID.
func (r *ScheduleRepository) GetSchedule(ctx context.Context, userID, scheduleID string) (*types.MaintenanceSchedule, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+scheduleColumns+`
		 FROM maintenance_schedules
		 WHERE id = $1 AND user_id = $2`,
		scheduleID,
		userID,
	)
	s, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundSchedule, "schedule not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve schedule", err)
	}
	return s, nil
}

// UpdateDue overwrites the derived due columns of a schedule.
func (r *ScheduleRepository) UpdateDue(ctx context.Context, scheduleID string, due types.ScheduleDue) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE maintenance_schedules
		 SET next_due_date = $2,
		     next_due_kilometers = $3,
		     last_completed_at = $4,
		     last_completed_mileage = $5,
		     updated_at = NOW()
		 WHERE id = $1`,
		scheduleID,
		due.NextDueDate,
		due.NextDueKilometers,
		due.LastCompletedAt,
		due.LastCompletedMileage,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update schedule due state", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundSchedule, "schedule not found", nil)
	}
	return nil
}
