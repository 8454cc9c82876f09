package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fleetcare/internal/types"
)

// RecordInput is a new completion record.
type RecordInput struct {
	CompletedAt         time.Time `json:"completed_at" validate:"required"`
	MileageAtCompletion *int      `json:"mileage_at_completion,omitempty" validate:"omitempty,odometer"`
	Notes               string    `json:"notes,omitempty" validate:"max=2000"`
	Cost                *float64  `json:"cost,omitempty" validate:"omitempty,gte=0"`
}

// RecordPatch is a partial edit of a completion record. Nil fields are left
// unchanged; ClearMileage removes the mileage reading.
type RecordPatch struct {
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	MileageAtCompletion *int       `json:"mileage_at_completion,omitempty" validate:"omitempty,odometer"`
	ClearMileage        bool       `json:"clear_mileage,omitempty"`
	Notes               *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Cost                *float64   `json:"cost,omitempty" validate:"omitempty,gte=0"`
}

// RecordResult is returned by every record mutation.
type RecordResult struct {
	Record   *types.MaintenanceRecord   `json:"record"`
	Schedule *types.MaintenanceSchedule `json:"schedule"`
}

// RecordService creates, edits and deletes completion records. Each mutation
// and the schedule recalculation it triggers share one transaction.
type RecordService struct {
	tx     TxManager
	recalc *Recalculator
	clock  types.Clock
	logger *slog.Logger
}

// NewRecordService creates a RecordService. A nil clock uses the real UTC
// clock and a nil logger uses slog.Default().
func NewRecordService(tx TxManager, recalc *Recalculator, clock types.Clock, logger *slog.Logger) *RecordService {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	if recalc == nil {
		recalc = NewRecalculator(logger)
	}
	return &RecordService{tx: tx, recalc: recalc, clock: clock, logger: logger}
}

// Create records a completion for a schedule on a vehicle owned by userID.
func (s *RecordService) Create(ctx context.Context, userID, vehicleID, scheduleID string, in RecordInput) (*RecordResult, error) {
	if err := validateCompletion(in.CompletedAt, in.MileageAtCompletion); err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()

	var result RecordResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context, repos Repos) error {
		if _, err := repos.Vehicles.GetVehicle(ctx, userID, vehicleID); err != nil {
			return err
		}
		sched, err := repos.Schedules.GetSchedule(ctx, userID, scheduleID)
		if err != nil {
			return err
		}
		if sched.VehicleID != vehicleID {
			return types.NewAppError(types.ErrCodeNotFoundSchedule, "schedule not found for vehicle", nil)
		}

		rec := &types.MaintenanceRecord{
			ID:                  uuid.NewString(),
			ScheduleID:          scheduleID,
			VehicleID:           vehicleID,
			UserID:              userID,
			CompletedAt:         in.CompletedAt.UTC(),
			MileageAtCompletion: in.MileageAtCompletion,
			Notes:               in.Notes,
			Cost:                in.Cost,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := repos.Records.CreateRecord(ctx, rec); err != nil {
			return err
		}

		updated, err := s.recalc.Recalculate(ctx, repos, sched, now)
		if err != nil {
			return err
		}
		result = RecordResult{Record: rec, Schedule: updated}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "maintenance record created",
		"record_id", result.Record.ID,
		"schedule_id", scheduleID,
		"user_id", userID,
	)
	return &result, nil
}

// Update applies patch to a record owned by userID.
func (s *RecordService) Update(ctx context.Context, userID, recordID string, patch RecordPatch) (*RecordResult, error) {
	now := s.clock.Now().UTC()

	var result RecordResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context, repos Repos) error {
		rec, err := repos.Records.GetRecord(ctx, userID, recordID)
		if err != nil {
			return err
		}

		if patch.CompletedAt != nil {
			rec.CompletedAt = patch.CompletedAt.UTC()
		}
		if patch.ClearMileage {
			rec.MileageAtCompletion = nil
		} else if patch.MileageAtCompletion != nil {
			rec.MileageAtCompletion = patch.MileageAtCompletion
		}
		if patch.Notes != nil {
			rec.Notes = *patch.Notes
		}
		if patch.Cost != nil {
			rec.Cost = patch.Cost
		}
		if err := validateCompletion(rec.CompletedAt, rec.MileageAtCompletion); err != nil {
			return err
		}
		rec.UpdatedAt = now

		if err := repos.Records.UpdateRecord(ctx, rec); err != nil {
			return err
		}

		sched, err := repos.Schedules.GetSchedule(ctx, userID, rec.ScheduleID)
		if err != nil {
			return err
		}
		updated, err := s.recalc.Recalculate(ctx, repos, sched, now)
		if err != nil {
			return err
		}
		result = RecordResult{Record: rec, Schedule: updated}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "maintenance record updated",
		"record_id", recordID,
		"user_id", userID,
	)
	return &result, nil
}

// Delete removes a record owned by userID and returns it.
func (s *RecordService) Delete(ctx context.Context, userID, recordID string) (*RecordResult, error) {
	now := s.clock.Now().UTC()

	var result RecordResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context, repos Repos) error {
		rec, err := repos.Records.GetRecord(ctx, userID, recordID)
		if err != nil {
			return err
		}
		if err := repos.Records.DeleteRecord(ctx, recordID); err != nil {
			return err
		}

		sched, err := repos.Schedules.GetSchedule(ctx, userID, rec.ScheduleID)
		if err != nil {
			return err
		}
		updated, err := s.recalc.Recalculate(ctx, repos, sched, now)
		if err != nil {
			return err
		}
		result = RecordResult{Record: rec, Schedule: updated}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "maintenance record deleted",
		"record_id", recordID,
		"user_id", userID,
	)
	return &result, nil
}

func validateCompletion(completedAt time.Time, mileage *int) error {
	if completedAt.IsZero() {
		return types.NewAppError(types.ErrCodeValidationCompletedAt, "completed_at is required", nil)
	}
	if mileage != nil && *mileage < 0 {
		return types.NewAppError(types.ErrCodeValidationMileage, "mileage_at_completion must not be negative", nil)
	}
	return nil
}
