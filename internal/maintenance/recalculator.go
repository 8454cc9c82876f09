package maintenance

import (
	"context"
	"log/slog"
	"time"

	"fleetcare/internal/types"
)

// DefinitionReader loads shared definitions referenced by schedules.
type DefinitionReader interface {
	GetDefinition(ctx context.Context, id string) (*types.MaintenanceDefinition, error)
}

// VehicleReader loads a vehicle owned by userID.
type VehicleReader interface {
	GetVehicle(ctx context.Context, userID, vehicleID string) (*types.Vehicle, error)
}

// ScheduleStore reads schedules and persists their derived due state.
type ScheduleStore interface {
	GetSchedule(ctx context.Context, userID, scheduleID string) (*types.MaintenanceSchedule, error)
	UpdateDue(ctx context.Context, scheduleID string, due types.ScheduleDue) error
}

// RecordStore persists completion records.
type RecordStore interface {
	CreateRecord(ctx context.Context, rec *types.MaintenanceRecord) error
	GetRecord(ctx context.Context, userID, recordID string) (*types.MaintenanceRecord, error)
	UpdateRecord(ctx context.Context, rec *types.MaintenanceRecord) error
	DeleteRecord(ctx context.Context, recordID string) error
	// LatestForSchedule returns the record with the greatest completed_at, or
	// nil when the schedule has no records.
	LatestForSchedule(ctx context.Context, scheduleID string) (*types.MaintenanceRecord, error)
}

// Repos groups the stores that take part in one record mutation. Inside
// TxManager.RunInTx they are all bound to the same transaction.
type Repos struct {
	Records     RecordStore
	Schedules   ScheduleStore
	Vehicles    VehicleReader
	Definitions DefinitionReader
}

// TxManager runs fn inside a single database transaction.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}

// ResolveDefinition turns a schedule's definition source into its data. Custom
// definitions resolve without a lookup.
func ResolveDefinition(ctx context.Context, src types.DefinitionSource, defs DefinitionReader) (types.DefinitionData, error) {
	switch s := src.(type) {
	case types.CustomDefinition:
		return s.Data, nil
	case types.ReferencedDefinition:
		def, err := defs.GetDefinition(ctx, s.ID)
		if err != nil {
			return types.DefinitionData{}, err
		}
		return def.DefinitionData, nil
	default:
		return types.DefinitionData{}, types.NewAppError(types.ErrCodeNotFoundDef, "schedule has no definition", nil)
	}
}

// Recalculator recomputes a schedule's persisted next-due values from its
// latest completion record.
type Recalculator struct {
	logger *slog.Logger
}

// NewRecalculator creates a Recalculator. A nil logger uses slog.Default().
func NewRecalculator(logger *slog.Logger) *Recalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recalculator{logger: logger}
}

// Recalculate re-anchors sched on its latest completion, or on now and the
// vehicle's current mileage when no completion remains. The updated schedule
// is returned; sched itself is not modified.
//
// A latest record without a mileage reading anchors the distance axis on the
// vehicle's current mileage.
func (r *Recalculator) Recalculate(ctx context.Context, repos Repos, sched *types.MaintenanceSchedule, now time.Time) (*types.MaintenanceSchedule, error) {
	def, err := ResolveDefinition(ctx, sched.Source, repos.Definitions)
	if err != nil {
		return nil, err
	}

	latest, err := repos.Records.LatestForSchedule(ctx, sched.ID)
	if err != nil {
		return nil, err
	}

	var due types.ScheduleDue
	anchor := Anchor{Date: now.UTC()}
	if latest != nil {
		completedAt := latest.CompletedAt.UTC()
		anchor.Date = completedAt
		due.LastCompletedAt = &completedAt
		if latest.MileageAtCompletion != nil {
			mileage := *latest.MileageAtCompletion
			anchor.Mileage = mileage
			due.LastCompletedMileage = &mileage
		}
	}

	if def.Recurrence.Kilometers != nil && due.LastCompletedMileage == nil {
		vehicle, err := repos.Vehicles.GetVehicle(ctx, sched.UserID, sched.VehicleID)
		if err != nil {
			return nil, err
		}
		anchor.Mileage = vehicle.CurrentMileage
	}

	next := Resolve(def.Recurrence, anchor)
	due.NextDueDate = next.Date
	due.NextDueKilometers = next.Kilometers
	if err := repos.Schedules.UpdateDue(ctx, sched.ID, due); err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "schedule recalculated",
		"schedule_id", sched.ID,
		"reset", latest == nil,
	)

	updated := *sched
	updated.NextDueDate = due.NextDueDate
	updated.NextDueKilometers = due.NextDueKilometers
	updated.LastCompletedAt = due.LastCompletedAt
	updated.LastCompletedMileage = due.LastCompletedMileage
	updated.UpdatedAt = now.UTC()
	return &updated, nil
}
